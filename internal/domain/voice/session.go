package voice

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/SamyKr/VisuAI-sub000/internal/domain/asr"
	asrinter "github.com/SamyKr/VisuAI-sub000/internal/domain/asr/inter"
	"github.com/SamyKr/VisuAI-sub000/internal/platform/clock"
	"github.com/SamyKr/VisuAI-sub000/internal/platform/errors"
	"github.com/SamyKr/VisuAI-sub000/internal/platform/logging"
)

// Recognizer is the slice of the recognizer manager the session drives.
type Recognizer interface {
	Prime(ctx context.Context) error
	BeginCapture() error
	EndCapture() error
	SetListener(listener asrinter.Listener)
	Reset() error
}

// Speaker is the output collaborator; the tts speakers satisfy it.
type Speaker interface {
	InterruptAndStop(reason string)
	Speak(text string) error
	Resume()
}

// CuePlayer sounds the listen cue and reports how long it lasts.
type CuePlayer interface {
	Play() (time.Duration, error)
}

// Config carries the session timings.
type Config struct {
	SettleDelay      time.Duration
	PrimingFloor     time.Duration
	ResumeDelay      time.Duration
	QuietWindow      time.Duration
	EmergencyTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.SettleDelay <= 0 {
		c.SettleDelay = 300 * time.Millisecond
	}
	if c.PrimingFloor <= 0 {
		c.PrimingFloor = 500 * time.Millisecond
	}
	if c.ResumeDelay <= 0 {
		c.ResumeDelay = 300 * time.Millisecond
	}
	if c.QuietWindow <= 0 {
		c.QuietWindow = 1500 * time.Millisecond
	}
	if c.EmergencyTimeout <= 0 {
		c.EmergencyTimeout = 30 * time.Second
	}
	return c
}

// Hooks observe the session from outside. Both run on the session
// goroutine and must not call back into it synchronously.
type Hooks struct {
	Notify     func(state SessionState)
	OnFinished func(res Result)
}

// Deps are the collaborators one session drives.
type Deps struct {
	Recognizer Recognizer
	Speaker    Speaker
	Cue        CuePlayer

	// Answer builds the spoken answer for a finalized transcript. It
	// reads the scene snapshot at call time, which is what makes the
	// answer describe the world at finalization rather than at the
	// gesture.
	Answer func(transcript string) string

	Scheduler clock.Scheduler
	Logger    *logging.Logger
	Hooks     Hooks
}

// Session is the single question session. One gesture runs it through
// interrupt -> prime -> listen -> finalize -> respond; every mutation
// happens on its own goroutine, fed by an event channel.
type Session struct {
	cfg  Config
	deps Deps

	events chan event
	quit   chan struct{}
	done   chan struct{}
	once   sync.Once

	// Owned by the run goroutine.
	state         SessionState
	gen           uint64
	finText       string
	finErr        error
	pendingSpeech string
	result        Result
	agg           *asr.Aggregator
	primeCancel   context.CancelFunc

	settleTimer    clock.Timer
	primingTimer   clock.Timer
	emergencyTimer clock.Timer
	resumeTimer    clock.Timer

	published atomic.Value

	textMu   sync.RWMutex
	lastText string
}

func NewSession(cfg Config, deps Deps) *Session {
	s := &Session{
		cfg:    cfg.withDefaults(),
		deps:   deps,
		events: make(chan event, 64),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
		state:  StateIdle,
		gen:    1,
	}
	s.published.Store(StateIdle)
	go s.run()
	return s
}

// Start begins a question session. It reports SessionBusy when a
// session is already in flight or the recognizer is recovering.
func (s *Session) Start() error {
	const op = "voice.start"

	reply := make(chan error, 1)
	select {
	case s.events <- event{kind: evStart, reply: reply}:
	case <-s.quit:
		return errors.NewCode(errors.CodeSessionBusy, op, "session is shut down")
	}
	select {
	case err := <-reply:
		return err
	case <-s.quit:
		return errors.NewCode(errors.CodeSessionBusy, op, "session is shut down")
	}
}

// Stop forces the session back to idle from any state.
func (s *Session) Stop() {
	s.post(event{kind: evStop})
}

// SetRecovering reflects the retry policy's recovery window into the
// session so starts are refused from one place.
func (s *Session) SetRecovering(on bool) {
	s.post(event{kind: evSetRecovering, on: on})
}

func (s *Session) State() SessionState {
	return s.published.Load().(SessionState)
}

func (s *Session) IsListening() bool {
	return s.State() == StateListening
}

// IsWaitingForQuestion reports whether a question is in flight but the
// answer has not been delivered yet.
func (s *Session) IsWaitingForQuestion() bool {
	switch s.State() {
	case StateInterrupting, StatePriming, StateListening, StateFinalizing:
		return true
	}
	return false
}

func (s *Session) LastRecognizedText() string {
	s.textMu.RLock()
	defer s.textMu.RUnlock()
	return s.lastText
}

// Close ends the run goroutine. Pending timers are cancelled and the
// capture session is released.
func (s *Session) Close() {
	s.once.Do(func() { close(s.quit) })
	<-s.done
}

func (s *Session) post(ev event) {
	select {
	case s.events <- ev:
	case <-s.quit:
	}
}

// postPartial drops on a full channel; partial updates are advisory.
func (s *Session) postPartial(ev event) {
	select {
	case s.events <- ev:
	default:
	}
}

func (s *Session) poster(kind eventKind) func() {
	gen := s.gen
	return func() {
		s.post(event{kind: kind, gen: gen})
	}
}

func (s *Session) run() {
	defer close(s.done)
	for {
		select {
		case ev := <-s.events:
			s.handle(ev)
		case <-s.quit:
			s.teardown()
			return
		}
	}
}

func (s *Session) handle(ev event) {
	if ev.gen != 0 && ev.gen != s.gen {
		return
	}

	switch ev.kind {
	case evStart:
		s.handleStart(ev)
	case evPartial:
		if s.state == StateListening {
			s.setLastText(ev.text)
		}
	default:
		s.apply(ev)
	}
}

func (s *Session) handleStart(ev event) {
	const op = "voice.start"

	switch s.state {
	case StateRecovering:
		ev.reply <- errors.NewCode(errors.CodeSessionBusy, op, "recognizer is recovering")
		return
	case StateIdle:
		ev.reply <- nil
		s.apply(ev)
	default:
		s.deps.Logger.DebugTag("SESSION", "start ignored in state %s", s.state)
		ev.reply <- errors.NewCode(errors.CodeSessionBusy, op, "question already in progress")
	}
}

// apply runs one event through the transition function, swaps the
// state and executes the commands. A command may hand back a follow-up
// event (finalize -> answered), which is applied in the same turn.
func (s *Session) apply(ev event) {
	next, cmds := s.transition(ev)
	prev := s.state
	if next != prev {
		s.exitState(prev)
		s.state = next
		s.published.Store(next)
		s.enterState(next)
	}

	var follow *event
	for _, cmd := range cmds {
		if f := s.execute(cmd, next); f != nil {
			follow = f
		}
	}
	if follow != nil {
		s.apply(*follow)
	}
}

// enterState arms the delayed continuations owned by each state.
func (s *Session) enterState(state SessionState) {
	switch state {
	case StateInterrupting:
		s.gen++
		s.settleTimer = s.deps.Scheduler.Schedule(s.cfg.SettleDelay, s.poster(evSettleElapsed))
	case StatePriming:
		// Watchdog spans priming and listening; it is disarmed the
		// moment finalizing is reached normally.
		s.emergencyTimer = s.deps.Scheduler.Schedule(s.cfg.EmergencyTimeout, s.poster(evEmergency))
	case StateFinalizing:
		s.cancelTimer(&s.emergencyTimer)
		s.cancelTimer(&s.primingTimer)
		s.cancelPrime()
	case StateResponding:
		s.resumeTimer = s.deps.Scheduler.Schedule(s.cfg.ResumeDelay, s.poster(evResumeElapsed))
	case StateIdle:
		s.gen++
		s.cancelAllTimers()
		s.cancelPrime()
		s.pendingSpeech = ""
		s.finText, s.finErr = "", nil
	}
}

func (s *Session) exitState(state SessionState) {
	switch state {
	case StateInterrupting:
		s.cancelTimer(&s.settleTimer)
	case StatePriming:
		s.cancelTimer(&s.primingTimer)
	case StateResponding:
		s.cancelTimer(&s.resumeTimer)
	}
}

func (s *Session) execute(cmd command, state SessionState) *event {
	switch cmd.kind {
	case cmdNotify:
		if s.deps.Hooks.Notify != nil {
			s.deps.Hooks.Notify(state)
		}

	case cmdInterruptOutput:
		s.deps.Logger.InfoSession("interrupting output for a question")
		s.deps.Speaker.InterruptAndStop("user question")

	case cmdPrime:
		ctx, cancel := context.WithCancel(context.Background())
		s.primeCancel = cancel
		gen := s.gen
		go func() {
			err := s.deps.Recognizer.Prime(ctx)
			s.post(event{kind: evPrimed, gen: gen, err: err})
		}()

	case cmdPlayCue:
		duration, err := s.deps.Cue.Play()
		if err != nil {
			s.deps.Logger.WarnTag("SESSION", "listen cue failed: %v", err)
			duration = 0
		}
		delay := duration
		if delay < s.cfg.PrimingFloor {
			delay = s.cfg.PrimingFloor
		}
		s.primingTimer = s.deps.Scheduler.Schedule(delay, s.poster(evPrimingElapsed))

	case cmdBeginCapture:
		s.setLastText("")
		gen := s.gen
		agg := asr.NewAggregator(s.deps.Scheduler, s.cfg.QuietWindow, func(text string, err error) {
			s.post(event{kind: evFinalized, gen: gen, text: text, err: err})
		})
		s.agg = agg
		s.deps.Recognizer.SetListener(&captureBridge{session: s, agg: agg, gen: gen})
		if err := s.deps.Recognizer.BeginCapture(); err != nil {
			return &event{kind: evFinalized, gen: gen,
				err: ensureCode(err, errors.CodeRequestCreation, "voice.session", "capture start failed")}
		}
		s.deps.Logger.InfoSession("listening")

	case cmdEndCapture:
		s.releaseCapture(false)

	case cmdReleaseCapture:
		s.releaseCapture(true)

	case cmdFinalize:
		return s.finalize()

	case cmdFinish:
		if s.deps.Hooks.OnFinished != nil {
			s.deps.Hooks.OnFinished(s.result)
		}

	case cmdResumeOutput:
		s.deps.Speaker.Resume()

	case cmdSpeak:
		if cmd.text != "" {
			text := cmd.text
			go func() {
				if err := s.deps.Speaker.Speak(text); err != nil {
					s.deps.Logger.WarnTag("SESSION", "answer not delivered: %v", err)
				}
			}()
		}
	}
	return nil
}

// finalize turns the settled transcript (or error) into the utterance
// to speak. The scene snapshot is read here, inside deps.Answer.
func (s *Session) finalize() *event {
	if s.finText != "" {
		s.setLastText(s.finText)
	}

	answer := ""
	if s.finErr == nil {
		answer = s.deps.Answer(s.finText)
		s.pendingSpeech = answer
		s.deps.Logger.InfoSession("answering %q", s.finText)
	} else {
		s.pendingSpeech = apologyFor(s.finErr)
		s.deps.Logger.WarnTag("SESSION", "session failed: %v", s.finErr)
	}

	s.result = Result{Transcript: s.finText, Answer: answer, Err: s.finErr}
	return &event{kind: evAnswered, gen: s.gen}
}

func (s *Session) releaseCapture(reset bool) {
	if s.agg != nil {
		s.agg.Cancel()
		s.agg = nil
	}
	s.cancelPrime()
	if err := s.deps.Recognizer.EndCapture(); err != nil {
		s.deps.Logger.DebugTag("SESSION", "capture end: %v", err)
	}
	if reset {
		if err := s.deps.Recognizer.Reset(); err != nil {
			s.deps.Logger.DebugTag("SESSION", "recognizer reset: %v", err)
		}
	}
}

func (s *Session) cancelTimer(t *clock.Timer) {
	if *t != nil {
		(*t).Cancel()
		*t = nil
	}
}

func (s *Session) cancelAllTimers() {
	s.cancelTimer(&s.settleTimer)
	s.cancelTimer(&s.primingTimer)
	s.cancelTimer(&s.emergencyTimer)
	s.cancelTimer(&s.resumeTimer)
}

func (s *Session) cancelPrime() {
	if s.primeCancel != nil {
		s.primeCancel()
		s.primeCancel = nil
	}
}

func (s *Session) teardown() {
	s.cancelAllTimers()
	s.cancelPrime()
	if s.agg != nil {
		s.agg.Cancel()
		s.agg = nil
	}
	if s.state != StateIdle && s.state != StateRecovering {
		s.releaseCapture(true)
	}
}

func (s *Session) setLastText(text string) {
	s.textMu.Lock()
	s.lastText = text
	s.textMu.Unlock()
}

// ensureCode stamps a code on uncoded errors and leaves coded ones be.
func ensureCode(err error, code errors.Code, op, message string) error {
	if errors.CodeOf(err) != errors.CodeNone {
		return err
	}
	return errors.WrapCode(code, op, message, err)
}

// captureBridge fans recognizer callbacks out to the aggregator and
// taps partials for LastRecognizedText. Runs on provider goroutines.
type captureBridge struct {
	session *Session
	agg     *asr.Aggregator
	gen     uint64
}

func (b *captureBridge) OnPartial(text string) {
	b.session.postPartial(event{kind: evPartial, gen: b.gen, text: text})
	b.agg.OnPartial(text)
}

func (b *captureBridge) OnFinal(text string) {
	b.agg.OnFinal(text)
}

func (b *captureBridge) OnError(kind asrinter.ErrorKind, err error) {
	b.agg.OnError(kind, err)
}
