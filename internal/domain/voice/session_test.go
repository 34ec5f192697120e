package voice

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	asrinter "github.com/SamyKr/VisuAI-sub000/internal/domain/asr/inter"
	"github.com/SamyKr/VisuAI-sub000/internal/platform/clock"
	platerr "github.com/SamyKr/VisuAI-sub000/internal/platform/errors"
)

type fakeRecognizer struct {
	mu       sync.Mutex
	listener asrinter.Listener
	primeErr error
	beginErr error
	primes   int
	begins   int
	ends     int
	resets   int
}

func (r *fakeRecognizer) Prime(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.primes++
	return r.primeErr
}

func (r *fakeRecognizer) BeginCapture() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.begins++
	return r.beginErr
}

func (r *fakeRecognizer) EndCapture() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ends++
	return nil
}

func (r *fakeRecognizer) SetListener(listener asrinter.Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listener = listener
}

func (r *fakeRecognizer) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resets++
	return nil
}

func (r *fakeRecognizer) Listener() asrinter.Listener {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listener
}

func (r *fakeRecognizer) counts() (primes, begins, ends, resets int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.primes, r.begins, r.ends, r.resets
}

type fakeSpeaker struct {
	mu         sync.Mutex
	interrupts []string
	resumes    int
	spoken     chan string
}

func newFakeSpeaker() *fakeSpeaker {
	return &fakeSpeaker{spoken: make(chan string, 8)}
}

func (s *fakeSpeaker) InterruptAndStop(reason string) {
	s.mu.Lock()
	s.interrupts = append(s.interrupts, reason)
	s.mu.Unlock()
}

func (s *fakeSpeaker) Speak(text string) error {
	s.spoken <- text
	return nil
}

func (s *fakeSpeaker) Resume() {
	s.mu.Lock()
	s.resumes++
	s.mu.Unlock()
}

func (s *fakeSpeaker) stats() (interrupts []string, resumes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.interrupts...), s.resumes
}

type fakeCue struct {
	mu       sync.Mutex
	duration time.Duration
	err      error
	plays    int
}

func (c *fakeCue) Play() (time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.plays++
	return c.duration, c.err
}

type fixture struct {
	session *Session
	sched   *clock.Manual
	rec     *fakeRecognizer
	speaker *fakeSpeaker
	cue     *fakeCue
	states  chan SessionState
	results chan Result
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		sched:   clock.NewManual(),
		rec:     &fakeRecognizer{},
		speaker: newFakeSpeaker(),
		cue:     &fakeCue{duration: 640 * time.Millisecond},
		states:  make(chan SessionState, 32),
		results: make(chan Result, 4),
	}
	f.session = NewSession(Config{
		SettleDelay:      300 * time.Millisecond,
		PrimingFloor:     500 * time.Millisecond,
		ResumeDelay:      300 * time.Millisecond,
		QuietWindow:      1500 * time.Millisecond,
		EmergencyTimeout: 30 * time.Second,
	}, Deps{
		Recognizer: f.rec,
		Speaker:    f.speaker,
		Cue:        f.cue,
		Answer:     func(text string) string { return "answer to: " + text },
		Scheduler:  f.sched,
		Hooks: Hooks{
			Notify:     func(st SessionState) { f.states <- st },
			OnFinished: func(res Result) { f.results <- res },
		},
	})
	t.Cleanup(f.session.Close)
	return f
}

func (f *fixture) waitState(t *testing.T, want SessionState) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case st := <-f.states:
			if st == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for state %q (currently %q)", want, f.session.State())
		}
	}
}

func (f *fixture) waitResult(t *testing.T) Result {
	t.Helper()
	select {
	case res := <-f.results:
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for session result")
		return Result{}
	}
}

func (f *fixture) waitSpoken(t *testing.T) string {
	t.Helper()
	select {
	case text := <-f.speaker.spoken:
		return text
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for spoken output")
		return ""
	}
}

// startToListening drives a fresh session up to the listening state.
func (f *fixture) startToListening(t *testing.T) {
	t.Helper()

	require.NoError(t, f.session.Start())
	f.waitState(t, StateInterrupting)

	f.sched.Advance(300 * time.Millisecond)
	f.waitState(t, StatePriming)

	// Prime runs on its own goroutine; the priming timer exists once
	// the cue has been played.
	require.Eventually(t, func() bool { return f.sched.Pending() == 2 },
		2*time.Second, 2*time.Millisecond, "emergency and priming timers should be armed")

	f.sched.Advance(640 * time.Millisecond)
	f.waitState(t, StateListening)
	require.NotNil(t, f.rec.Listener())
}

func TestSessionAnswersQuestion(t *testing.T) {
	f := newFixture(t)
	f.startToListening(t)

	interrupts, _ := f.speaker.stats()
	assert.Equal(t, []string{"user question"}, interrupts)

	f.rec.Listener().OnPartial("is there")
	require.Eventually(t, func() bool { return f.session.LastRecognizedText() == "is there" },
		2*time.Second, 2*time.Millisecond)

	f.rec.Listener().OnFinal("is there a car")
	f.waitState(t, StateResponding)

	res := f.waitResult(t)
	assert.Equal(t, "is there a car", res.Transcript)
	assert.Equal(t, "answer to: is there a car", res.Answer)
	assert.NoError(t, res.Err)

	f.sched.Advance(300 * time.Millisecond)
	f.waitState(t, StateIdle)

	assert.Equal(t, "answer to: is there a car", f.waitSpoken(t))
	_, resumes := f.speaker.stats()
	assert.Equal(t, 1, resumes)

	primes, begins, ends, _ := f.rec.counts()
	assert.Equal(t, 1, primes)
	assert.Equal(t, 1, begins)
	assert.Equal(t, 1, ends)
	assert.Equal(t, 0, f.sched.Pending(), "all timers released at idle")
}

func TestSessionQuietWindowFinalizesLastPartial(t *testing.T) {
	f := newFixture(t)
	f.startToListening(t)

	f.rec.Listener().OnPartial("a")
	f.sched.Advance(500 * time.Millisecond)
	f.rec.Listener().OnPartial("a car")

	// 1.4s after the last partial: still listening.
	f.sched.Advance(1400 * time.Millisecond)
	assert.Equal(t, StateListening, f.session.State())

	// The quiet window closes exactly 1.5s after the last partial.
	f.sched.Advance(100 * time.Millisecond)
	f.waitState(t, StateResponding)

	res := f.waitResult(t)
	assert.Equal(t, "a car", res.Transcript)
	assert.NoError(t, res.Err)
}

func TestSessionPrimingFloorAppliesWithoutCue(t *testing.T) {
	f := newFixture(t)
	f.cue.mu.Lock()
	f.cue.duration = 0
	f.cue.mu.Unlock()

	require.NoError(t, f.session.Start())
	f.sched.Advance(300 * time.Millisecond)
	f.waitState(t, StatePriming)
	require.Eventually(t, func() bool { return f.sched.Pending() == 2 },
		2*time.Second, 2*time.Millisecond)

	f.sched.Advance(499 * time.Millisecond)
	assert.Equal(t, StatePriming, f.session.State())

	f.sched.Advance(1 * time.Millisecond)
	f.waitState(t, StateListening)
}

func TestSessionEmergencyTimeout(t *testing.T) {
	f := newFixture(t)
	f.startToListening(t)

	// No speech at all; the watchdog closes the session.
	f.sched.Advance(30 * time.Second)
	f.waitState(t, StateResponding)

	res := f.waitResult(t)
	require.Error(t, res.Err)
	assert.True(t, platerr.IsCode(res.Err, platerr.CodeEmergencyTimeout))

	f.sched.Advance(300 * time.Millisecond)
	f.waitState(t, StateIdle)
	assert.Equal(t, msgEmergency, f.waitSpoken(t))
}

func TestSessionEmergencyCancelledOnNormalFinal(t *testing.T) {
	f := newFixture(t)
	f.startToListening(t)

	f.rec.Listener().OnFinal("describe")
	f.waitState(t, StateResponding)
	f.waitResult(t)

	f.sched.Advance(300 * time.Millisecond)
	f.waitState(t, StateIdle)
	f.waitSpoken(t)

	// Long after the would-be watchdog deadline: nothing else happens.
	f.sched.Advance(time.Hour)
	assert.Equal(t, StateIdle, f.session.State())
	assert.Empty(t, f.results)
}

func TestSessionStartWhileBusy(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.session.Start())
	f.waitState(t, StateInterrupting)

	err := f.session.Start()
	require.Error(t, err)
	assert.True(t, platerr.IsCode(err, platerr.CodeSessionBusy))
	assert.Equal(t, StateInterrupting, f.session.State())
}

func TestSessionStopReleasesEverything(t *testing.T) {
	f := newFixture(t)
	f.startToListening(t)

	f.session.Stop()
	f.waitState(t, StateIdle)

	_, _, ends, resets := f.rec.counts()
	assert.GreaterOrEqual(t, ends, 1)
	assert.Equal(t, 1, resets)
	_, resumes := f.speaker.stats()
	assert.Equal(t, 1, resumes, "output handed back on stop")
	assert.Equal(t, 0, f.sched.Pending())

	// Late recognizer events from the stopped capture go nowhere.
	f.rec.Listener().OnFinal("ghost")
	f.sched.Advance(time.Minute)
	assert.Equal(t, StateIdle, f.session.State())
	assert.Empty(t, f.results)

	// The session is reusable afterwards.
	require.NoError(t, f.session.Start())
	f.waitState(t, StateInterrupting)
}

func TestSessionRecoveringRefusesStart(t *testing.T) {
	f := newFixture(t)

	f.session.SetRecovering(true)
	f.waitState(t, StateRecovering)

	err := f.session.Start()
	require.Error(t, err)
	assert.True(t, platerr.IsCode(err, platerr.CodeSessionBusy))

	f.session.SetRecovering(false)
	f.waitState(t, StateIdle)
	require.NoError(t, f.session.Start())
	f.waitState(t, StateInterrupting)
}

func TestSessionPrimeFailure(t *testing.T) {
	f := newFixture(t)
	f.rec.primeErr = platerr.NewCode(platerr.CodeRequestCreation, "test", "backend down")

	require.NoError(t, f.session.Start())
	f.sched.Advance(300 * time.Millisecond)
	f.waitState(t, StateResponding)

	res := f.waitResult(t)
	assert.True(t, platerr.IsCode(res.Err, platerr.CodeRequestCreation))

	f.sched.Advance(300 * time.Millisecond)
	f.waitState(t, StateIdle)
	assert.Equal(t, msgRecognition, f.waitSpoken(t))

	_, begins, _, _ := f.rec.counts()
	assert.Equal(t, 0, begins, "capture never starts when priming fails")
}

func TestSessionCapabilityFailureSpeaksUnavailable(t *testing.T) {
	f := newFixture(t)
	f.rec.primeErr = platerr.NewCode(platerr.CodeCapabilityUnavailable, "test", "no local recognition")

	require.NoError(t, f.session.Start())
	f.sched.Advance(300 * time.Millisecond)
	f.waitState(t, StateResponding)

	res := f.waitResult(t)
	assert.True(t, platerr.IsCode(res.Err, platerr.CodeCapabilityUnavailable))

	f.sched.Advance(300 * time.Millisecond)
	f.waitState(t, StateIdle)
	assert.Equal(t, msgUnavailable, f.waitSpoken(t))
}

func TestSessionNoSpeechApology(t *testing.T) {
	f := newFixture(t)
	f.startToListening(t)

	f.rec.Listener().OnError(asrinter.ErrorKindNoSpeech, platerr.New(platerr.KindVoice, "test", "silence"))
	f.waitState(t, StateResponding)

	res := f.waitResult(t)
	assert.True(t, platerr.IsCode(res.Err, platerr.CodeNoSpeechDetected))

	f.sched.Advance(300 * time.Millisecond)
	f.waitState(t, StateIdle)
	assert.Equal(t, msgNoSpeech, f.waitSpoken(t))
}

func TestSessionErrorSuppressedByPartial(t *testing.T) {
	f := newFixture(t)
	f.startToListening(t)

	f.rec.Listener().OnPartial("where is the bus")
	f.rec.Listener().OnError(asrinter.ErrorKindRecognition, platerr.New(platerr.KindVoice, "test", "stream reset"))
	f.waitState(t, StateResponding)

	res := f.waitResult(t)
	assert.NoError(t, res.Err)
	assert.Equal(t, "where is the bus", res.Transcript)
}

func TestApologySelection(t *testing.T) {
	assert.Equal(t, msgNoSpeech, apologyFor(platerr.NewCode(platerr.CodeNoSpeechDetected, "t", "m")))
	assert.Equal(t, msgEmergency, apologyFor(platerr.NewCode(platerr.CodeEmergencyTimeout, "t", "m")))
	assert.Equal(t, msgUnavailable, apologyFor(platerr.NewCode(platerr.CodePermissionDenied, "t", "m")))
	assert.Equal(t, msgRecognition, apologyFor(platerr.New(platerr.KindVoice, "t", "m")))
}
