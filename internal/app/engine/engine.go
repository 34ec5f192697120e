// Package engine wires the voice-query parts into one service: scene
// state, question parsing, answer generation, the voice session and the
// history trail. Transports talk to this facade only.
package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	evbus "github.com/asaskevich/EventBus"
	"github.com/google/uuid"

	"github.com/SamyKr/VisuAI-sub000/internal/domain/asr"
	asrinter "github.com/SamyKr/VisuAI-sub000/internal/domain/asr/inter"
	"github.com/SamyKr/VisuAI-sub000/internal/domain/cue"
	"github.com/SamyKr/VisuAI-sub000/internal/domain/eventbus"
	"github.com/SamyKr/VisuAI-sub000/internal/domain/history"
	"github.com/SamyKr/VisuAI-sub000/internal/domain/lexicon"
	"github.com/SamyKr/VisuAI-sub000/internal/domain/question"
	"github.com/SamyKr/VisuAI-sub000/internal/domain/response"
	"github.com/SamyKr/VisuAI-sub000/internal/domain/scene"
	"github.com/SamyKr/VisuAI-sub000/internal/domain/tts/infrastructure/adapters/device"
	ttsinter "github.com/SamyKr/VisuAI-sub000/internal/domain/tts/inter"
	"github.com/SamyKr/VisuAI-sub000/internal/domain/voice"
	"github.com/SamyKr/VisuAI-sub000/internal/platform/clock"
	"github.com/SamyKr/VisuAI-sub000/internal/platform/config"
	"github.com/SamyKr/VisuAI-sub000/internal/platform/errors"
	"github.com/SamyKr/VisuAI-sub000/internal/platform/logging"
)

const probeTimeout = 5 * time.Second

// DeviceSink is everything a connected device offers for output: spoken
// text, output-control frames, synthesized audio and the listen cue.
// The websocket session implements it.
type DeviceSink interface {
	ttsinter.Sink
	SendCue() error
}

// Answer is the outcome of a text-mode question.
type Answer struct {
	Intent     string  `json:"intent"`
	Target     string  `json:"target,omitempty"`
	Confidence float64 `json:"confidence"`
	Response   string  `json:"response"`
}

// Status is the engine snapshot served by the control API.
type Status struct {
	State              string `json:"state"`
	Listening          bool   `json:"listening"`
	WaitingForQuestion bool   `json:"waiting_for_question"`
	Ready              bool   `json:"ready"`
	InteractionEnabled bool   `json:"interaction_enabled"`
	Recovering         bool   `json:"recovering"`
	Activation         bool   `json:"activation"`
	LastTranscript     string `json:"last_transcript,omitempty"`
	Recognizer         string `json:"recognizer,omitempty"`
	LocalOnly          bool   `json:"local_only"`
	SnapshotObjects    int    `json:"snapshot_objects"`
	SnapshotAgeMs      int64  `json:"snapshot_age_ms"`
	Answered           int64  `json:"answered"`
	UptimeS            int64  `json:"uptime_s"`
}

// Options carries the engine's constructed collaborators. Provider may
// be nil when no recognizer could be built; the engine then refuses
// voice interaction but still serves text questions.
type Options struct {
	Config    *config.Config
	Logger    *logging.Logger
	Bus       evbus.Bus
	Scheduler clock.Scheduler
	Provider  asrinter.Provider
	Speaker   ttsinter.Speaker
	Cue       *cue.Player
	Recorder  *history.Recorder
}

// Engine is the voice-query service facade.
type Engine struct {
	id     string
	cfg    *config.Config
	logger *logging.Logger
	bus    evbus.Bus

	dict      *lexicon.Dictionary
	holder    *scene.Holder
	analyzer  *scene.Analyzer
	parser    *question.Parser
	generator *response.Generator

	manager  *asr.Manager
	policy   *asr.RetryPolicy
	session  *voice.Session
	speaker  ttsinter.Speaker
	cue      *cue.Player
	recorder *history.Recorder

	activation *activation

	enabled  atomic.Bool
	capable  atomic.Bool
	answered atomic.Int64

	criticalScore float64
	startedAt     time.Time

	// lastState is only touched from the session goroutine (Notify hook).
	lastState voice.SessionState

	askMu   sync.Mutex
	lastAsk askContext
}

// askContext carries what the session's answer hook learned about the
// question, so the finish hook can publish a complete record.
type askContext struct {
	parsed    question.Parsed
	labels    []string
	startedAt time.Time
}

func New(opts Options) (*Engine, error) {
	const op = "engine.new"

	cfg := opts.Config
	if cfg == nil {
		return nil, errors.New(errors.KindConfig, op, "engine requires a configuration")
	}

	logger := opts.Logger
	bus := opts.Bus
	if bus == nil {
		bus = eventbus.New()
	}
	sched := opts.Scheduler
	if sched == nil {
		sched = clock.NewWall()
	}
	speaker := opts.Speaker
	if speaker == nil {
		speaker = device.New(logger)
	}
	cuePlayer := opts.Cue
	if cuePlayer == nil {
		cuePlayer, _ = cue.New(cue.Config{Enabled: false}, logger)
	}

	dict := lexicon.New(lexiconExtras(cfg.Lexicon)...)

	criticalScore := cfg.Engine.Scene.CriticalScore
	if criticalScore <= 0 {
		criticalScore = 0.7
	}

	e := &Engine{
		id:     uuid.NewString(),
		cfg:    cfg,
		logger: logger,
		bus:    bus,

		dict:   dict,
		holder: scene.NewHolder(),
		analyzer: scene.NewAnalyzer(dict, scene.Config{
			ZoneLeft:      cfg.Engine.Scene.ZoneLeft,
			ZoneRight:     cfg.Engine.Scene.ZoneRight,
			CriticalScore: cfg.Engine.Scene.CriticalScore,
		}),
		parser: question.NewParser(dict),
		generator: response.NewGenerator(dict, response.Config{
			CloseVehicleMeters: cfg.Engine.Response.CloseVehicleMeters,
			MovingScore:        cfg.Engine.Response.MovingScore,
			NearPlanMeters:     cfg.Engine.Response.NearPlanMeters,
			FarPlanMeters:      cfg.Engine.Response.FarPlanMeters,
		}),

		manager:  asr.NewManager(opts.Provider),
		speaker:  speaker,
		cue:      cuePlayer,
		recorder: opts.Recorder,

		criticalScore: criticalScore,
		startedAt:     time.Now(),
		lastState:     voice.StateIdle,
	}

	// The local-only guarantee is the privacy gate: without it voice
	// interaction stays off no matter what else works.
	capability, ok := e.manager.Capability()
	switch {
	case !ok:
		logger.WarnTag("SESSION", "no recognizer configured; voice questions disabled")
	case !capability.LocalOnly:
		logger.WarnTag("SESSION", "recognizer %q is not local-only; voice questions disabled", capability.Name)
	default:
		e.capable.Store(true)
		e.enabled.Store(true)
	}

	e.policy = asr.NewRetryPolicy(sched,
		cfg.Engine.Retry.MaxStartFailures,
		cfg.Engine.Retry.RetryDelay(),
		asr.RetryHooks{
			Retry:     e.onPolicyRetry,
			Recheck:   e.probeRecognizer,
			Recovered: e.onPolicyRecovered,
			Disabled:  e.onPolicyDisabled,
		})

	e.session = voice.NewSession(voice.Config{
		SettleDelay:      cfg.Engine.Voice.SettleDelay(),
		PrimingFloor:     cfg.Engine.Voice.PrimingFloor(),
		ResumeDelay:      cfg.Engine.Voice.ResumeDelay(),
		QuietWindow:      cfg.Engine.Voice.QuietWindow(),
		EmergencyTimeout: cfg.Engine.Voice.EmergencyTimeout(),
	}, voice.Deps{
		Recognizer: e.manager,
		Speaker:    speaker,
		Cue:        cuePlayer,
		Answer:     e.answer,
		Scheduler:  sched,
		Logger:     logger,
		Hooks: voice.Hooks{
			Notify:     e.onSessionState,
			OnFinished: e.onSessionFinished,
		},
	})

	if cfg.Engine.Activation.Enabled && cfg.Engine.Activation.Phrase != "" {
		e.activation = newActivation(e, cfg.Engine.Activation.Phrase)
		logger.InfoTag("SESSION", "activation listening enabled, phrase %q", cfg.Engine.Activation.Phrase)
	}

	if e.recorder != nil {
		if err := bus.SubscribeAsync(eventbus.EventQuestionAnswered, e.recordAnswered, false); err != nil {
			logger.WarnTag("STORE", "history subscription failed: %v", err)
		}
	}

	return e, nil
}

func lexiconExtras(cfg config.LexiconConfig) []lexicon.Entry {
	entries := make([]lexicon.Entry, 0, len(cfg.Extra))
	for _, e := range cfg.Extra {
		entries = append(entries, lexicon.Entry{Label: e.Label, Synonyms: e.Synonyms})
	}
	return entries
}

// AttachDeviceSink hands the connected device to every output consumer.
// In activation mode a device also means audio ingress, so watching
// starts here.
func (e *Engine) AttachDeviceSink(sink DeviceSink) {
	if host, ok := e.speaker.(ttsinter.SinkHost); ok {
		host.SetSink(sink)
	}
	e.cue.SetSink(sink)
	if e.activation != nil && sink != nil {
		go e.activation.begin()
	}
}

// DetachDeviceSink drops the device. A live question is stopped because
// its audio source is gone.
func (e *Engine) DetachDeviceSink() {
	if host, ok := e.speaker.(ttsinter.SinkHost); ok {
		host.SetSink(nil)
	}
	e.cue.SetSink(nil)
	if e.activation != nil {
		e.activation.suspend()
	}
	e.session.Stop()
}

// FeedAudio forwards device PCM to the recognizer while a capture is
// open. Feed errors are the provider's to report through its listener.
func (e *Engine) FeedAudio(pcm []byte) {
	if err := e.manager.Feed(pcm); err != nil {
		e.logger.DebugTag("ASR", "audio frame dropped: %v", err)
	}
}

// Stop forces any live question session back to idle.
func (e *Engine) Stop() {
	e.session.Stop()
}

func (e *Engine) InteractionEnabled() bool {
	return e.enabled.Load() && e.capable.Load()
}

func (e *Engine) IsListening() bool {
	return e.session.IsListening()
}

func (e *Engine) IsWaitingForQuestion() bool {
	return e.session.IsWaitingForQuestion()
}

func (e *Engine) LastRecognizedText() string {
	return e.session.LastRecognizedText()
}

// IsReadyForQuestion reports whether a gesture right now would open a
// session: interaction on, recognizer capable, nothing in flight and the
// retry policy not holding.
func (e *Engine) IsReadyForQuestion() bool {
	return e.InteractionEnabled() &&
		e.session.State() == voice.StateIdle &&
		e.policy.CanStart()
}

// Status collects the control-API snapshot.
func (e *Engine) Status() Status {
	capability, _ := e.manager.Capability()
	objects, at := e.holder.Snapshot()

	var ageMs int64
	if !at.IsZero() {
		ageMs = time.Since(at).Milliseconds()
	}

	return Status{
		State:              e.session.State().String(),
		Listening:          e.session.IsListening(),
		WaitingForQuestion: e.session.IsWaitingForQuestion(),
		Ready:              e.IsReadyForQuestion(),
		InteractionEnabled: e.InteractionEnabled(),
		Recovering:         e.policy.IsRecovering(),
		Activation:         e.activation != nil,
		LastTranscript:     e.session.LastRecognizedText(),
		Recognizer:         capability.Name,
		LocalOnly:          capability.LocalOnly,
		SnapshotObjects:    len(objects),
		SnapshotAgeMs:      ageMs,
		Answered:           e.answered.Load(),
		UptimeS:            int64(time.Since(e.startedAt).Seconds()),
	}
}

// CheckCapability probes the recognizer end to end and re-enables voice
// interaction when the probe passes. It is the only way back from the
// disabled state. The probe is skipped while a question is in flight.
func (e *Engine) CheckCapability(ctx context.Context) bool {
	capability, ok := e.manager.Capability()
	if !ok || !capability.LocalOnly {
		return false
	}
	if e.session.State() != voice.StateIdle && e.session.State() != voice.StateRecovering {
		return e.InteractionEnabled()
	}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	err := e.manager.Prime(probeCtx)
	if resetErr := e.manager.Reset(); resetErr != nil {
		e.logger.DebugTag("ASR", "probe reset: %v", resetErr)
	}
	if err != nil {
		e.logger.WarnTag("ASR", "capability check failed: %v", err)
		return false
	}

	e.capable.Store(true)
	if !e.enabled.Swap(true) {
		e.logger.InfoTag("SESSION", "voice interaction re-enabled")
	}
	e.policy.ExternalRecheck(true)
	e.session.SetRecovering(false)
	if e.activation != nil {
		go e.activation.begin()
	}
	return true
}

// probeRecognizer is the retry policy's recovery recheck.
func (e *Engine) probeRecognizer() bool {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	if err := e.manager.Prime(ctx); err != nil {
		e.logger.WarnTag("ASR", "recovery probe failed: %v", err)
		return false
	}
	if err := e.manager.Reset(); err != nil {
		e.logger.DebugTag("ASR", "probe reset: %v", err)
	}
	return true
}

func (e *Engine) onPolicyRetry() {
	if e.activation != nil {
		go e.activation.begin()
	}
}

func (e *Engine) onPolicyRecovered() {
	e.logger.InfoTag("ASR", "recognizer recovered")
	e.session.SetRecovering(false)
	if e.activation != nil {
		go e.activation.begin()
	}
}

func (e *Engine) onPolicyDisabled() {
	e.disableInteraction("recognizer unreachable after the recovery probe", true)
}

// reportStartFailure feeds the policy and mirrors its recovery hold into
// the session so starts are refused from one place.
func (e *Engine) reportStartFailure() {
	e.policy.OnStartFailure()
	if e.policy.IsRecovering() {
		e.logger.WarnTag("ASR", "start failures exhausted; holding for recovery")
		e.session.SetRecovering(true)
	}
}

// disableInteraction turns voice questions off until CheckCapability
// passes. speak selects whether the user is told now; session failures
// have already spoken their apology.
func (e *Engine) disableInteraction(reason string, speak bool) {
	if !e.enabled.Swap(false) {
		return
	}
	e.logger.WarnTag("SESSION", "voice interaction disabled: %s", reason)
	if speak {
		e.speakAsync(msgUnavailable)
	}
	e.bus.Publish(eventbus.EventSystemError, eventbus.SystemEventData{
		Level:   "warn",
		Message: "voice interaction disabled: " + reason,
	})
}

func (e *Engine) speakAsync(text string) {
	go func() {
		if err := e.speaker.Speak(text); err != nil {
			e.logger.DebugTag("SESSION", "status message not spoken: %v", err)
		}
	}()
}

// Close releases the session, the watcher and the recognizer. The
// recorder is owned by the caller.
func (e *Engine) Close() {
	if e.activation != nil {
		e.activation.close()
	}
	e.session.Close()
	e.policy.Stop()
	if err := e.manager.Close(); err != nil {
		e.logger.WarnTag("ASR", "recognizer close: %v", err)
	}
}
