package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	evbus "github.com/asaskevich/EventBus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	asrinter "github.com/SamyKr/VisuAI-sub000/internal/domain/asr/inter"
	"github.com/SamyKr/VisuAI-sub000/internal/domain/eventbus"
	"github.com/SamyKr/VisuAI-sub000/internal/domain/history"
	"github.com/SamyKr/VisuAI-sub000/internal/domain/history/model"
	"github.com/SamyKr/VisuAI-sub000/internal/domain/history/store"
	"github.com/SamyKr/VisuAI-sub000/internal/domain/scene"
	"github.com/SamyKr/VisuAI-sub000/internal/platform/clock"
	"github.com/SamyKr/VisuAI-sub000/internal/platform/config"
	platerr "github.com/SamyKr/VisuAI-sub000/internal/platform/errors"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

type fakeProvider struct {
	mu        sync.Mutex
	listener  asrinter.Listener
	localOnly bool
	primeErr  error
	beginErr  error
	primed    int
	began     int
	ended     int
	reset     int
	fed       int
	closed    bool
}

func (p *fakeProvider) Prime(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.primed++
	return p.primeErr
}

func (p *fakeProvider) BeginCapture() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.began++
	return p.beginErr
}

func (p *fakeProvider) EndCapture() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ended++
	return nil
}

func (p *fakeProvider) Feed(pcm []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fed++
	return nil
}

func (p *fakeProvider) SetListener(listener asrinter.Listener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listener = listener
}

func (p *fakeProvider) Reset() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset++
	return nil
}

func (p *fakeProvider) Info() asrinter.Capability {
	p.mu.Lock()
	defer p.mu.Unlock()
	return asrinter.Capability{
		Name:       "fake",
		LocalOnly:  p.localOnly,
		SampleRate: 16000,
		Channels:   1,
		Language:   "en",
	}
}

func (p *fakeProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakeProvider) setPrimeErr(err error) {
	p.mu.Lock()
	p.primeErr = err
	p.mu.Unlock()
}

func (p *fakeProvider) setBeginErr(err error) {
	p.mu.Lock()
	p.beginErr = err
	p.mu.Unlock()
}

func (p *fakeProvider) Listener() asrinter.Listener {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.listener
}

func (p *fakeProvider) counts() (primed, began, ended, fed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.primed, p.began, p.ended, p.fed
}

func (p *fakeProvider) begins() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.began
}

type fakeSpeaker struct {
	mu         sync.Mutex
	interrupts int
	resumes    int
	spoken     chan string
}

func newFakeSpeaker() *fakeSpeaker {
	return &fakeSpeaker{spoken: make(chan string, 8)}
}

func (s *fakeSpeaker) InterruptAndStop(reason string) {
	s.mu.Lock()
	s.interrupts++
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

type engineFixture struct {
	eng      *Engine
	cfg      *config.Config
	sched    *clock.Manual
	provider *fakeProvider
	speaker  *fakeSpeaker
	bus      evbus.Bus
	recorder *history.Recorder
	store    store.Store
	states   chan string
}

func newEngineFixture(t *testing.T, mutate func(*config.Config)) *engineFixture {
	t.Helper()

	f := &engineFixture{
		sched:    clock.NewManual(),
		provider: &fakeProvider{localOnly: true},
		speaker:  newFakeSpeaker(),
		bus:      eventbus.New(),
		states:   make(chan string, 64),
	}

	cfg := config.DefaultConfig()
	cfg.Engine.Activation.Enabled = false
	if mutate != nil {
		mutate(cfg)
	}
	f.cfg = cfg

	require.NoError(t, f.bus.Subscribe(eventbus.EventSessionState, func(data eventbus.SessionEventData) {
		f.states <- data.State
	}))

	f.store = store.NewMemory(store.Config{Limit: 50, TTL: time.Hour})
	recorder, err := history.NewRecorder(history.Options{
		Store:     f.store,
		Logger:    nopLogger{},
		SessionID: "test",
	})
	require.NoError(t, err)
	f.recorder = recorder
	t.Cleanup(func() { _ = recorder.Close() })

	eng, err := New(Options{
		Config:    cfg,
		Bus:       f.bus,
		Scheduler: f.sched,
		Provider:  f.provider,
		Speaker:   f.speaker,
		Recorder:  recorder,
	})
	require.NoError(t, err)
	f.eng = eng
	t.Cleanup(eng.Close)
	return f
}

func (f *engineFixture) waitBusState(t *testing.T, want string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case st := <-f.states:
			if st == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for state %q", want)
		}
	}
}

func (f *engineFixture) waitSpoken(t *testing.T) string {
	t.Helper()
	select {
	case text := <-f.speaker.spoken:
		return text
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for spoken output")
		return ""
	}
}

func ptr(v float64) *float64 { return &v }

func carSnapshot() []scene.TrackedObject {
	return []scene.TrackedObject{
		{ID: 1, Label: "car", Score: 0.9, Box: scene.Rect{X: 0.4, Y: 0.4, W: 0.2, H: 0.2}, Distance: ptr(1.5)},
	}
}

func TestAskTextAnswersFromSnapshot(t *testing.T) {
	f := newEngineFixture(t, nil)
	f.eng.UpdateImportantObjects(carSnapshot())

	ans, err := f.eng.AskText("is there a car")
	require.NoError(t, err)
	assert.Equal(t, "presence", ans.Intent)
	assert.Equal(t, "car", ans.Target)
	assert.Equal(t, "Yes, there is one car, right in front of you.", ans.Response)
	assert.Equal(t, ans.Response, f.waitSpoken(t), "text answers are spoken too")

	_, err = f.eng.AskText("   ")
	require.Error(t, err)
}

func TestAskTextEmptyScene(t *testing.T) {
	f := newEngineFixture(t, nil)

	ans, err := f.eng.AskText("is there a dog")
	require.NoError(t, err)
	assert.Equal(t, "No, I don't see any dog right now.", ans.Response)
}

func TestVoiceQuestionEndToEnd(t *testing.T) {
	f := newEngineFixture(t, nil)
	f.eng.UpdateImportantObjects(carSnapshot())

	f.eng.StartSingleQuestion()
	f.waitBusState(t, "interrupting_output")

	f.sched.Advance(300 * time.Millisecond)
	f.waitBusState(t, "priming")
	require.Eventually(t, func() bool { return f.sched.Pending() == 2 },
		2*time.Second, 2*time.Millisecond)

	// Cue is disabled, so the priming floor applies.
	f.sched.Advance(500 * time.Millisecond)
	f.waitBusState(t, "listening")
	assert.True(t, f.eng.IsListening())

	f.eng.FeedAudio([]byte{0x01, 0x02})

	f.provider.Listener().OnFinal("is there a car")
	f.waitBusState(t, "responding")

	f.sched.Advance(300 * time.Millisecond)
	f.waitBusState(t, "idle")

	answer := f.waitSpoken(t)
	assert.Equal(t, "Yes, there is one car, right in front of you.", answer)

	primed, began, ended, fed := f.provider.counts()
	assert.Equal(t, 1, primed)
	assert.Equal(t, 1, began)
	assert.Equal(t, 1, ended)
	assert.Equal(t, 1, fed)

	// One history row with what was actually asked and spoken.
	require.Eventually(t, func() bool {
		n, err := f.recorder.Count(context.Background())
		return err == nil && n == 1
	}, 2*time.Second, 5*time.Millisecond)

	recent, err := f.recorder.Recent(context.Background(), 1)
	require.NoError(t, err)
	rec := recent[0]
	assert.Equal(t, "is there a car", rec.Question)
	assert.Equal(t, "presence", rec.Intent)
	assert.Equal(t, "car", rec.Target)
	assert.Equal(t, answer, rec.Answer)
	assert.Equal(t, model.OutcomeAnswered, rec.Outcome)
	assert.Equal(t, []string{"car"}, rec.Labels)
}

func TestSecondGestureIgnoredWhileBusy(t *testing.T) {
	f := newEngineFixture(t, nil)

	f.eng.StartSingleQuestion()
	f.waitBusState(t, "interrupting_output")

	f.eng.StartSingleQuestion()
	assert.Equal(t, "interrupting_output", f.eng.Status().State)
	assert.Empty(t, f.speaker.spoken, "a busy gesture surfaces nothing")
}

func TestRefusesWithoutLocalRecognizer(t *testing.T) {
	provider := &fakeProvider{localOnly: false}
	speaker := newFakeSpeaker()
	cfg := config.DefaultConfig()
	cfg.Engine.Activation.Enabled = false

	eng, err := New(Options{
		Config:    cfg,
		Bus:       eventbus.New(),
		Scheduler: clock.NewManual(),
		Provider:  provider,
		Speaker:   speaker,
	})
	require.NoError(t, err)
	t.Cleanup(eng.Close)

	assert.False(t, eng.InteractionEnabled())
	assert.False(t, eng.IsReadyForQuestion())

	eng.StartSingleQuestion()
	select {
	case text := <-speaker.spoken:
		assert.Equal(t, msgUnavailable, text)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the unavailable message")
	}

	primed, began, _, _ := provider.counts()
	assert.Zero(t, primed, "a non-local recognizer is never primed")
	assert.Zero(t, began)
	assert.Equal(t, "idle", eng.Status().State)
}

func TestNoRecognizerStillAnswersText(t *testing.T) {
	speaker := newFakeSpeaker()
	eng, err := New(Options{
		Config:    config.DefaultConfig(),
		Bus:       eventbus.New(),
		Scheduler: clock.NewManual(),
		Speaker:   speaker,
	})
	require.NoError(t, err)
	t.Cleanup(eng.Close)

	assert.False(t, eng.InteractionEnabled())

	eng.UpdateImportantObjects(carSnapshot())
	ans, err := eng.AskText("how many cars")
	require.NoError(t, err)
	assert.Equal(t, "I can see one car.", ans.Response)
}

func TestCapabilityErrorDisablesInteraction(t *testing.T) {
	f := newEngineFixture(t, nil)
	f.provider.setPrimeErr(platerr.NewCode(platerr.CodeCapabilityUnavailable, "test", "recognizer gone"))

	f.eng.StartSingleQuestion()
	f.waitBusState(t, "interrupting_output")
	f.sched.Advance(300 * time.Millisecond)
	f.waitBusState(t, "responding")
	f.sched.Advance(300 * time.Millisecond)
	f.waitBusState(t, "idle")
	assert.Equal(t, msgUnavailable, f.waitSpoken(t))

	require.Eventually(t, func() bool { return !f.eng.InteractionEnabled() },
		2*time.Second, 2*time.Millisecond)

	// Further gestures are refused without touching the recognizer.
	f.eng.StartSingleQuestion()
	assert.Equal(t, msgUnavailable, f.waitSpoken(t))
	primed, _, _, _ := f.provider.counts()
	assert.Equal(t, 1, primed)

	// An external capability check is the only way back.
	f.provider.setPrimeErr(nil)
	assert.True(t, f.eng.CheckCapability(context.Background()))
	assert.True(t, f.eng.InteractionEnabled())
	assert.True(t, f.eng.IsReadyForQuestion())
}

func TestStatusSnapshot(t *testing.T) {
	f := newEngineFixture(t, nil)

	st := f.eng.Status()
	assert.Equal(t, "idle", st.State)
	assert.True(t, st.Ready)
	assert.True(t, st.InteractionEnabled)
	assert.True(t, st.LocalOnly)
	assert.Equal(t, "fake", st.Recognizer)
	assert.False(t, st.Activation)
	assert.Equal(t, 0, st.SnapshotObjects)

	f.eng.UpdateImportantObjects(carSnapshot())
	assert.Equal(t, 1, f.eng.Status().SnapshotObjects)
}

func TestUpdateImportantObjectsPublishes(t *testing.T) {
	f := newEngineFixture(t, nil)

	scenes := make(chan eventbus.SceneEventData, 4)
	require.NoError(t, f.bus.Subscribe(eventbus.EventSceneUpdated, func(data eventbus.SceneEventData) {
		scenes <- data
	}))

	f.eng.UpdateImportantObjects([]scene.TrackedObject{
		{ID: 1, Label: "car", Score: 0.9, Box: scene.Rect{X: 0.1, Y: 0.1, W: 0.1, H: 0.1}},
		{ID: 2, Label: "bench", Score: 0.4, Box: scene.Rect{X: 0.8, Y: 0.1, W: 0.1, H: 0.1}},
	})

	select {
	case data := <-scenes:
		assert.Equal(t, 2, data.ObjectCount)
		assert.Equal(t, 1, data.CriticalCount)
	case <-time.After(time.Second):
		t.Fatal("scene event not published")
	}
}

func TestSplitAfterPhrase(t *testing.T) {
	cases := []struct {
		text   string
		phrase string
		rest   string
		ok     bool
	}{
		{"hey assistant is there a car", "hey assistant", "is there a car", true},
		{"hey assistant", "hey assistant", "", true},
		{"okay hey assistant how many cars", "hey assistant", "how many cars", true},
		{"nothing relevant here", "hey assistant", "", false},
		{"sassistant now", "assistant", "", false},
		{"", "hey assistant", "", false},
	}
	for _, tc := range cases {
		rest, ok := splitAfterPhrase(tc.text, tc.phrase)
		assert.Equal(t, tc.ok, ok, tc.text)
		assert.Equal(t, tc.rest, rest, tc.text)
	}
}

func activationConfig(cfg *config.Config) {
	cfg.Engine.Activation.Enabled = true
	cfg.Engine.Activation.Phrase = "hey assistant"
}

func TestActivationDirectAnswer(t *testing.T) {
	f := newEngineFixture(t, activationConfig)
	f.eng.UpdateImportantObjects(carSnapshot())

	f.eng.activation.begin()
	require.Equal(t, 1, f.provider.begins())

	// Transcripts without the phrase are ignored but keep the watch open.
	f.provider.Listener().OnFinal("some background chatter")
	assert.Equal(t, 1, f.provider.begins())

	f.provider.Listener().OnFinal("hey assistant is there a car")
	assert.Equal(t, "Yes, there is one car, right in front of you.", f.waitSpoken(t))

	// The watch reopens once the answer is out.
	require.Eventually(t, func() bool { return f.provider.begins() == 2 },
		2*time.Second, 2*time.Millisecond)
	assert.Equal(t, int64(1), f.eng.Status().Answered)
}

func TestActivationPhraseOpensSession(t *testing.T) {
	f := newEngineFixture(t, activationConfig)

	f.eng.activation.begin()
	require.Equal(t, 1, f.provider.begins())

	f.provider.Listener().OnFinal("hey assistant")
	f.waitBusState(t, "interrupting_output")
	assert.True(t, f.eng.IsWaitingForQuestion())

	f.eng.Stop()
	f.waitBusState(t, "idle")

	// Watching resumes after the session lands back in idle.
	require.Eventually(t, func() bool { return f.provider.begins() == 2 },
		2*time.Second, 2*time.Millisecond)
}

func TestActivationStartFailuresEnterRecovery(t *testing.T) {
	f := newEngineFixture(t, activationConfig)
	f.provider.setPrimeErr(platerr.NewCode(platerr.CodeRequestCreation, "test", "backend down"))

	f.eng.activation.begin()
	assert.Equal(t, 1, f.eng.policy.Failures())

	f.sched.Advance(2 * time.Second)
	require.Eventually(t, func() bool { return f.eng.policy.Failures() == 2 },
		2*time.Second, 2*time.Millisecond)

	f.sched.Advance(2 * time.Second)
	require.Eventually(t, func() bool { return f.eng.policy.IsRecovering() },
		2*time.Second, 2*time.Millisecond)
	f.waitBusState(t, "recovering")
	assert.False(t, f.eng.IsReadyForQuestion())

	// The recovery probe passes and the engine comes back.
	f.provider.setPrimeErr(nil)
	f.sched.Advance(6 * time.Second)
	f.waitBusState(t, "idle")
	require.Eventually(t, func() bool { return f.eng.IsReadyForQuestion() },
		2*time.Second, 2*time.Millisecond)
	require.Eventually(t, func() bool { return f.provider.begins() > 0 },
		2*time.Second, 2*time.Millisecond, "watching resumes after recovery")
}

// Capture failures inside a running session feed the same failure budget
// as watch failures. Once the hold is on, a gesture must not open a
// session even though the voice machine itself has landed back in idle.
func TestGestureRefusedDuringRecoveryHold(t *testing.T) {
	f := newEngineFixture(t, activationConfig)
	f.provider.setBeginErr(platerr.NewCode(platerr.CodeRequestCreation, "test", "capture backend down"))

	// First session dies at capture start; the watch reopening attempt
	// afterwards fails the same way.
	f.eng.StartSingleQuestion()
	f.waitBusState(t, "interrupting_output")
	f.sched.Advance(300 * time.Millisecond)
	f.waitBusState(t, "priming")
	require.Eventually(t, func() bool { return f.sched.Pending() == 2 },
		2*time.Second, 2*time.Millisecond)
	f.sched.Advance(500 * time.Millisecond)
	f.waitBusState(t, "responding")
	f.sched.Advance(300 * time.Millisecond)
	f.waitBusState(t, "idle")
	require.Eventually(t, func() bool { return f.eng.policy.Failures() == 2 },
		2*time.Second, 2*time.Millisecond)

	// Second session spends the last failure and trips the hold.
	f.eng.StartSingleQuestion()
	f.waitBusState(t, "interrupting_output")
	f.sched.Advance(300 * time.Millisecond)
	f.waitBusState(t, "priming")
	require.Eventually(t, func() bool { return f.sched.Pending() == 3 },
		2*time.Second, 2*time.Millisecond, "retry, watchdog and priming timers armed")
	f.sched.Advance(500 * time.Millisecond)
	f.waitBusState(t, "responding")
	require.Eventually(t, func() bool { return f.eng.policy.IsRecovering() },
		2*time.Second, 2*time.Millisecond)
	f.sched.Advance(300 * time.Millisecond)
	f.waitBusState(t, "idle")

	// The machine is idle again but the hold is still on; the gesture
	// is rejected without touching the recognizer.
	began := f.provider.begins()
	f.eng.StartSingleQuestion()
	assert.Equal(t, "idle", f.eng.Status().State)
	assert.False(t, f.eng.IsWaitingForQuestion())
	assert.False(t, f.eng.IsReadyForQuestion())
	assert.Equal(t, began, f.provider.begins())

	// Once the recheck passes, gestures work again.
	f.provider.setBeginErr(nil)
	f.sched.Advance(6 * time.Second)
	require.Eventually(t, func() bool { return f.eng.IsReadyForQuestion() },
		2*time.Second, 2*time.Millisecond)
	f.eng.StartSingleQuestion()
	f.waitBusState(t, "interrupting_output")
}
