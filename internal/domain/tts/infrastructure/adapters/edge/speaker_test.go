package edge

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SamyKr/VisuAI-sub000/internal/domain/tts/inter"
)

type recordSink struct {
	speaks   []string
	controls []string
	audio    [][]byte
}

func (s *recordSink) SendSpeak(text string) error {
	s.speaks = append(s.speaks, text)
	return nil
}

func (s *recordSink) SendSpeakControl(action, reason string) error {
	s.controls = append(s.controls, action+":"+reason)
	return nil
}

func (s *recordSink) SendAudio(audio []byte) error {
	s.audio = append(s.audio, audio)
	return nil
}

func newTestSpeaker(t *testing.T, synth func(voice, text string) ([]byte, error)) (*Speaker, *recordSink) {
	t.Helper()
	speaker, err := New(inter.Config{Voice: "en-US-AriaNeural"}, nil)
	require.NoError(t, err)
	speaker.synth = synth
	sink := &recordSink{}
	speaker.SetSink(sink)
	return speaker, sink
}

func TestSpeakerStreamsRenderedAudio(t *testing.T) {
	calls := 0
	speaker, sink := newTestSpeaker(t, func(voice, text string) ([]byte, error) {
		calls++
		assert.Equal(t, "en-US-AriaNeural", voice)
		return []byte("mp3:" + text), nil
	})

	require.NoError(t, speaker.Speak("you can cross"))
	require.Len(t, sink.audio, 1)
	assert.Equal(t, []byte("mp3:you can cross"), sink.audio[0])
	assert.Equal(t, 1, calls)
}

func TestSpeakerCachesRenderedUtterances(t *testing.T) {
	calls := 0
	speaker, sink := newTestSpeaker(t, func(voice, text string) ([]byte, error) {
		calls++
		return []byte("audio"), nil
	})

	require.NoError(t, speaker.Speak("wait before crossing"))
	require.NoError(t, speaker.Speak("wait before crossing"))

	assert.Equal(t, 1, calls, "second render should come from the cache")
	assert.Len(t, sink.audio, 2)
}

func TestSpeakerBreakerOpensAfterFailures(t *testing.T) {
	calls := 0
	speaker, _ := newTestSpeaker(t, func(voice, text string) ([]byte, error) {
		calls++
		return nil, errors.New("service down")
	})

	for i := 0; i < breakerFailures; i++ {
		assert.Error(t, speaker.Speak("anything"))
	}
	require.Equal(t, breakerFailures, calls)

	// Open breaker refuses without touching the service.
	assert.Error(t, speaker.Speak("anything"))
	assert.Equal(t, breakerFailures, calls)
}

func TestSpeakerWithoutSinkDropsOutput(t *testing.T) {
	speaker, err := New(inter.Config{}, nil)
	require.NoError(t, err)

	calls := 0
	speaker.synth = func(voice, text string) ([]byte, error) {
		calls++
		return []byte("audio"), nil
	}

	assert.NoError(t, speaker.Speak("nobody connected"))
	assert.Equal(t, 0, calls)
}

func TestSpeakerDefaultVoice(t *testing.T) {
	speaker, err := New(inter.Config{}, nil)
	require.NoError(t, err)
	assert.Equal(t, defaultVoice, speaker.voice)
}

func TestSpeakerControlFrames(t *testing.T) {
	speaker, sink := newTestSpeaker(t, nil)

	speaker.InterruptAndStop("question started")
	speaker.Resume()

	assert.Equal(t, []string{"interrupt:question started", "resume:"}, sink.controls)
}

func TestAudioCacheExpiry(t *testing.T) {
	cache := newAudioCache(2, 10*time.Millisecond)

	cache.set("a", []byte{1})
	assert.Equal(t, []byte{1}, cache.get("a"))

	time.Sleep(20 * time.Millisecond)
	assert.Nil(t, cache.get("a"))
}

func TestAudioCacheEvictsOldest(t *testing.T) {
	cache := newAudioCache(2, time.Minute)

	cache.set("a", []byte{1})
	cache.set("b", []byte{2})
	cache.set("c", []byte{3})

	kept := 0
	for _, key := range []string{"a", "b", "c"} {
		if cache.get(key) != nil {
			kept++
		}
	}
	assert.Equal(t, 2, kept)
	assert.NotNil(t, cache.get("c"), "newest entry must survive eviction")
}

func TestCircuitBreakerHalfOpenProbe(t *testing.T) {
	cb := newCircuitBreaker(2, 10*time.Millisecond)

	cb.recordFailure()
	cb.recordFailure()
	require.True(t, cb.open())

	time.Sleep(20 * time.Millisecond)
	assert.False(t, cb.open(), "window elapsed, one probe allowed")

	cb.recordSuccess()
	assert.False(t, cb.open())
}
