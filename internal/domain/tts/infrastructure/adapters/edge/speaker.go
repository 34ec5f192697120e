package edge

import (
	"sync"
	"time"

	"github.com/wujunwei928/edge-tts-go/edge_tts"

	"github.com/SamyKr/VisuAI-sub000/internal/domain/tts/inter"
	"github.com/SamyKr/VisuAI-sub000/internal/platform/errors"
	"github.com/SamyKr/VisuAI-sub000/internal/platform/logging"
)

const (
	defaultVoice = "en-US-AriaNeural"

	cacheEntries = 256
	cacheTTL     = 30 * time.Minute

	breakerFailures = 5
	breakerWindow   = 30 * time.Second
)

// Speaker renders utterances server-side with the edge speech service
// and streams the MP3 bytes to the connected device. Rendered audio is
// cached; the engine repeats a small set of fixed phrases, so most
// utterances after warm-up never touch the network.
type Speaker struct {
	voice  string
	logger *logging.Logger

	mu   sync.RWMutex
	sink inter.Sink

	cache   *audioCache
	breaker *circuitBreaker

	// synth is swapped out in tests.
	synth func(voice, text string) ([]byte, error)
}

func New(cfg inter.Config, logger *logging.Logger) (*Speaker, error) {
	voice := cfg.Voice
	if voice == "" {
		voice = defaultVoice
	}
	return &Speaker{
		voice:   voice,
		logger:  logger,
		cache:   newAudioCache(cacheEntries, cacheTTL),
		breaker: newCircuitBreaker(breakerFailures, breakerWindow),
		synth:   synthesize,
	}, nil
}

func synthesize(voice, text string) ([]byte, error) {
	conn, err := edge_tts.NewCommunicate(text, edge_tts.SetVoice(voice))
	if err != nil {
		return nil, err
	}
	return conn.Stream()
}

// SetSink attaches the device connection; nil detaches it.
func (s *Speaker) SetSink(sink inter.Sink) {
	s.mu.Lock()
	s.sink = sink
	s.mu.Unlock()
}

func (s *Speaker) currentSink() inter.Sink {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sink
}

func (s *Speaker) InterruptAndStop(reason string) {
	sink := s.currentSink()
	if sink == nil {
		return
	}
	if err := sink.SendSpeakControl("interrupt", reason); err != nil {
		s.logger.WarnTag("TTS", "interrupt not delivered: %v", err)
	}
}

func (s *Speaker) Speak(text string) error {
	const op = "tts.edge.speak"

	if text == "" {
		return nil
	}
	sink := s.currentSink()
	if sink == nil {
		s.logger.DebugTag("TTS", "no device attached, dropping utterance")
		return nil
	}

	audio, err := s.render(text)
	if err != nil {
		return errors.Wrap(errors.KindVoice, op, "synthesis failed", err)
	}
	s.logger.InfoSpeak("streaming %d bytes of rendered audio", len(audio))
	return sink.SendAudio(audio)
}

func (s *Speaker) render(text string) ([]byte, error) {
	const op = "tts.edge.render"

	key := s.voice + "|" + text
	if audio := s.cache.get(key); audio != nil {
		s.logger.DebugTag("TTS", "cache hit (%d bytes)", len(audio))
		return audio, nil
	}

	if s.breaker.open() {
		return nil, errors.New(errors.KindVoice, op, "speech service unavailable, backing off")
	}

	start := time.Now()
	audio, err := s.synth(s.voice, text)
	if err != nil {
		s.breaker.recordFailure()
		s.logger.ErrorTag("TTS", "synthesis failed: %v", err)
		return nil, err
	}
	s.breaker.recordSuccess()
	s.logger.InfoTiming("edge synthesis took %v for %d chars", time.Since(start), len(text))

	s.cache.set(key, audio)
	return audio, nil
}

func (s *Speaker) Resume() {
	sink := s.currentSink()
	if sink == nil {
		return
	}
	if err := sink.SendSpeakControl("resume", ""); err != nil {
		s.logger.WarnTag("TTS", "resume not delivered: %v", err)
	}
}
