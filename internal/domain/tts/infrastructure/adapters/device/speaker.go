package device

import (
	"sync"

	"github.com/SamyKr/VisuAI-sub000/internal/domain/tts/inter"
	"github.com/SamyKr/VisuAI-sub000/internal/platform/logging"
)

// Speaker relays utterances to the connected device, which renders them
// with its on-device voice. The companion app owns volume, voice choice
// and audio focus; the server only tells it what to say.
type Speaker struct {
	logger *logging.Logger

	mu   sync.RWMutex
	sink inter.Sink
}

func New(logger *logging.Logger) *Speaker {
	return &Speaker{logger: logger}
}

// SetSink attaches the device connection. nil detaches it; output is
// then dropped until the next device connects.
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
	if text == "" {
		return nil
	}
	sink := s.currentSink()
	if sink == nil {
		s.logger.DebugTag("TTS", "no device attached, dropping utterance")
		return nil
	}
	s.logger.InfoSpeak("relaying utterance (%d chars)", len(text))
	return sink.SendSpeak(text)
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
