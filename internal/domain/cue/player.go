package cue

import (
	"os"
	"sync"
	"time"

	mp3 "github.com/hajimehoshi/go-mp3"

	"github.com/SamyKr/VisuAI-sub000/internal/platform/errors"
	"github.com/SamyKr/VisuAI-sub000/internal/platform/logging"
)

// Sink asks the connected device to play the listen cue. The websocket
// session implements it.
type Sink interface {
	SendCue() error
}

// Config selects the cue asset.
type Config struct {
	Enabled bool
	Path    string
}

// Player owns the listen cue. The asset's duration is probed once at
// construction; Play reports it so the caller can hold the microphone
// open only after the cue has finished sounding.
type Player struct {
	logger   *logging.Logger
	enabled  bool
	duration time.Duration

	mu   sync.RWMutex
	sink Sink
}

func New(cfg Config, logger *logging.Logger) (*Player, error) {
	const op = "cue.new"

	if !cfg.Enabled {
		return newPlayer(false, 0, logger), nil
	}

	duration, err := probeDuration(cfg.Path)
	if err != nil {
		return nil, errors.Wrap(errors.KindConfig, op, "cue asset unreadable: "+cfg.Path, err)
	}
	logger.InfoTag("SESSION", "listen cue %s lasts %v", cfg.Path, duration)
	return newPlayer(true, duration, logger), nil
}

func newPlayer(enabled bool, duration time.Duration, logger *logging.Logger) *Player {
	return &Player{logger: logger, enabled: enabled, duration: duration}
}

// SetSink attaches the device connection; nil detaches it.
func (p *Player) SetSink(sink Sink) {
	p.mu.Lock()
	p.sink = sink
	p.mu.Unlock()
}

// Play asks the device to sound the cue and returns the cue's duration.
// The device write runs on its own goroutine; a stalled socket never
// stalls the caller. A disabled cue or a missing device reports a zero
// duration and the caller falls back to its priming floor.
func (p *Player) Play() (time.Duration, error) {
	if !p.enabled {
		return 0, nil
	}

	p.mu.RLock()
	sink := p.sink
	p.mu.RUnlock()
	if sink == nil {
		return 0, nil
	}

	go func() {
		if err := sink.SendCue(); err != nil {
			p.logger.WarnTag("SESSION", "cue not delivered: %v", err)
		}
	}()
	return p.duration, nil
}

// Duration reports the probed cue length without playing it.
func (p *Player) Duration() time.Duration {
	return p.duration
}

// probeDuration decodes the MP3 header chain to measure the asset.
func probeDuration(path string) (time.Duration, error) {
	const op = "cue.probe"

	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		return 0, err
	}
	if decoder.Length() <= 0 {
		return 0, errors.New(errors.KindConfig, op, "cue asset has no measurable length")
	}
	return durationFor(decoder.Length(), decoder.SampleRate()), nil
}

// durationFor converts a decoded byte count to wall time. The decoder
// always yields signed 16-bit stereo, 4 bytes per sample frame.
func durationFor(decodedBytes int64, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	seconds := float64(decodedBytes) / float64(sampleRate*4)
	return time.Duration(seconds * float64(time.Second))
}
