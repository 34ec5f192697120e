package audio

import (
	"encoding/binary"

	opus "gopkg.in/hraban/opus.v2"

	"github.com/SamyKr/VisuAI-sub000/internal/platform/errors"
)

const (
	defaultSampleRate  = 16000
	defaultMaxChannels = 1

	// Longest Opus frame is 120ms.
	maxFrameMillis = 120
)

// OpusDecoderConfig selects the PCM layout packets decode into. It must
// match what the recognizer expects to be fed.
type OpusDecoderConfig struct {
	SampleRate  int
	MaxChannels int
}

// OpusDecoder turns device Opus packets into 16-bit little-endian PCM.
// Not safe for concurrent use; the connection read loop owns it.
type OpusDecoder struct {
	config  *OpusDecoderConfig
	decoder *opus.Decoder
	frame   []int16
	closed  bool
}

func NewOpusDecoder(config *OpusDecoderConfig) (*OpusDecoder, error) {
	const op = "audio.opus.new"

	if config == nil {
		config = &OpusDecoderConfig{}
	}
	if config.SampleRate <= 0 {
		config.SampleRate = defaultSampleRate
	}
	if config.MaxChannels <= 0 {
		config.MaxChannels = defaultMaxChannels
	}

	decoder, err := opus.NewDecoder(config.SampleRate, config.MaxChannels)
	if err != nil {
		return nil, errors.Wrap(errors.KindDomain, op, "opus decoder init failed", err)
	}

	frameSamples := config.SampleRate * maxFrameMillis / 1000
	return &OpusDecoder{
		config:  config,
		decoder: decoder,
		frame:   make([]int16, frameSamples*config.MaxChannels),
	}, nil
}

// Decode decodes one Opus packet. Empty input decodes to nothing; the
// returned slice is freshly allocated and safe to retain.
func (d *OpusDecoder) Decode(data []byte) ([]byte, error) {
	const op = "audio.opus.decode"

	if d.closed {
		return nil, errors.New(errors.KindDomain, op, "decoder is closed")
	}
	if len(data) == 0 {
		return nil, nil
	}

	n, err := d.decoder.Decode(data, d.frame)
	if err != nil {
		return nil, errors.Wrap(errors.KindDomain, op, "opus packet decode failed", err)
	}
	return pcmBytes(d.frame[:n*d.config.MaxChannels]), nil
}

// Close releases the decoder. Safe to call more than once.
func (d *OpusDecoder) Close() error {
	d.closed = true
	d.decoder = nil
	return nil
}

// pcmBytes lays interleaved samples out as 16-bit little-endian PCM.
func pcmBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}
