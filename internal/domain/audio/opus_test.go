package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	opus "gopkg.in/hraban/opus.v2"
)

func TestNewOpusDecoderDefaultConfig(t *testing.T) {
	decoder, err := NewOpusDecoder(nil)

	require.NoError(t, err)
	require.NotNil(t, decoder)
	assert.Equal(t, 16000, decoder.config.SampleRate)
	assert.Equal(t, 1, decoder.config.MaxChannels)

	assert.NoError(t, decoder.Close())
}

func TestNewOpusDecoderCustomConfig(t *testing.T) {
	decoder, err := NewOpusDecoder(&OpusDecoderConfig{
		SampleRate:  48000,
		MaxChannels: 2,
	})

	require.NoError(t, err)
	assert.Equal(t, 48000, decoder.config.SampleRate)
	assert.Equal(t, 2, decoder.config.MaxChannels)

	assert.NoError(t, decoder.Close())
}

func TestOpusDecoderCloseIdempotent(t *testing.T) {
	decoder, err := NewOpusDecoder(nil)
	require.NoError(t, err)

	assert.NoError(t, decoder.Close())
	assert.NoError(t, decoder.Close())
}

func TestOpusDecoderDecodeEmptyData(t *testing.T) {
	decoder, err := NewOpusDecoder(nil)
	require.NoError(t, err)
	defer decoder.Close()

	result, err := decoder.Decode([]byte{})

	assert.NoError(t, err)
	assert.Nil(t, result)
}

func TestOpusDecoderDecodeAfterClose(t *testing.T) {
	decoder, err := NewOpusDecoder(nil)
	require.NoError(t, err)
	require.NoError(t, decoder.Close())

	_, err = decoder.Decode([]byte{0x01})
	assert.Error(t, err)
}

func TestOpusDecoderRoundTrip(t *testing.T) {
	encoder, err := opus.NewEncoder(16000, 1, opus.AppVoIP)
	require.NoError(t, err)

	// One 20ms frame of silence at 16kHz mono.
	frame := make([]int16, 320)
	packet := make([]byte, 1024)
	n, err := encoder.Encode(frame, packet)
	require.NoError(t, err)
	require.Greater(t, n, 0)

	decoder, err := NewOpusDecoder(nil)
	require.NoError(t, err)
	defer decoder.Close()

	pcm, err := decoder.Decode(packet[:n])
	require.NoError(t, err)
	assert.Equal(t, 640, len(pcm), "20ms at 16kHz mono is 320 samples, 2 bytes each")
}

func TestPCMBytesLittleEndian(t *testing.T) {
	out := pcmBytes([]int16{0x0102, -2})

	assert.Equal(t, []byte{0x02, 0x01, 0xFE, 0xFF}, out)
}
