package adapters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SamyKr/VisuAI-sub000/internal/domain/tts/inter"
	"github.com/SamyKr/VisuAI-sub000/internal/platform/logging"
)

func TestRegistryBuiltins(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{"device", "edge"}, r.Names())

	speaker, err := r.Create("device", inter.Config{}, nil)
	require.NoError(t, err)
	require.NotNil(t, speaker)

	speaker, err = r.Create("edge", inter.Config{Voice: "en-GB-SoniaNeural"}, nil)
	require.NoError(t, err)
	require.NotNil(t, speaker)
}

func TestRegistryUnknownType(t *testing.T) {
	r := NewRegistry()
	_, err := r.Create("sapi", inter.Config{}, nil)
	assert.Error(t, err)
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()

	err := r.Register("custom", func(cfg inter.Config, logger *logging.Logger) (inter.Speaker, error) {
		return nil, nil
	})
	require.NoError(t, err)

	err = r.Register("custom", func(cfg inter.Config, logger *logging.Logger) (inter.Speaker, error) {
		return nil, nil
	})
	assert.Error(t, err)

	assert.Error(t, r.Register("device", nil))
}
