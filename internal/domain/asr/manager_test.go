package asr

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SamyKr/VisuAI-sub000/internal/domain/asr/inter"
	platerr "github.com/SamyKr/VisuAI-sub000/internal/platform/errors"
)

type nopProvider struct {
	primed   bool
	captures int
	fed      int
	closed   bool
}

func (p *nopProvider) Prime(ctx context.Context) error { p.primed = true; return nil }
func (p *nopProvider) BeginCapture() error             { p.captures++; return nil }
func (p *nopProvider) EndCapture() error               { return nil }
func (p *nopProvider) Feed(pcm []byte) error           { p.fed += len(pcm); return nil }
func (p *nopProvider) SetListener(inter.Listener)      {}
func (p *nopProvider) Reset() error                    { return nil }
func (p *nopProvider) Info() inter.Capability          { return inter.Capability{Name: "nop"} }
func (p *nopProvider) Close() error                    { p.closed = true; return nil }

func TestManagerWithoutProvider(t *testing.T) {
	m := NewManager(nil)

	err := m.Prime(context.Background())
	require.Error(t, err)
	assert.True(t, platerr.IsCode(err, platerr.CodeCapabilityUnavailable))

	assert.Error(t, m.BeginCapture())
	assert.Error(t, m.Feed([]byte{0x01}))

	_, ok := m.Capability()
	assert.False(t, ok)

	assert.NoError(t, m.Reset())
	assert.NoError(t, m.Close())
}

func TestManagerDelegates(t *testing.T) {
	provider := &nopProvider{}
	m := NewManager(provider)

	require.NoError(t, m.Prime(context.Background()))
	require.NoError(t, m.BeginCapture())
	require.NoError(t, m.Feed([]byte{0x01, 0x02}))

	cap, ok := m.Capability()
	require.True(t, ok)
	assert.Equal(t, "nop", cap.Name)

	require.NoError(t, m.Close())
	assert.True(t, provider.closed)

	// Close drops the provider for good.
	assert.Error(t, m.BeginCapture())
}
