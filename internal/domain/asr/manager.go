package asr

import (
	"context"
	"sync"

	"github.com/SamyKr/VisuAI-sub000/internal/domain/asr/inter"
	"github.com/SamyKr/VisuAI-sub000/internal/platform/errors"
)

// Manager owns the configured recognizer and guards every call against
// a missing provider, so the engine can treat "no recognizer" as a
// capability problem instead of a nil dereference.
type Manager struct {
	mu       sync.RWMutex
	provider inter.Provider
}

func NewManager(provider inter.Provider) *Manager {
	return &Manager{provider: provider}
}

func (m *Manager) SetProvider(provider inter.Provider) {
	m.mu.Lock()
	m.provider = provider
	m.mu.Unlock()
}

func (m *Manager) get() (inter.Provider, error) {
	m.mu.RLock()
	provider := m.provider
	m.mu.RUnlock()

	if provider == nil {
		return nil, errors.NewCode(errors.CodeCapabilityUnavailable,
			"asr.manager", "no recognizer configured")
	}
	return provider, nil
}

func (m *Manager) Prime(ctx context.Context) error {
	provider, err := m.get()
	if err != nil {
		return err
	}
	return provider.Prime(ctx)
}

func (m *Manager) BeginCapture() error {
	provider, err := m.get()
	if err != nil {
		return err
	}
	return provider.BeginCapture()
}

func (m *Manager) EndCapture() error {
	provider, err := m.get()
	if err != nil {
		return err
	}
	return provider.EndCapture()
}

func (m *Manager) Feed(pcm []byte) error {
	provider, err := m.get()
	if err != nil {
		return err
	}
	return provider.Feed(pcm)
}

func (m *Manager) SetListener(listener inter.Listener) {
	m.mu.RLock()
	provider := m.provider
	m.mu.RUnlock()

	if provider != nil {
		provider.SetListener(listener)
	}
}

func (m *Manager) Reset() error {
	m.mu.RLock()
	provider := m.provider
	m.mu.RUnlock()

	if provider == nil {
		return nil
	}
	return provider.Reset()
}

// Capability returns the recognizer's capability report. The second
// return is false when no recognizer is configured at all.
func (m *Manager) Capability() (inter.Capability, bool) {
	m.mu.RLock()
	provider := m.provider
	m.mu.RUnlock()

	if provider == nil {
		return inter.Capability{}, false
	}
	return provider.Info(), true
}

func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.provider == nil {
		return nil
	}
	err := m.provider.Close()
	m.provider = nil
	return err
}
