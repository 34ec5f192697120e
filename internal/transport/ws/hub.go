package ws

import (
	"sync"

	"github.com/SamyKr/VisuAI-sub000/internal/platform/logging"
)

// Hub holds the single device slot. The engine serves one device at a
// time; a second connection is refused until the first releases.
type Hub struct {
	logger *logging.Logger

	mu     sync.Mutex
	active *Session
}

// NewHub builds a fresh device hub.
func NewHub(logger *logging.Logger) *Hub {
	return &Hub{
		logger: logger,
	}
}

// Register claims the device slot for the session. It reports false when
// another session already owns it.
func (h *Hub) Register(session *Session) bool {
	if session == nil {
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.active != nil {
		h.logger.WarnTag("WS", "device slot busy: %s refused while %s is active",
			session.ID(), h.active.ID())
		return false
	}
	h.active = session
	return true
}

// Unregister releases the device slot if the session still owns it.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.active != nil && h.active.ID() == id {
		h.active = nil
	}
}

// CloseAll terminates the active session.
func (h *Hub) CloseAll(reason error) {
	if reason == nil {
		reason = ErrSessionShutdown
	}

	h.mu.Lock()
	active := h.active
	h.active = nil
	h.mu.Unlock()

	if active != nil {
		active.Close(reason)
	}
}

// Counts exposes active client and session counts.
func (h *Hub) Counts() (clients int, sessions int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.active != nil {
		return 1, 1
	}
	return 0, 0
}
