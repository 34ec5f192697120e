package scene

import (
	"sync/atomic"
	"time"
)

type snapshot struct {
	objects   []TrackedObject
	updatedAt time.Time
}

// Holder keeps the latest tracker snapshot. Updates replace the whole slice;
// readers always see one consistent snapshot via an atomic pointer swap.
type Holder struct {
	current atomic.Pointer[snapshot]
}

func NewHolder() *Holder {
	h := &Holder{}
	h.current.Store(&snapshot{})
	return h
}

// Update replaces the snapshot. The input is copied so the caller may reuse
// its slice.
func (h *Holder) Update(objects []TrackedObject) {
	copied := make([]TrackedObject, len(objects))
	copy(copied, objects)
	h.current.Store(&snapshot{
		objects:   copied,
		updatedAt: time.Now(),
	})
}

// Snapshot returns the current objects and when they arrived. The returned
// slice is shared and must be treated as read-only.
func (h *Holder) Snapshot() ([]TrackedObject, time.Time) {
	s := h.current.Load()
	return s.objects, s.updatedAt
}

// Age reports how old the current snapshot is. Zero when nothing has been
// received yet.
func (h *Holder) Age() time.Duration {
	s := h.current.Load()
	if s.updatedAt.IsZero() {
		return 0
	}
	return time.Since(s.updatedAt)
}

// Count returns the number of objects in the current snapshot.
func (h *Holder) Count() int {
	return len(h.current.Load().objects)
}
