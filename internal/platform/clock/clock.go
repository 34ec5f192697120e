package clock

import "time"

// Timer is a cancellable delayed callback handle.
type Timer interface {
	// Cancel stops the callback from firing. It reports false when the
	// callback already ran or was cancelled before.
	Cancel() bool
}

// Scheduler schedules a callback after a delay. The engine never calls
// time.AfterFunc directly; injecting a Scheduler keeps every delayed
// transition cancellable and testable without real sleeps.
type Scheduler interface {
	Schedule(d time.Duration, fn func()) Timer
}

// Wall is the production scheduler backed by the runtime timer heap.
type Wall struct{}

func NewWall() *Wall {
	return &Wall{}
}

func (w *Wall) Schedule(d time.Duration, fn func()) Timer {
	return &wallTimer{t: time.AfterFunc(d, fn)}
}

type wallTimer struct {
	t *time.Timer
}

func (t *wallTimer) Cancel() bool {
	return t.t.Stop()
}
