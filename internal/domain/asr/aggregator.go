package asr

import (
	"strings"
	"sync"
	"time"

	"github.com/SamyKr/VisuAI-sub000/internal/domain/asr/inter"
	"github.com/SamyKr/VisuAI-sub000/internal/platform/clock"
	"github.com/SamyKr/VisuAI-sub000/internal/platform/errors"
)

// Aggregator collapses the partial/final/error stream of one listening
// phase into exactly one outcome. A fresh Aggregator is created for
// every phase; after the first outcome all further events are dropped.
//
// Outcome selection:
//   - a final transcript finalizes immediately;
//   - a partial transcript arms (or re-arms) the quiet timer, and the
//     timer expiring finalizes with the last partial;
//   - an error is suppressed when a partial was already heard, so a
//     half-captured question still gets answered.
type Aggregator struct {
	mu          sync.Mutex
	sched       clock.Scheduler
	quietWindow time.Duration
	deliver     func(text string, err error)

	quiet       clock.Timer
	lastPartial string
	done        bool
}

func NewAggregator(sched clock.Scheduler, quietWindow time.Duration, deliver func(text string, err error)) *Aggregator {
	return &Aggregator{
		sched:       sched,
		quietWindow: quietWindow,
		deliver:     deliver,
	}
}

func (a *Aggregator) OnPartial(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	a.mu.Lock()
	if a.done {
		a.mu.Unlock()
		return
	}
	a.lastPartial = text
	if a.quiet != nil {
		a.quiet.Cancel()
	}
	a.quiet = a.sched.Schedule(a.quietWindow, a.onQuietExpired)
	a.mu.Unlock()
}

func (a *Aggregator) OnFinal(text string) {
	text = strings.TrimSpace(text)

	a.mu.Lock()
	if text == "" {
		// Recognizers emit an empty closing frame after silence; fall
		// back to the last partial before calling it no-speech.
		if a.lastPartial != "" {
			text = a.lastPartial
		} else {
			a.finalizeLocked("", errors.NewCode(errors.CodeNoSpeechDetected,
				"asr.aggregate", "no speech detected"))
			return
		}
	}
	a.finalizeLocked(text, nil)
}

func (a *Aggregator) OnError(kind inter.ErrorKind, err error) {
	a.mu.Lock()
	if a.done {
		a.mu.Unlock()
		return
	}

	// Teardown-driven interruptions end the phase without an outcome.
	if kind == inter.ErrorKindCanceled {
		a.done = true
		if a.quiet != nil {
			a.quiet.Cancel()
		}
		a.mu.Unlock()
		return
	}

	if a.lastPartial != "" {
		a.finalizeLocked(a.lastPartial, nil)
		return
	}

	if kind == inter.ErrorKindNoSpeech {
		a.finalizeLocked("", errors.WrapCode(errors.CodeNoSpeechDetected,
			"asr.aggregate", "no speech detected", err))
		return
	}
	a.finalizeLocked("", errors.WrapCode(errors.CodeRecognitionFailure,
		"asr.aggregate", "recognition failed", err))
}

// Cancel discards the phase without delivering an outcome.
func (a *Aggregator) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.done = true
	if a.quiet != nil {
		a.quiet.Cancel()
	}
}

// LastPartial returns the most recent partial transcript heard.
func (a *Aggregator) LastPartial() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastPartial
}

func (a *Aggregator) onQuietExpired() {
	a.mu.Lock()
	a.finalizeLocked(a.lastPartial, nil)
}

// finalizeLocked delivers the single outcome. It takes over the lock
// held by the caller and releases it before invoking the callback, so
// delivery may post into channels freely.
func (a *Aggregator) finalizeLocked(text string, err error) {
	if a.done {
		a.mu.Unlock()
		return
	}
	a.done = true
	if a.quiet != nil {
		a.quiet.Cancel()
		a.quiet = nil
	}
	deliver := a.deliver
	a.mu.Unlock()

	if deliver != nil {
		deliver(text, err)
	}
}
