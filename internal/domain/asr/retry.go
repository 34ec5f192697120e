package asr

import (
	"sync"
	"time"

	"github.com/SamyKr/VisuAI-sub000/internal/platform/clock"
)

// RetryState is the lifecycle of the start-failure policy.
type RetryState int

const (
	// RetryIdle means starts are allowed and nothing is scheduled.
	RetryIdle RetryState = iota
	// RetryScheduled means a retry timer is armed after a failure.
	RetryScheduled
	// RetryRecovering means the failure budget is spent and the policy
	// is holding before a one-shot capability recheck.
	RetryRecovering
	// RetryDisabled means the recheck failed; only an external
	// capability check can re-enable starts.
	RetryDisabled
)

func (s RetryState) String() string {
	switch s {
	case RetryIdle:
		return "idle"
	case RetryScheduled:
		return "scheduled"
	case RetryRecovering:
		return "recovering"
	case RetryDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// RetryHooks are the policy's outbound edges. All hooks run on the
// scheduler's timer goroutine.
type RetryHooks struct {
	// Retry fires when a scheduled restart is due.
	Retry func()
	// Recheck probes the recognizer once after the recovery hold.
	Recheck func() bool
	// Recovered fires when the probe passed and counters were reset.
	Recovered func()
	// Disabled fires when the probe failed.
	Disabled func()
}

// RetryPolicy tracks consecutive recognizer start failures. Below the
// budget each failure schedules a retry after a fixed delay; spending
// the budget enters a recovery hold of three times that delay, ending
// in a single capability recheck. Only session start failures count;
// any non-empty transcript proves the pipeline works and clears the
// counter.
type RetryPolicy struct {
	mu          sync.Mutex
	sched       clock.Scheduler
	maxFailures int
	retryDelay  time.Duration
	hooks       RetryHooks

	failures int
	state    RetryState
	timer    clock.Timer
}

func NewRetryPolicy(sched clock.Scheduler, maxFailures int, retryDelay time.Duration, hooks RetryHooks) *RetryPolicy {
	if maxFailures <= 0 {
		maxFailures = 3
	}
	if retryDelay <= 0 {
		retryDelay = 2 * time.Second
	}
	return &RetryPolicy{
		sched:       sched,
		maxFailures: maxFailures,
		retryDelay:  retryDelay,
		hooks:       hooks,
	}
}

// OnStartFailure records one failed session start and schedules the
// consequence. Failures reported during recovery or while disabled are
// ignored; starts are rejected in those states anyway.
func (p *RetryPolicy) OnStartFailure() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == RetryRecovering || p.state == RetryDisabled {
		return
	}

	p.failures++
	if p.timer != nil {
		p.timer.Cancel()
	}

	if p.failures < p.maxFailures {
		p.state = RetryScheduled
		p.timer = p.sched.Schedule(p.retryDelay, p.fireRetry)
		return
	}

	p.state = RetryRecovering
	p.timer = p.sched.Schedule(p.retryDelay*3, p.fireRecheck)
}

// OnTranscript clears the failure counter when text actually came
// through.
func (p *RetryPolicy) OnTranscript(text string) {
	if text == "" {
		return
	}
	p.mu.Lock()
	p.failures = 0
	p.mu.Unlock()
}

// ExternalRecheck reports the result of an out-of-band capability
// check. It is the only way out of the disabled state.
func (p *RetryPolicy) ExternalRecheck(ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !ok {
		return
	}
	if p.state == RetryDisabled || p.state == RetryRecovering {
		if p.timer != nil {
			p.timer.Cancel()
			p.timer = nil
		}
		p.failures = 0
		p.state = RetryIdle
	}
}

// CanStart reports whether a new session start is allowed.
func (p *RetryPolicy) CanStart() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state != RetryRecovering && p.state != RetryDisabled
}

// IsRecovering reports whether the policy is inside the recovery hold.
func (p *RetryPolicy) IsRecovering() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == RetryRecovering
}

func (p *RetryPolicy) State() RetryState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *RetryPolicy) Failures() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failures
}

// Stop cancels any armed timer. Used on engine shutdown.
func (p *RetryPolicy) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.timer != nil {
		p.timer.Cancel()
		p.timer = nil
	}
}

func (p *RetryPolicy) fireRetry() {
	p.mu.Lock()
	if p.state != RetryScheduled {
		p.mu.Unlock()
		return
	}
	p.state = RetryIdle
	p.timer = nil
	retry := p.hooks.Retry
	p.mu.Unlock()

	if retry != nil {
		retry()
	}
}

func (p *RetryPolicy) fireRecheck() {
	p.mu.Lock()
	if p.state != RetryRecovering {
		p.mu.Unlock()
		return
	}
	recheck := p.hooks.Recheck
	p.mu.Unlock()

	ok := recheck != nil && recheck()

	p.mu.Lock()
	if p.state != RetryRecovering {
		p.mu.Unlock()
		return
	}
	p.timer = nil
	if ok {
		p.failures = 0
		p.state = RetryIdle
		recovered := p.hooks.Recovered
		p.mu.Unlock()
		if recovered != nil {
			recovered()
		}
		return
	}
	p.state = RetryDisabled
	disabled := p.hooks.Disabled
	p.mu.Unlock()
	if disabled != nil {
		disabled()
	}
}
