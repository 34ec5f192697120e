package asr

import (
	"testing"
	"time"

	"github.com/SamyKr/VisuAI-sub000/internal/platform/clock"
)

type retryProbe struct {
	retries   int
	rechecks  int
	recovered int
	disabled  int
	recheckOK bool
}

func newRetryFixture(recheckOK bool) (*RetryPolicy, *clock.Manual, *retryProbe) {
	sched := clock.NewManual()
	probe := &retryProbe{recheckOK: recheckOK}
	policy := NewRetryPolicy(sched, 3, 2*time.Second, RetryHooks{
		Retry:     func() { probe.retries++ },
		Recheck:   func() bool { probe.rechecks++; return probe.recheckOK },
		Recovered: func() { probe.recovered++ },
		Disabled:  func() { probe.disabled++ },
	})
	return policy, sched, probe
}

func TestRetryPolicySchedulesBelowBudget(t *testing.T) {
	policy, sched, probe := newRetryFixture(true)

	policy.OnStartFailure()
	if policy.State() != RetryScheduled {
		t.Fatalf("state = %s, want scheduled", policy.State())
	}
	if !policy.CanStart() {
		t.Fatal("starts must stay allowed while a retry is scheduled")
	}

	sched.Advance(2 * time.Second)
	if probe.retries != 1 {
		t.Fatalf("retries = %d, want 1", probe.retries)
	}
	if policy.State() != RetryIdle {
		t.Fatalf("state = %s, want idle after firing", policy.State())
	}
}

// The third consecutive failure enters recovery instead of scheduling
// another retry.
func TestRetryPolicyEntersRecoveryAtBudget(t *testing.T) {
	policy, sched, probe := newRetryFixture(true)

	for i := 0; i < 3; i++ {
		policy.OnStartFailure()
		if i < 2 {
			sched.Advance(2 * time.Second)
		}
	}

	if policy.State() != RetryRecovering {
		t.Fatalf("state = %s, want recovering", policy.State())
	}
	if policy.CanStart() {
		t.Fatal("starts must be rejected while recovering")
	}
	if !policy.IsRecovering() {
		t.Fatal("IsRecovering must report true")
	}

	// The hold lasts three times the retry delay, then rechecks once.
	sched.Advance(5 * time.Second)
	if probe.rechecks != 0 {
		t.Fatalf("recheck ran %d times before the hold elapsed", probe.rechecks)
	}
	sched.Advance(time.Second)
	if probe.rechecks != 1 {
		t.Fatalf("rechecks = %d, want 1", probe.rechecks)
	}
	if probe.recovered != 1 {
		t.Fatalf("recovered = %d, want 1", probe.recovered)
	}
	if policy.State() != RetryIdle || policy.Failures() != 0 {
		t.Fatalf("state = %s failures = %d, want idle and zero", policy.State(), policy.Failures())
	}
	if !policy.CanStart() {
		t.Fatal("starts must be allowed after recovery")
	}
}

func TestRetryPolicyDisablesWhenRecheckFails(t *testing.T) {
	policy, sched, probe := newRetryFixture(false)

	for i := 0; i < 3; i++ {
		policy.OnStartFailure()
		sched.Advance(2 * time.Second)
	}
	sched.Advance(6 * time.Second)

	if probe.disabled != 1 {
		t.Fatalf("disabled = %d, want 1", probe.disabled)
	}
	if policy.State() != RetryDisabled || policy.CanStart() {
		t.Fatalf("state = %s, want disabled with starts rejected", policy.State())
	}

	// Further failures while disabled change nothing.
	policy.OnStartFailure()
	if policy.Failures() != 3 {
		t.Fatalf("failures = %d, want unchanged 3", policy.Failures())
	}

	// Only an external capability check re-enables starts.
	policy.ExternalRecheck(false)
	if policy.CanStart() {
		t.Fatal("failed external recheck must keep starts rejected")
	}
	policy.ExternalRecheck(true)
	if !policy.CanStart() || policy.State() != RetryIdle || policy.Failures() != 0 {
		t.Fatalf("state = %s failures = %d, want reset idle", policy.State(), policy.Failures())
	}
}

func TestRetryPolicyTranscriptResetsCounter(t *testing.T) {
	policy, sched, _ := newRetryFixture(true)

	policy.OnStartFailure()
	sched.Advance(2 * time.Second)
	policy.OnStartFailure()
	sched.Advance(2 * time.Second)
	if policy.Failures() != 2 {
		t.Fatalf("failures = %d, want 2", policy.Failures())
	}

	policy.OnTranscript("")
	if policy.Failures() != 2 {
		t.Fatal("empty transcript must not reset the counter")
	}
	policy.OnTranscript("a car")
	if policy.Failures() != 0 {
		t.Fatalf("failures = %d, want 0 after transcript", policy.Failures())
	}

	// The next failure starts a fresh streak instead of entering
	// recovery.
	policy.OnStartFailure()
	if policy.State() != RetryScheduled {
		t.Fatalf("state = %s, want scheduled", policy.State())
	}
}
