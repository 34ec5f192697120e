package clock

import (
	"testing"
	"time"
)

func TestManualFiresInDeadlineOrder(t *testing.T) {
	m := NewManual()

	var order []string
	m.Schedule(300*time.Millisecond, func() { order = append(order, "b") })
	m.Schedule(100*time.Millisecond, func() { order = append(order, "a") })
	m.Schedule(500*time.Millisecond, func() { order = append(order, "c") })

	m.Advance(400 * time.Millisecond)
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("order after 400ms = %v, want [a b]", order)
	}
	if m.Pending() != 1 {
		t.Fatalf("pending = %d, want 1", m.Pending())
	}

	m.Advance(100 * time.Millisecond)
	if len(order) != 3 || order[2] != "c" {
		t.Fatalf("order after 500ms = %v, want [a b c]", order)
	}
}

func TestManualCancel(t *testing.T) {
	m := NewManual()

	fired := false
	timer := m.Schedule(time.Second, func() { fired = true })
	if !timer.Cancel() {
		t.Fatal("first cancel should report true")
	}
	if timer.Cancel() {
		t.Fatal("second cancel should report false")
	}

	m.Advance(2 * time.Second)
	if fired {
		t.Fatal("cancelled timer fired")
	}
}

// A callback that schedules a follow-up inside the advanced window must
// see that follow-up fire during the same Advance call.
func TestManualReentrantSchedule(t *testing.T) {
	m := NewManual()

	var order []string
	m.Schedule(100*time.Millisecond, func() {
		order = append(order, "first")
		m.Schedule(100*time.Millisecond, func() { order = append(order, "chained") })
	})

	m.Advance(250 * time.Millisecond)
	if len(order) != 2 || order[1] != "chained" {
		t.Fatalf("order = %v, want [first chained]", order)
	}
	if m.Now() != 250*time.Millisecond {
		t.Fatalf("now = %v, want 250ms", m.Now())
	}
}
