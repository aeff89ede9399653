package schedule

import (
	"testing"
	"time"
)

func TestManualRunsDueActionsInOrder(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	var order []string
	m.AfterFunc(5*time.Second, func() { order = append(order, "five") })
	m.AfterFunc(2*time.Second, func() { order = append(order, "two") })
	m.AfterFunc(9*time.Second, func() { order = append(order, "nine") })

	m.Advance(5 * time.Second)

	if len(order) != 2 || order[0] != "two" || order[1] != "five" {
		t.Fatalf("unexpected order %v", order)
	}
	if m.Pending() != 1 {
		t.Fatalf("expected one pending action, got %d", m.Pending())
	}
	if got := m.Now(); !got.Equal(time.Unix(5, 0)) {
		t.Fatalf("unexpected virtual time %v", got)
	}
}

func TestManualStopCancels(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	ran := false
	timer := m.AfterFunc(time.Second, func() { ran = true })

	if !timer.Stop() {
		t.Fatalf("expected first stop to report true")
	}
	if timer.Stop() {
		t.Fatalf("expected second stop to report false")
	}
	m.Advance(time.Minute)
	if ran {
		t.Fatalf("stopped action ran")
	}
}

func TestManualRunsChainedActionsWithinWindow(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	count := 0
	m.AfterFunc(time.Second, func() {
		count++
		m.AfterFunc(time.Second, func() { count++ })
	})

	m.Advance(3 * time.Second)
	if count != 2 {
		t.Fatalf("expected chained action to run, count=%d", count)
	}
}

func TestRealSchedulerFires(t *testing.T) {
	done := make(chan struct{})
	Real().AfterFunc(time.Millisecond, func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("real scheduler did not fire")
	}
}
