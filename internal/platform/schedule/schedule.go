// Package schedule runs cancellable delayed actions. Production code uses
// the wall clock; tests drive a Manual scheduler through virtual time.
package schedule

import (
	"sort"
	"sync"
	"time"
)

// Timer is a pending action.
type Timer interface {
	// Stop cancels the action. It reports false when the action already ran
	// or was stopped.
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Real schedules on the wall clock via time.AfterFunc.
func Real() Scheduler { return realScheduler{} }

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Manual is a virtual clock. Actions run synchronously inside Advance, in
// due order, outside the scheduler lock.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	seq     int
	pending []*manualTimer
}

// NewManual starts virtual time at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

type manualTimer struct {
	m   *Manual
	due time.Time
	seq int
	f   func()
}

// AfterFunc implements Scheduler.
func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTimer{m: m, due: m.now.Add(d), seq: m.seq, f: f}
	m.pending = append(m.pending, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	for i, p := range t.m.pending {
		if p == t {
			t.m.pending = append(t.m.pending[:i], t.m.pending[i+1:]...)
			return true
		}
	}
	return false
}

// Now returns the current virtual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Pending reports how many actions are waiting.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Advance moves virtual time forward by d and runs every action that falls
// due, including actions scheduled by actions within the window.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		sort.SliceStable(m.pending, func(i, j int) bool {
			if m.pending[i].due.Equal(m.pending[j].due) {
				return m.pending[i].seq < m.pending[j].seq
			}
			return m.pending[i].due.Before(m.pending[j].due)
		})
		if len(m.pending) == 0 || m.pending[0].due.After(target) {
			m.now = target
			m.mu.Unlock()
			return
		}
		next := m.pending[0]
		m.pending = m.pending[1:]
		m.now = next.due
		m.mu.Unlock()

		next.f()
	}
}
