package testutil

import (
	"sync"
	"time"
)

// ManualScheduler is a notify.Scheduler whose time only moves when a test
// calls Advance. This makes notification expiry deterministic: nothing fires
// until the test says so, and everything due fires synchronously inside
// Advance.
//
// Thread-safety: all methods are safe for concurrent use.
type ManualScheduler struct {
	mu      sync.Mutex
	now     time.Duration
	nextTag int
	pending map[int]scheduled
}

type scheduled struct {
	due time.Duration
	fn  func()
	seq int
}

// NewManualScheduler creates a scheduler with no elapsed time.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{pending: make(map[int]scheduled)}
}

// AfterFunc registers fn to run once Advance moves the scheduler past d.
// The returned cancel function removes the registration if it has not fired.
func (m *ManualScheduler) AfterFunc(d time.Duration, fn func()) func() {
	m.mu.Lock()
	tag := m.nextTag
	m.nextTag++
	m.pending[tag] = scheduled{due: m.now + d, fn: fn, seq: tag}
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.pending, tag)
		m.mu.Unlock()
	}
}

// Advance moves scheduler time forward and fires everything that became due,
// in registration order. Callbacks run without the internal lock held, so
// they may schedule or cancel freely.
func (m *ManualScheduler) Advance(d time.Duration) {
	m.mu.Lock()
	m.now += d

	var due []scheduled
	for tag, s := range m.pending {
		if s.due <= m.now {
			due = append(due, s)
			delete(m.pending, tag)
		}
	}
	m.mu.Unlock()

	// Fire in registration order for deterministic tests.
	for i := 0; i < len(due); i++ {
		min := i
		for j := i + 1; j < len(due); j++ {
			if due[j].seq < due[min].seq {
				min = j
			}
		}
		due[i], due[min] = due[min], due[i]
		due[i].fn()
	}
}

// Pending returns the number of registrations that have not fired.
func (m *ManualScheduler) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}
