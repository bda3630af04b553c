package testutil

import (
	"sync"
	"time"
)

// FixedClock returns a controllable wall clock for tests.
//
// Cart line items and wishlist entries record the time they were added;
// pinning the clock makes persisted snapshots and golden traces
// byte-identical across runs.
//
// Thread-safety: all methods are safe for concurrent use.
type FixedClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixedClock creates a clock pinned at t.
func NewFixedClock(t time.Time) *FixedClock {
	return &FixedClock{now: t}
}

// Now returns the pinned time. Pass the method value as a now-func:
//
//	cart.WithClock(clk.Now)
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the pinned time forward by d.
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
