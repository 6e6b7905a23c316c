package testutil

import (
	"sync"
	"time"
)

// TickingClock is a deterministic wall clock for tests: every call to Now
// returns the start time plus one more step.
//
// Unlike engine.FixedClock, TickingClock moves on its own, so rows stamped
// one after another get distinct, ordered timestamps. It can be reset for
// test reuse.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type TickingClock struct {
	mu    sync.Mutex
	start time.Time
	step  time.Duration
	ticks int64
}

// NewTickingClock creates a clock whose first reading is start.
func NewTickingClock(start time.Time, step time.Duration) *TickingClock {
	return &TickingClock{start: start.UTC(), step: step}
}

// Now returns the next reading and advances the clock by one step.
func (c *TickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.start.Add(time.Duration(c.ticks) * c.step)
	c.ticks++
	return t
}

// Ticks returns how many times Now has been called.
func (c *TickingClock) Ticks() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks
}

// Reset rewinds the clock so the next reading is the start time again.
func (c *TickingClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks = 0
}
