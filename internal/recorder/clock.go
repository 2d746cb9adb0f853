package recorder

import (
	"sync"
	"time"
)

// Clock supplies timestamps for tracked samples.
// Implemented by SystemClock (production) and StepClock (tests).
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// StepClock returns a fixed start time and advances by a fixed step on
// every read. This makes sample timestamps deterministic in tests while
// preserving the monotonic non-decreasing invariant the sampler relies on.
//
// Thread-safety: safe for concurrent use via internal mutex.
type StepClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewStepClock creates a clock starting at start, advancing by step per
// Now call.
func NewStepClock(start time.Time, step time.Duration) *StepClock {
	return &StepClock{now: start, step: step}
}

// Now returns the current clock value and advances it by one step.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now
	c.now = c.now.Add(c.step)
	return now
}
