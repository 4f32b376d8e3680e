package core

import "time"

// --------------------------------------------------------------------------
// Clock Oracle
// --------------------------------------------------------------------------

// Clock supplies the current time to the core. Every operation reads the
// clock exactly once; the core never polls. Implementations must be
// monotonic at second granularity.
type Clock interface {
	// Now returns the current unix time in seconds.
	Now() Timestamp
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() Timestamp {
	return Timestamp(time.Now().Unix())
}

// ManualClock is a settable clock for tests and replay.
type ManualClock struct {
	now Timestamp
}

// NewManualClock creates a manual clock starting at the given time.
func NewManualClock(now Timestamp) *ManualClock {
	return &ManualClock{now: now}
}

func (c *ManualClock) Now() Timestamp {
	return c.now
}

// Set moves the clock to the given time. Moving backwards is not checked
// here; callers own the monotonicity guarantee.
func (c *ManualClock) Set(now Timestamp) {
	c.now = now
}

// Advance moves the clock forward by the given number of seconds.
func (c *ManualClock) Advance(secs uint64) {
	c.now += secs
}
