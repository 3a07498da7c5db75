package simulate

import "sync/atomic"

// Clock is a monotonic logical clock for stamping trace events.
//
// Every observed operation gets a strictly increasing seq number. Logical
// time keeps traces deterministic: re-running the same scenario yields the
// same numbering, with no wall-clock involvement.
//
// Clock is safe for concurrent use, though the simulator's single-goroutine
// discipline means only one caller typically advances it.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0; the first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock resuming from a specific sequence number.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and advances the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without advancing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
