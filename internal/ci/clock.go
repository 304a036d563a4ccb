package ci

import "sync/atomic"

// SeqClock stamps runs with a logical sequence number.
// Implemented by Clock and by testutil.DeterministicClock.
type SeqClock interface {
	Next() int64
}

// Clock is a monotonic logical clock. Seq values order runs across
// projects independent of wall-clock time.
//
// Thread-safety: Clock is safe for concurrent use.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock resuming after start.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next increments the clock and returns the new value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}
