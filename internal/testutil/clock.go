// Package testutil holds deterministic stand-ins for the scheduler's clock,
// run ID generator and store, shared by tests across packages.
package testutil

import "sync"

// DeterministicClock is a logical clock for tests.
// It satisfies ci.SeqClock.
//
// Thread-safety: all methods are safe for concurrent use.
type DeterministicClock struct {
	mu  sync.Mutex
	seq int64
}

// NewDeterministicClock creates a clock whose first Next returns 1.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{}
}

// Next increments and returns the sequence number.
func (c *DeterministicClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}
