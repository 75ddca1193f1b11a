package engine

import "sync/atomic"

// Clock hands out subset indices.
//
// Indices start at 1 and increase by one per committed pass. Current reports
// the last committed index; a pass uses Current()+1 and calls Next only after
// its transaction commits, so a failed pass never leaves a gap.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
// The Engine's mutex means only one pass advances it at a time.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next advances the clock and returns the new index.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last committed index without advancing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// Reset sets the last committed index to n.
func (c *Clock) Reset(n int64) {
	c.seq.Store(n)
}
