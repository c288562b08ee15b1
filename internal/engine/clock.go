package engine

import "sync/atomic"

// Clock hands out the seq numbers stamped on trace entries. Seqs start at
// 1 and never repeat, so a trace sorts by seq alone.
type Clock struct {
	last atomic.Int64
}

// NewClock returns a clock whose first seq is 1.
func NewClock() *Clock {
	return NewClockAt(0)
}

// NewClockAt returns a clock whose first seq is last+1, for an engine that
// continues an earlier session's trace.
func NewClockAt(last int64) *Clock {
	c := &Clock{}
	c.last.Store(last)
	return c
}

// Next advances the clock and returns the new seq.
func (c *Clock) Next() int64 {
	return c.last.Add(1)
}

// Current returns the last seq handed out, or the start value.
func (c *Clock) Current() int64 {
	return c.last.Load()
}
