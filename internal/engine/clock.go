package engine

import "sync/atomic"

// Sequencer hands out strictly increasing logical stamps.
// Implemented by Clock (production) and testutil.DeterministicClock (tests).
type Sequencer interface {
	Next() int64
}

// Clock is the logical seq clock that stamps recorded frames.
//
// Frame records are ordered by seq, never by wall-clock time, so a replayed
// run stored next to the original sorts the same way. Simulation time lives in
// the frame tags; seq only orders records across runs sharing a store.
//
// Clock is safe for concurrent use, though a single Engine only calls Next
// from its Run loop.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock whose next stamp is start+1. Used to continue
// after the highest seq already in a store.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next increments the clock and returns the new stamp.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last stamp handed out.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
