package engine

import "fmt"

// StallGuard counts consecutive frames on which physics hit its sub-step cap.
//
// A single capped frame is recoverable: the owed time is simulated on later
// frames. A long streak means physics can never catch up with the frame rate
// and the run is stopped.
type StallGuard struct {
	limit   int // Consecutive capped frames allowed, 0 = unlimited
	current int
}

// NewStallGuard creates a guard allowing limit capped frames in a row.
func NewStallGuard(limit int) *StallGuard {
	return &StallGuard{limit: limit}
}

// Observe records whether the latest frame was capped and returns a
// StalledError once the streak exceeds the limit.
func (g *StallGuard) Observe(capped bool) error {
	if !capped {
		g.current = 0
		return nil
	}
	g.current++
	if g.limit > 0 && g.current > g.limit {
		return &StalledError{Frames: g.current, Limit: g.limit}
	}
	return nil
}

// Current returns the length of the current capped streak.
func (g *StallGuard) Current() int {
	return g.current
}

// StalledError reports a capped streak longer than the limit.
type StalledError struct {
	Frames int // Consecutive capped frames
	Limit  int
}

// Error implements the error interface.
func (e *StalledError) Error() string {
	return fmt.Sprintf("physics capped on %d consecutive frames > %d limit", e.Frames, e.Limit)
}
