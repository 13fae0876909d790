package engine

import (
	"fmt"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/roach88/timealgebra/internal/timed"
)

// jitterFrequency spaces successive frames in noise space. Integer lattice
// points of simplex noise are all zero, so frames must not land on them.
const jitterFrequency = 0.37

// minStepFraction bounds how far jitter or a negative increment can shrink a
// step, relative to the base step.
const minStepFraction = 0.01

// Schedule describes the frame steps the driver hands to the simulation.
//
// Frame i has step (Step + i*Increment) * (1 + Jitter*n_i), where n_i is
// OpenSimplex noise in [-1, 1] seeded by Seed. The same schedule always
// yields the same steps.
type Schedule struct {
	Start     float64 // Tag of the first frame
	Step      float64 // Base frame step, seconds
	Increment float64 // Added to the base step after every frame
	Jitter    float64 // Relative noise amplitude, in [0, 1)
	Seed      int64
}

// Validate checks the schedule can produce positive steps.
func (s Schedule) Validate() error {
	switch {
	case s.Step <= 0:
		return fmt.Errorf("frame step must be positive, got %g", s.Step)
	case s.Jitter < 0 || s.Jitter >= 1:
		return fmt.Errorf("jitter must be in [0, 1), got %g", s.Jitter)
	}
	return nil
}

// FrameClock produces the tagged frame clocks of a schedule, one per call to
// Next. The first clock is tagged at Start; each later clock is advanced from
// the previous one so tags accumulate exactly as the simulation sees them.
type FrameClock struct {
	sched   Schedule
	noise   opensimplex.Noise
	clock   timed.Scalar
	started bool
	index   int
}

// NewFrameClock creates a frame clock for s.
func NewFrameClock(s Schedule) *FrameClock {
	return &FrameClock{
		sched: s,
		noise: opensimplex.New(s.Seed),
	}
}

// Next returns the clock for the next frame: value is the frame step, tag
// the frame start.
func (f *FrameClock) Next() timed.Scalar {
	if !f.started {
		f.clock = timed.At(f.step(0), f.sched.Start)
		f.started = true
	} else {
		timed.Advance(&f.clock, timed.Const(f.step(f.index)))
	}
	f.index++
	return f.clock
}

// Index returns the number of clocks produced so far.
func (f *FrameClock) Index() int { return f.index }

// step returns the step of frame i, never below minStepFraction of Step.
func (f *FrameClock) step(i int) float64 {
	base := f.sched.Step + float64(i)*f.sched.Increment
	if f.sched.Jitter > 0 {
		base *= 1 + f.sched.Jitter*f.noise.Eval2(float64(i)*jitterFrequency, 0)
	}
	return max(base, f.sched.Step*minStepFraction)
}
