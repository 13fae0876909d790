package sim

import "github.com/roach88/timealgebra/internal/timed"

// Frame is the clock domain of the outer, variable-rate frame loop.
type Frame struct{}

// ClockName implements timed.Domain.
func (Frame) ClockName() string { return "frame" }

// CarState is the physical state of the mock car.
type CarState struct {
	Pos timed.Scalar
	Vel timed.Scalar
}

// Fields implements interp.State.
func (c CarState) Fields() []timed.Scalar {
	return []timed.Scalar{c.Pos, c.Vel}
}

// WithFields implements interp.State.
func (c CarState) WithFields(fs []timed.Scalar) CarState {
	return CarState{Pos: fs[0], Vel: fs[1]}
}
