package timed

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdvance_RoundTrip(t *testing.T) {
	clock := At(1.0/32, 0.5)

	Advance(&clock, Const(1.0/16))

	requireTag(t, 0.5+1.0/32, clock)
	assert.Equal(t, 1.0/16, clock.Value())
}

func TestAdvance_TaggedNextStep(t *testing.T) {
	clock := At(0.25, 1)
	next := At(0.5, 1) // derived from live quantities at the clock's time

	Advance(&clock, next)

	requireTag(t, 1.25, clock)
	assert.Equal(t, 0.5, clock.Value())
}

func TestAdvance_InconsistentNextStepFaults(t *testing.T) {
	clock := At(0.25, 1)
	requireFault(t, FaultTagMismatch, func() { Advance(&clock, At(0.5, 2)) })
}

func TestAdvance_ConstantClockFaults(t *testing.T) {
	clock := Const(0.25)
	requireFault(t, FaultUntagged, func() { Advance(&clock, Const(0.25)) })
	requireFault(t, FaultUntagged, func() { AdvanceConstant(&clock) })
}

func TestAdvanceConstant(t *testing.T) {
	clock := SimStart(1.0 / 32)
	for i := 0; i < 32; i++ {
		AdvanceConstant(&clock)
	}

	requireTag(t, 1, clock)
	assert.Equal(t, 1.0/32, clock.Value())
}

func TestEndTime(t *testing.T) {
	assert.Equal(t, 1.25, EndTime(At(0.25, 1)))
	requireFault(t, FaultUntagged, func() { EndTime(Const(1)) })
}

func TestAdvance_VariableFrameSteps(t *testing.T) {
	frame := SimStart(1.0 / 30)
	total := 0.0

	for i := 0; i < 20; i++ {
		total += frame.Value()
		Advance(&frame, frame.Add(Const(0.001)))
	}

	requireTag(t, total, frame)
}
