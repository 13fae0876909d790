package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/timealgebra/internal/timed"
)

func collect(s Schedule, n int) []timed.Scalar {
	fc := NewFrameClock(s)
	out := make([]timed.Scalar, n)
	for i := range out {
		out[i] = fc.Next()
	}
	return out
}

func TestSchedule_Validate(t *testing.T) {
	assert.NoError(t, Schedule{Step: 0.1}.Validate())
	assert.ErrorContains(t, Schedule{Step: 0}.Validate(), "frame step")
	assert.ErrorContains(t, Schedule{Step: 0.1, Jitter: 1}.Validate(), "jitter")
	assert.ErrorContains(t, Schedule{Step: 0.1, Jitter: -0.1}.Validate(), "jitter")
}

func TestFrameClock_Constant(t *testing.T) {
	frames := collect(Schedule{Start: 1, Step: 0.25}, 5)

	for i, f := range frames {
		assert.Equal(t, 0.25, f.Value())
		assert.InDelta(t, 1+0.25*float64(i), f.MustTag(), 1e-12)
	}
}

func TestFrameClock_TagsChain(t *testing.T) {
	frames := collect(Schedule{Step: 1.0 / 30, Increment: 0.001, Jitter: 0.3, Seed: 5}, 20)

	for i := 1; i < len(frames); i++ {
		assert.Equal(t, timed.EndTime(frames[i-1]), frames[i].MustTag(), "frame %d", i)
	}
}

func TestFrameClock_Increment(t *testing.T) {
	frames := collect(Schedule{Step: 0.1, Increment: 0.01}, 4)

	for i, f := range frames {
		assert.InDelta(t, 0.1+0.01*float64(i), f.Value(), 1e-12)
	}
}

func TestFrameClock_StepStaysPositive(t *testing.T) {
	frames := collect(Schedule{Step: 0.1, Increment: -0.05}, 6)

	for _, f := range frames {
		assert.GreaterOrEqual(t, f.Value(), 0.1*minStepFraction)
	}
}

func TestFrameClock_JitterIsDeterministicAndBounded(t *testing.T) {
	s := Schedule{Step: 0.02, Jitter: 0.5, Seed: 11}
	a := collect(s, 50)
	b := collect(s, 50)
	assert.Equal(t, a, b)

	varied := false
	for _, f := range a {
		assert.GreaterOrEqual(t, f.Value(), 0.01-1e-12)
		assert.LessOrEqual(t, f.Value(), 0.03+1e-12)
		if f.Value() != 0.02 {
			varied = true
		}
	}
	assert.True(t, varied, "jitter should vary the step")

	s.Seed = 12
	assert.NotEqual(t, a, collect(s, 50))
}

func TestFrameClock_Index(t *testing.T) {
	fc := NewFrameClock(Schedule{Step: 0.1})
	require.Equal(t, 0, fc.Index())
	fc.Next()
	fc.Next()
	assert.Equal(t, 2, fc.Index())
}
