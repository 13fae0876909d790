package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/timealgebra/internal/timed"
	"github.com/roach88/timealgebra/internal/trace"
)

func ptr(f float64) *float64 { return &f }

func testResult() *Result {
	r := NewResult()
	for i := 0; i < 3; i++ {
		start := float64(i) * 0.1
		shutter := start + 0.1
		r.Frames = append(r.Frames, trace.Frame{
			Index:    i,
			Start:    start,
			Step:     0.1,
			Shutter:  shutter,
			Substeps: 2,
			Alpha:    0.25 * float64(i),
			CarPos:   trace.SampleOf(timed.At(float64(i), shutter)),
			CarVel:   trace.SampleOf(timed.At(1, shutter)),
			Camera:   trace.SampleOf(timed.At(-1, shutter+0.05)),
			Input:    trace.SampleOf(timed.Const(30)),
		})
	}
	return r
}

func TestEvaluateAssertions_Pass(t *testing.T) {
	errs := EvaluateAssertions(testResult(), []Assertion{
		{Type: AssertFrameCount, Equals: ptr(3)},
		{Type: AssertSubstepTotal, Equals: ptr(6)},
		{Type: AssertSubstepTotal, Min: ptr(5), Max: ptr(7)},
		{Type: AssertFinalTag, Field: FieldCarPos, Equals: ptr(0.3)},
		{Type: AssertFinalTag, Field: FieldCamera, Equals: ptr(0.35)},
		{Type: AssertValueRange, Field: FieldCarPos, Min: ptr(0), Max: ptr(2)},
		{Type: AssertValueRange, Field: FieldInput, Min: ptr(30)},
		{Type: AssertAlphaRange, Min: ptr(0), Max: ptr(0.5)},
	})
	assert.Empty(t, errs)
}

func TestEvaluateAssertions_Failures(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		contains  []string
	}{
		{
			name:      "frame_count",
			assertion: Assertion{Type: AssertFrameCount, Equals: ptr(4)},
			contains:  []string{"frame_count", "4 frames", "3 frames"},
		},
		{
			name:      "substep_total equals",
			assertion: Assertion{Type: AssertSubstepTotal, Equals: ptr(5)},
			contains:  []string{"5 physics steps", "6 physics steps"},
		},
		{
			name:      "substep_total range",
			assertion: Assertion{Type: AssertSubstepTotal, Max: ptr(4)},
			contains:  []string{"[-inf, 4] physics steps"},
		},
		{
			name:      "final_tag",
			assertion: Assertion{Type: AssertFinalTag, Field: FieldCarPos, Equals: ptr(0.25)},
			contains:  []string{"car_pos tagged at 0.25", "tagged at 0.3", "Frame: 2"},
		},
		{
			name:      "final_tag of constant",
			assertion: Assertion{Type: AssertFinalTag, Field: FieldInput, Equals: ptr(0.2)},
			contains:  []string{"constant (untagged)"},
		},
		{
			name:      "value_range",
			assertion: Assertion{Type: AssertValueRange, Field: FieldCamera, Min: ptr(0)},
			contains:  []string{"camera in [0, +inf]", "-1", "Frame: 0"},
		},
		{
			name:      "alpha_range",
			assertion: Assertion{Type: AssertAlphaRange, Max: ptr(0.3)},
			contains:  []string{"alpha in [-inf, 0.3]", "0.5", "Frame: 2"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(testResult(), []Assertion{tt.assertion})
			require.Len(t, errs, 1)
			for _, s := range tt.contains {
				assert.Contains(t, errs[0], s)
			}
		})
	}
}

func TestEvaluateAssertions_Tolerance(t *testing.T) {
	a := Assertion{Type: AssertFinalTag, Field: FieldCarPos, Equals: ptr(0.31)}
	assert.Len(t, EvaluateAssertions(testResult(), []Assertion{a}), 1)

	a.Tolerance = 0.02
	assert.Empty(t, EvaluateAssertions(testResult(), []Assertion{a}))
}

func TestEvaluateAssertions_NoFrames(t *testing.T) {
	errs := EvaluateAssertions(NewResult(), []Assertion{
		{Type: AssertFinalTag, Field: FieldCarPos, Equals: ptr(1)},
		{Type: AssertValueRange, Field: FieldCarPos, Min: ptr(0)},
		{Type: AssertFrameCount, Equals: ptr(0)},
	})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "no frames recorded")
}

func TestAssertionError_WholeRun(t *testing.T) {
	err := &AssertionError{Type: "frame_count", Expected: "1", Actual: "2", Frame: -1}
	assert.NotContains(t, err.Error(), "Frame:")
}
