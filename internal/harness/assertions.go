package harness

import (
	"fmt"
	"math"
	"strings"

	"github.com/roach88/timealgebra/internal/timed"
	"github.com/roach88/timealgebra/internal/trace"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Frame    int    // Offending frame index, or -1 for whole-run assertions
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	if e.Frame >= 0 {
		fmt.Fprintf(&buf, "\n  Frame: %d", e.Frame)
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion against the result's frames and
// returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for _, a := range assertions {
		var err error
		switch a.Type {
		case AssertFrameCount:
			err = assertFrameCount(result.Frames, a)
		case AssertSubstepTotal:
			err = assertSubstepTotal(result.Frames, a)
		case AssertFinalTag:
			err = assertFinalTag(result.Frames, a)
		case AssertValueRange:
			err = assertValueRange(result.Frames, a)
		case AssertAlphaRange:
			err = assertAlphaRange(result.Frames, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func assertFrameCount(frames []trace.Frame, a Assertion) error {
	if float64(len(frames)) == *a.Equals {
		return nil
	}
	return &AssertionError{
		Type:     AssertFrameCount,
		Expected: fmt.Sprintf("%g frames", *a.Equals),
		Actual:   fmt.Sprintf("%d frames", len(frames)),
		Frame:    -1,
	}
}

func assertSubstepTotal(frames []trace.Frame, a Assertion) error {
	total := 0
	for _, f := range frames {
		total += f.Substeps
	}
	n := float64(total)
	if a.Equals != nil && n == *a.Equals {
		return nil
	}
	if a.Equals == nil && inRange(n, a.Min, a.Max) {
		return nil
	}
	expected := describeRange(a.Min, a.Max)
	if a.Equals != nil {
		expected = fmt.Sprintf("%g", *a.Equals)
	}
	return &AssertionError{
		Type:     AssertSubstepTotal,
		Expected: expected + " physics steps",
		Actual:   fmt.Sprintf("%d physics steps", total),
		Frame:    -1,
	}
}

func assertFinalTag(frames []trace.Frame, a Assertion) error {
	if len(frames) == 0 {
		return &AssertionError{
			Type:     AssertFinalTag,
			Expected: fmt.Sprintf("%s tagged at %g", a.Field, *a.Equals),
			Actual:   "no frames recorded",
			Frame:    -1,
		}
	}
	last := frames[len(frames)-1]
	s := sampleField(last, a.Field)
	if s.Tag != nil && math.Abs(*s.Tag-*a.Equals) <= tolerance(a) {
		return nil
	}
	actual := "constant (untagged)"
	if s.Tag != nil {
		actual = fmt.Sprintf("tagged at %g", *s.Tag)
	}
	return &AssertionError{
		Type:     AssertFinalTag,
		Expected: fmt.Sprintf("%s tagged at %g", a.Field, *a.Equals),
		Actual:   actual,
		Frame:    last.Index,
	}
}

func assertValueRange(frames []trace.Frame, a Assertion) error {
	for _, f := range frames {
		v := sampleField(f, a.Field).Value
		if !inRange(v, a.Min, a.Max) {
			return &AssertionError{
				Type:     AssertValueRange,
				Expected: fmt.Sprintf("%s in %s", a.Field, describeRange(a.Min, a.Max)),
				Actual:   fmt.Sprintf("%g", v),
				Frame:    f.Index,
			}
		}
	}
	return nil
}

func assertAlphaRange(frames []trace.Frame, a Assertion) error {
	for _, f := range frames {
		if !inRange(f.Alpha, a.Min, a.Max) {
			return &AssertionError{
				Type:     AssertAlphaRange,
				Expected: fmt.Sprintf("alpha in %s", describeRange(a.Min, a.Max)),
				Actual:   fmt.Sprintf("%g", f.Alpha),
				Frame:    f.Index,
			}
		}
	}
	return nil
}

func sampleField(f trace.Frame, field string) trace.Sample {
	switch field {
	case FieldCarPos:
		return f.CarPos
	case FieldCarVel:
		return f.CarVel
	case FieldCamera:
		return f.Camera
	default:
		return f.Input
	}
}

func tolerance(a Assertion) float64 {
	if a.Tolerance > 0 {
		return a.Tolerance
	}
	return timed.Epsilon
}

func inRange(v float64, lo, hi *float64) bool {
	if lo != nil && v < *lo {
		return false
	}
	if hi != nil && v > *hi {
		return false
	}
	return true
}

func describeRange(lo, hi *float64) string {
	from, to := "-inf", "+inf"
	if lo != nil {
		from = fmt.Sprintf("%g", *lo)
	}
	if hi != nil {
		to = fmt.Sprintf("%g", *hi)
	}
	return "[" + from + ", " + to + "]"
}
