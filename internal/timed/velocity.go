package timed

import "fmt"

// Velocity derives a rate of change from two samples of the same quantity.
// The samples carry their own times, so the step used for the difference is
// always the one that actually separates them.
//
// sample0 must be the older sample. Samples taken at exactly the same instant
// fault with FaultZeroDuration rather than producing Inf or NaN. Any positive
// gap, however small, is a real step.
func Velocity(sample0, sample1 Scalar) Scalar {
	t0 := sample0.MustTag()
	t1 := sample1.MustTag()

	if t1 < t0 {
		raise(FaultArgumentOrder, "velocity",
			fmt.Sprintf("newest sample passed first (%g before %g)", t1, t0), t0, t1)
	}
	if t1 == t0 {
		raise(FaultZeroDuration, "velocity", "samples share the same time", t0, t1)
	}

	return At((sample1.value-sample0.value)/(t1-t0), t1)
}
