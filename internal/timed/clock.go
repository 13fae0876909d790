package timed

// A clock is a Scalar whose value is the size of the current step and whose
// tag is the time that step started.

// Advance moves clock past the step it currently describes and sets the size
// of the next one. next may be a constant or a value derived from live
// quantities; a tagged next must agree with the clock's current time.
func Advance(clock *Scalar, next Scalar) {
	if !clock.tagged {
		raise(FaultUntagged, "advance", "cannot advance a constant clock")
	}
	clock.consistent("advance", next)

	clock.tag += clock.value
	clock.value = next.value
}

// AdvanceConstant advances clock by its own step and keeps the step size.
func AdvanceConstant(clock *Scalar) {
	Advance(clock, clock.StripTime())
}

// EndTime returns the time at which the step described by clock ends.
func EndTime(clock Scalar) float64 {
	return clock.MustTag() + clock.value
}
