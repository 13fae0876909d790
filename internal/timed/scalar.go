package timed

import (
	"fmt"
	"math"
)

// Epsilon is the tolerance used when comparing two time tags. Tags that
// differ by exactly Epsilon still agree.
const Epsilon = 1e-4

// Scalar is a float value with the simulation time at which it is valid.
//
// A Scalar without a tag is a time-invariant constant: it combines with a
// value sampled at any time. The zero value is the constant 0.
//
// Scalars are values. The only mutating operations are Integrate,
// FinishedUpdate and Advance, which take a pointer.
type Scalar struct {
	value  float64
	tag    float64
	tagged bool
}

// Const creates a time-invariant constant.
func Const(value float64) Scalar {
	return Scalar{value: value}
}

// SimStart creates a value tagged at simulation time 0.
func SimStart(value float64) Scalar {
	return Scalar{value: value, tagged: true}
}

// At creates a value tagged at an explicit time. Prefer With where a clock is
// at hand; At exists for sampling sources that compute their own time.
func At(value, tag float64) Scalar {
	return Scalar{value: value, tag: tag, tagged: true}
}

// With creates a value that borrows the time of timeGiver, typically the
// clock of the current step. A constant timeGiver yields a constant.
func With(value float64, timeGiver Scalar) Scalar {
	return Scalar{value: value, tag: timeGiver.tag, tagged: timeGiver.tagged}
}

// Restamp moves v onto the time of clock, keeping its value. It is the
// explicit, greppable way to declare that a value computed for one instant is
// being reused at another.
func Restamp(v, clock Scalar) Scalar {
	return With(v.value, clock)
}

// Value returns the raw value.
func (s Scalar) Value() float64 {
	return s.value
}

// Tag returns the time tag and whether one is present.
func (s Scalar) Tag() (float64, bool) {
	return s.tag, s.tagged
}

// HasTag reports whether s is time-varying.
func (s Scalar) HasTag() bool {
	return s.tagged
}

// MustTag returns the time tag, faulting if s is a constant.
func (s Scalar) MustTag() float64 {
	if !s.tagged {
		raise(FaultUntagged, "tag", "constant has no time")
	}
	return s.tag
}

// StripTime returns a constant with the same value. Use it to reuse a stale
// sample on purpose, e.g. a frame-start input inside sub-steps.
func (s Scalar) StripTime() Scalar {
	return Const(s.value)
}

// Add returns s + o.
func (s Scalar) Add(o Scalar) Scalar {
	return Scalar{value: s.value + o.value, tag: s.consistent("add", o).tag, tagged: s.tagged || o.tagged}
}

// Sub returns s - o.
func (s Scalar) Sub(o Scalar) Scalar {
	return Scalar{value: s.value - o.value, tag: s.consistent("sub", o).tag, tagged: s.tagged || o.tagged}
}

// Mul returns s * o.
func (s Scalar) Mul(o Scalar) Scalar {
	return Scalar{value: s.value * o.value, tag: s.consistent("mul", o).tag, tagged: s.tagged || o.tagged}
}

// Div returns s / o. Division by zero follows IEEE 754; only time is checked.
func (s Scalar) Div(o Scalar) Scalar {
	return Scalar{value: s.value / o.value, tag: s.consistent("div", o).tag, tagged: s.tagged || o.tagged}
}

// Equal compares values after checking that s and o describe the same time.
func (s Scalar) Equal(o Scalar) bool {
	s.consistent("equal", o)
	return s.value == o.value
}

// Integrate advances s by rate*dt and moves its tag forward by dt.
func (s *Scalar) Integrate(rate, dt Scalar) {
	if !s.tagged {
		raise(FaultUntagged, "integrate", "cannot integrate a constant in place")
	}
	consistent3("integrate", *s, rate, dt)

	s.value += rate.value * dt.value
	s.tag += dt.value
}

// FinishedUpdate marks s as valid at the end of the step dt without changing
// its value. Use it for quantities set directly rather than integrated.
func (s *Scalar) FinishedUpdate(dt Scalar) {
	if !s.tagged {
		raise(FaultUntagged, "finished_update", "cannot update a constant in place")
	}
	s.consistent("finished_update", dt)

	s.tag += dt.value
}

// String formats the scalar as value@tag, or value@const.
func (s Scalar) String() string {
	if !s.tagged {
		return fmt.Sprintf("%g@const", s.value)
	}
	return fmt.Sprintf("%g@%g", s.value, s.tag)
}

// consistent faults if s and o are both tagged at different times and returns
// the operand whose tag the result inherits.
func (s Scalar) consistent(op string, o Scalar) Scalar {
	if f := check(op, s, o); f != nil {
		panic(f)
	}
	if s.tagged {
		return s
	}
	return o
}

func consistent3(op string, a, b, c Scalar) {
	for _, pair := range [][2]Scalar{{a, b}, {b, c}, {a, c}} {
		if f := check(op, pair[0], pair[1]); f != nil {
			panic(f)
		}
	}
}

func check(op string, a, b Scalar) *Fault {
	if !a.tagged || !b.tagged || ApproxEqual(a.tag, b.tag, Epsilon) {
		return nil
	}
	return mismatch(op, a, b)
}

// Check reports whether all given scalars agree in time, without panicking.
// Render and output code calls it before consuming a value.
func Check(values ...Scalar) error {
	for i := 0; i < len(values); i++ {
		for j := i + 1; j < len(values); j++ {
			if f := check("check", values[i], values[j]); f != nil {
				return f
			}
		}
	}
	return nil
}

// CheckTime reports whether v is tagged at t.
func CheckTime(v Scalar, t float64) error {
	if !v.tagged {
		return &Fault{Code: FaultUntagged, Op: "check_time", Message: "constant has no time"}
	}
	if !ApproxEqual(v.tag, t, Epsilon) {
		return &Fault{
			Code:    FaultTagMismatch,
			Op:      "check_time",
			Message: fmt.Sprintf("value tagged at %g, expected %g", v.tag, t),
			Tags:    []float64{v.tag, t},
		}
	}
	return nil
}

// ApproxEqual reports whether a and b differ by at most eps.
func ApproxEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}
