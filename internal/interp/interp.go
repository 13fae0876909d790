// Package interp reconciles composite fixed-step state to an externally
// demanded time by blending the last two sub-step states field by field.
package interp

import (
	"fmt"

	"github.com/roach88/timealgebra/internal/timed"
)

// State is a composite of time-tagged fields, e.g. a position and a velocity.
// Fields and WithFields must agree on field order.
type State[S any] interface {
	Fields() []timed.Scalar
	WithFields(fields []timed.Scalar) S
}

// Interpolate blends prev and latest with timed.LerpAcrossTime on each field.
// alpha 0 yields prev and alpha 1 yields latest, tags included.
func Interpolate[S State[S]](prev, latest S, alpha float64) (S, error) {
	pf := prev.Fields()
	lf := latest.Fields()
	if len(pf) != len(lf) {
		var zero S
		return zero, fmt.Errorf("interpolate: field count mismatch (%d vs %d)", len(pf), len(lf))
	}

	out := make([]timed.Scalar, len(pf))
	for i := range pf {
		out[i] = timed.LerpAcrossTime(pf[i], lf[i], alpha)
	}
	return prev.WithFields(out), nil
}

// Consistent reports whether all fields of s are tagged at the same time.
func Consistent[S State[S]](s S) error {
	return timed.Check(s.Fields()...)
}
