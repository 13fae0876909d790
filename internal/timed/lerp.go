package timed

// Lerp blends two values sampled at the same time. The blend factor s is
// itself a Scalar: a constant s leaves the time of a and b untouched.
func Lerp(a, b, s Scalar) Scalar {
	return Const(1).Sub(s).Mul(a).Add(s.Mul(b))
}

// LerpAcrossTime blends two samples taken at different times, and blends their
// tags with them. alpha is a plain ratio, not a time.
//
// This is the one operation that deliberately mixes times. It belongs in
// low-level time/state management such as reconciling fixed-step state to a
// shutter time; anywhere else it hides exactly the bugs this package catches.
func LerpAcrossTime(a, b Scalar, alpha float64) Scalar {
	v := (1-alpha)*a.value + alpha*b.value

	switch {
	case !a.tagged && !b.tagged:
		return Const(v)
	case !a.tagged:
		return At(v, b.tag)
	case !b.tagged:
		return At(v, a.tag)
	default:
		return At(v, (1-alpha)*a.tag+alpha*b.tag)
	}
}
