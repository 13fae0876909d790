package timed

// Domain names an independent clock, such as the frame clock or the physics
// clock. Implementations are empty marker types.
type Domain interface {
	ClockName() string
}

// In is a Scalar bound to a clock domain at compile time. Operations only
// accept operands of the same domain, so mixing a frame-time sample into a
// physics-time expression fails to build unless it is stripped first. The
// runtime tag check still applies within a domain.
type In[D Domain] struct {
	s Scalar
}

// Bind attaches s to domain D.
func Bind[D Domain](s Scalar) In[D] {
	return In[D]{s: s}
}

// Scalar returns the underlying value, leaving the domain.
func (a In[D]) Scalar() Scalar { return a.s }

// Value returns the raw value.
func (a In[D]) Value() float64 { return a.s.value }

// Tag returns the time tag and whether one is present.
func (a In[D]) Tag() (float64, bool) { return a.s.Tag() }

// Strip returns a domain-free constant. It is the only way out of a domain
// other than Scalar, and marks the reuse of a sample outside its clock.
func (a In[D]) Strip() Scalar { return a.s.StripTime() }

func (a In[D]) Add(b In[D]) In[D] { return In[D]{s: a.s.Add(b.s)} }
func (a In[D]) Sub(b In[D]) In[D] { return In[D]{s: a.s.Sub(b.s)} }
func (a In[D]) Mul(b In[D]) In[D] { return In[D]{s: a.s.Mul(b.s)} }
func (a In[D]) Div(b In[D]) In[D] { return In[D]{s: a.s.Div(b.s)} }

// Integrate advances a by rate*dt within the domain.
func (a *In[D]) Integrate(rate, dt In[D]) { a.s.Integrate(rate.s, dt.s) }

// FinishedUpdate moves a to the end of the step dt within the domain.
func (a *In[D]) FinishedUpdate(dt In[D]) { a.s.FinishedUpdate(dt.s) }

// Within checks a against the domain's clock at runtime and returns the
// plain Scalar for use with untyped code.
func (a In[D]) Within(clock In[D]) Scalar {
	a.s.consistent(clockName[D]()+".within", clock.s)
	return a.s
}

func clockName[D Domain]() string {
	var d D
	return d.ClockName()
}
