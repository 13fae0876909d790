// Package substep runs a fixed-size inner integrator a variable number of
// times per variable-size outer step, tracking the time still owed in a
// balance and interpolating the result to the outer step's end time.
package substep

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/timealgebra/internal/interp"
	"github.com/roach88/timealgebra/internal/timed"
)

// Integrator advances state by one inner step. dt is the inner clock: its
// value is the fixed step size and its tag the time the step starts.
type Integrator[S any] func(state *S, dt timed.Scalar)

// Report describes one call to Step.
type Report struct {
	Steps        int     // Inner steps run during this call
	Alpha        float64 // Blend factor between the last two states, in (0, 1]
	Balance      float64 // Balance after the call, <= 0 unless capped
	Interpolated bool    // Whether Current was recomputed
}

// Option configures a Stepper.
type Option func(*options)

type options struct {
	maxSteps int
	logger   *slog.Logger
}

// WithMaxSteps caps the inner steps run per outer step. 0 means unbounded,
// which is the default: a stalled frame is caught up in one call.
func WithMaxSteps(n int) Option {
	return func(o *options) {
		o.maxSteps = n
	}
}

// WithLogger sets the logger used for per-step debug output.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Stepper owns an inner fixed-rate clock, the balance between that clock and
// the outer one, and the last three states: previous and latest inner states
// plus the current state interpolated to the outer time.
type Stepper[S interp.State[S]] struct {
	inner    timed.Scalar
	balance  timed.Scalar
	previous S
	latest   S
	current  S

	totalSteps int
	opts       options
}

// New creates a Stepper whose inner clock starts at start with a fixed step
// of innerStep. initial must be tagged at start.
func New[S interp.State[S]](innerStep, start float64, initial S, opts ...Option) (*Stepper[S], error) {
	if innerStep <= 0 {
		return nil, fmt.Errorf("inner step must be positive, got %g", innerStep)
	}

	o := options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxSteps < 0 {
		return nil, fmt.Errorf("max steps must be non-negative, got %d", o.maxSteps)
	}

	inner := timed.At(innerStep, start)
	if err := timed.Check(append(initial.Fields(), inner)...); err != nil {
		return nil, fmt.Errorf("initial state: %w", err)
	}

	return &Stepper[S]{
		inner:    inner,
		balance:  timed.At(0, start),
		previous: initial,
		latest:   initial,
		current:  initial,
		opts:     o,
	}, nil
}

// Step consumes frameStep in inner increments, calling integrate once per
// increment, then interpolates Current to the end of the outer step.
//
// frameStep only contributes its magnitude: the balance straddles the outer
// and inner clocks, so it is never checked against the outer one. If no inner
// step runs, Current is left as it was.
func (s *Stepper[S]) Step(frameStep timed.Scalar, integrate Integrator[S]) (Report, error) {
	s.balance = s.balance.Add(frameStep.StripTime())

	var r Report
	for s.balance.Value() > 0 {
		if s.opts.maxSteps > 0 && r.Steps >= s.opts.maxSteps {
			return s.capped(r)
		}

		s.previous = s.latest
		integrate(&s.latest, s.inner)

		s.balance = s.balance.Sub(s.inner)
		s.balance.FinishedUpdate(s.inner)

		timed.AdvanceConstant(&s.inner)
		r.Steps++
	}

	r.Balance = s.balance.Value()
	if r.Steps == 0 {
		return r, nil
	}
	s.totalSteps += r.Steps

	// balance <= 0 here, so alpha lies in (0, 1].
	r.Alpha = 1 + s.balance.Div(s.inner).Value()

	current, err := interp.Interpolate(s.previous, s.latest, r.Alpha)
	if err != nil {
		return r, err
	}
	s.current = current
	r.Interpolated = true

	s.opts.logger.Debug("substep",
		"steps", r.Steps,
		"alpha", r.Alpha,
		"balance", r.Balance,
		"inner_time", s.inner.MustTag(),
	)
	return r, nil
}

// capped stops a catch-up that hit the step cap. The owed balance is kept for
// the next call and Current snaps to the latest inner state.
func (s *Stepper[S]) capped(r Report) (Report, error) {
	s.totalSteps += r.Steps
	r.Balance = s.balance.Value()
	r.Alpha = 1
	s.current = s.latest
	r.Interpolated = r.Steps > 0

	s.opts.logger.Warn("substep cap reached",
		"steps", r.Steps,
		"limit", s.opts.maxSteps,
		"balance", r.Balance,
	)
	return r, &StepsExceededError{Steps: r.Steps, Limit: s.opts.maxSteps, Balance: r.Balance}
}

// Inner returns the inner clock.
func (s *Stepper[S]) Inner() timed.Scalar { return s.inner }

// Balance returns the balance between the outer and inner clocks.
func (s *Stepper[S]) Balance() timed.Scalar { return s.balance }

// Latest returns the most recent inner state.
func (s *Stepper[S]) Latest() S { return s.latest }

// Previous returns the inner state before Latest.
func (s *Stepper[S]) Previous() S { return s.previous }

// Current returns the state interpolated to the end of the last outer step
// that ran at least one inner step.
func (s *Stepper[S]) Current() S { return s.current }

// TotalSteps returns the number of inner steps run since creation.
func (s *Stepper[S]) TotalSteps() int { return s.totalSteps }
