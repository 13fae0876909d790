// Package sim is the mock car-and-camera world used to exercise the
// time-tagged core end to end. Each frame samples input and animation at the
// frame start, runs the car physics through a fixed-step sub-stepper, then
// moves a follow camera that is rendered at the end of the frame.
package sim

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/timealgebra/internal/substep"
	"github.com/roach88/timealgebra/internal/timed"
)

// AnimationMode selects when the animation target is sampled.
type AnimationMode int

const (
	// StartFrame samples the curve at the frame start.
	StartFrame AnimationMode = iota
	// EndFrame uses last frame's end sample as this frame's start value and
	// samples a new end value at the frame end.
	EndFrame
)

// String returns the configuration spelling of the mode.
func (m AnimationMode) String() string {
	switch m {
	case StartFrame:
		return "start_frame"
	case EndFrame:
		return "end_frame"
	default:
		return fmt.Sprintf("AnimationMode(%d)", int(m))
	}
}

// ParseAnimationMode parses "start_frame" or "end_frame".
func ParseAnimationMode(s string) (AnimationMode, error) {
	switch s {
	case "start_frame":
		return StartFrame, nil
	case "end_frame":
		return EndFrame, nil
	default:
		return 0, fmt.Errorf("unknown animation mode %q", s)
	}
}

// Config holds the tunables of a simulation.
type Config struct {
	InnerStep      float64       // Fixed physics step, seconds
	StartTime      float64       // Tag of the first frame
	Animation      AnimationMode // Animation sampling mode
	MaxSubsteps    int           // Per-frame physics step cap, 0 = unbounded
	FollowRate     float64       // Camera follow rate per second
	SpeedInfluence float64       // How far the camera drops back per unit of car speed
}

// DefaultConfig returns the reference setup: 64 Hz physics, start-frame
// animation, no catch-up cap.
func DefaultConfig() Config {
	return Config{
		InnerStep:      1.0 / 64,
		StartTime:      0,
		Animation:      StartFrame,
		FollowRate:     6,
		SpeedInfluence: 0.1,
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case c.InnerStep <= 0:
		return fmt.Errorf("inner step must be positive, got %g", c.InnerStep)
	case c.MaxSubsteps < 0:
		return fmt.Errorf("max substeps must be non-negative, got %d", c.MaxSubsteps)
	case c.FollowRate < 0:
		return fmt.Errorf("follow rate must be non-negative, got %g", c.FollowRate)
	case c.Animation != StartFrame && c.Animation != EndFrame:
		return fmt.Errorf("invalid animation mode %d", int(c.Animation))
	}
	return nil
}

// MainHook observes the car once physics has caught up with a frame.
type MainHook func(frame timed.Scalar, car CarState)

// Option configures a Simulation.
type Option func(*Simulation)

// WithInput sets the input source. Default: ConstantInput(30).
func WithInput(in InputSource) Option {
	return func(s *Simulation) {
		s.input = in
	}
}

// WithCurve sets the animation curve. Default: LinearCurve{Slope: 5}.
func WithCurve(c AnimationCurve) Option {
	return func(s *Simulation) {
		s.curve = c
	}
}

// WithMainHook registers a hook run after physics on every frame.
func WithMainHook(h MainHook) Option {
	return func(s *Simulation) {
		s.hooks = append(s.hooks, h)
	}
}

// WithLogger sets the logger. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(s *Simulation) {
		s.logger = l
	}
}

// FrameReport is the observable outcome of one Update.
type FrameReport struct {
	Index   int            // Zero-based frame number
	Frame   timed.Scalar   // Frame clock as passed in
	Shutter float64        // Time the frame is rendered at
	Physics substep.Report // Sub-stepper outcome
	Car     CarState       // Interpolated car state at the shutter
	Camera  timed.Scalar   // Camera position, tagged for the next frame
	Input   timed.Scalar   // Input sample at the frame start
	Target  timed.Scalar   // Animation target used by physics
}

// Simulation owns every clock and sample of the mock world. It is not safe
// for concurrent use.
type Simulation struct {
	cfg    Config
	input  InputSource
	curve  AnimationCurve
	hooks  []MainHook
	logger *slog.Logger

	physics *substep.Stepper[CarState]

	inputVal  timed.In[Frame]
	inputLast timed.In[Frame]
	target    timed.In[Frame]
	targetEnd timed.In[Frame]

	cameraClock timed.Scalar
	camera      timed.Scalar

	frames    int
	lastFrame float64
}

// New creates a simulation with the car and camera at rest at the origin.
func New(cfg Config, opts ...Option) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	s := &Simulation{
		cfg:    cfg,
		input:  ConstantInput(30),
		curve:  LinearCurve{Slope: 5},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}

	t0 := cfg.StartTime
	car := CarState{Pos: timed.At(0, t0), Vel: timed.At(0, t0)}
	physics, err := substep.New(cfg.InnerStep, t0, car,
		substep.WithMaxSteps(cfg.MaxSubsteps),
		substep.WithLogger(s.logger),
	)
	if err != nil {
		return nil, err
	}
	s.physics = physics

	s.inputVal = timed.Bind[Frame](timed.At(s.input.Sample(t0), t0))
	s.inputLast = s.inputVal
	s.targetEnd = timed.Bind[Frame](timed.At(s.curve.Sample(t0), t0))
	s.target = s.targetEnd

	s.cameraClock = timed.At(0, t0)
	s.camera = timed.At(0, t0)
	return s, nil
}

// Update advances the world by one frame. frame's value is the frame step
// and its tag the frame start. The first frame starts at StartTime and later
// frames must arrive in increasing tag order.
//
// Consistency faults are returned as *timed.Fault. A sub-step cap is
// returned as *substep.StepsExceededError; the frame still counts and the
// owed time is simulated on later frames. Whenever physics has no state at the
// shutter (capped, or a frame shorter than the owed balance) hooks and the
// camera are skipped.
func (s *Simulation) Update(frame timed.Scalar) (FrameReport, error) {
	rep := FrameReport{Index: s.frames, Frame: frame}

	start, ok := frame.Tag()
	if !ok {
		return rep, &timed.Fault{Code: timed.FaultUntagged, Op: "update", Message: "frame clock has no tag"}
	}
	if s.frames == 0 && !timed.ApproxEqual(start, s.cfg.StartTime, timed.Epsilon) {
		return rep, &timed.Fault{
			Code:    timed.FaultTagMismatch,
			Op:      "update",
			Message: "first frame must start at the simulation start time",
			Tags:    []float64{s.cfg.StartTime, start},
		}
	}
	if s.frames > 0 && start <= s.lastFrame {
		return rep, &timed.Fault{
			Code:    timed.FaultArgumentOrder,
			Op:      "update",
			Message: "frames must arrive in increasing time order",
			Tags:    []float64{s.lastFrame, start},
		}
	}

	var stepErr error
	err := timed.Catch(func() {
		fc := timed.Bind[Frame](frame)
		s.updateInputs(start)
		s.updateAnimation(start, timed.EndTime(frame))

		rep.Physics, stepErr = s.updatePhysics(fc)
		if stepErr != nil || !rep.Physics.Interpolated {
			// Physics has no state at the shutter; the camera holds.
			return
		}

		car := s.physics.Current()
		for _, h := range s.hooks {
			h(frame, car)
		}
		s.updateCamera(frame, car)
	})
	if err != nil {
		s.logger.Error("frame fault", "frame", s.frames, "error", err)
		return rep, fmt.Errorf("frame %d: %w", s.frames, err)
	}
	if stepErr != nil && !substep.IsStepsExceededError(stepErr) {
		return rep, fmt.Errorf("frame %d: %w", s.frames, stepErr)
	}

	rep.Shutter = timed.EndTime(frame)
	rep.Car = s.physics.Current()
	rep.Camera = s.camera
	rep.Input = s.inputVal.Scalar()
	rep.Target = s.target.Scalar()

	s.logger.Debug("frame",
		"index", rep.Index,
		"start", start,
		"step", frame.Value(),
		"substeps", rep.Physics.Steps,
		"car_pos", rep.Car.Pos.Value(),
		"camera", rep.Camera.Value(),
	)

	s.frames++
	s.lastFrame = start

	if stepErr != nil {
		return rep, fmt.Errorf("frame %d: %w", rep.Index, stepErr)
	}
	return rep, nil
}

func (s *Simulation) updateInputs(start float64) {
	s.inputLast = s.inputVal
	s.inputVal = timed.Bind[Frame](timed.At(s.input.Sample(start), start))
}

func (s *Simulation) updateAnimation(start, end float64) {
	switch s.cfg.Animation {
	case EndFrame:
		s.target = s.targetEnd
		s.targetEnd = timed.Bind[Frame](timed.At(s.curve.Sample(end), end))
	default:
		s.target = timed.Bind[Frame](timed.At(s.curve.Sample(start), start))
	}
}

// updatePhysics runs the car integrator. Input and animation are frame-start
// samples held constant across every sub-step of the frame, so they are
// checked once against the frame clock and then stripped of their time.
func (s *Simulation) updatePhysics(frame timed.In[Frame]) (substep.Report, error) {
	input := s.inputVal.Within(frame).StripTime()
	target := s.target.Within(frame).StripTime()

	return s.physics.Step(frame.Scalar(), func(car *CarState, dt timed.Scalar) {
		accel := input.Add(target.Sub(car.Pos))
		car.Pos.Integrate(car.Vel, dt)
		car.Vel.Integrate(accel, dt)
	})
}

func (s *Simulation) updateCamera(frame timed.Scalar, car CarState) {
	step := frame.Value()

	// The next frame's step is unknown, so assume it repeats this one.
	s.cameraClock = timed.At(step, timed.EndTime(frame))
	s.camera = timed.Restamp(s.camera, s.cameraClock)

	s.camera = timed.Lerp(s.camera, car.Pos, timed.Const(s.cfg.FollowRate*step))

	lastTag, _ := s.inputLast.Tag()
	curTag, _ := s.inputVal.Tag()
	if curTag > lastTag {
		vel := timed.Velocity(s.inputLast.Scalar(), s.inputVal.Scalar())
		s.camera = s.camera.Add(vel.StripTime())
	}

	s.camera = s.camera.Sub(car.Vel.Mul(timed.Const(s.cfg.SpeedInfluence)))
	s.camera.FinishedUpdate(s.cameraClock)
}

// Car returns the car state interpolated to the last shutter time.
func (s *Simulation) Car() CarState { return s.physics.Current() }

// CarLatest returns the most recent fixed-step car state.
func (s *Simulation) CarLatest() CarState { return s.physics.Latest() }

// Camera returns the camera position, tagged at the next frame's end.
func (s *Simulation) Camera() timed.Scalar { return s.camera }

// Input returns the latest input sample.
func (s *Simulation) Input() timed.Scalar { return s.inputVal.Scalar() }

// PhysicsClock returns the physics inner clock.
func (s *Simulation) PhysicsClock() timed.Scalar { return s.physics.Inner() }

// Frames returns the number of completed frames.
func (s *Simulation) Frames() int { return s.frames }

// TotalSubsteps returns the physics steps run since creation.
func (s *Simulation) TotalSubsteps() int { return s.physics.TotalSteps() }

// Config returns the configuration the simulation was created with.
func (s *Simulation) Config() Config { return s.cfg }

// RenderCheck verifies the values a renderer would read at the shutter time
// of the last frame all agree on that time.
func (s *Simulation) RenderCheck(shutter float64) error {
	car := s.physics.Current()
	return errors.Join(
		timed.CheckTime(car.Pos, shutter),
		timed.CheckTime(car.Vel, shutter),
	)
}
