package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/timealgebra/internal/sim"
	"github.com/roach88/timealgebra/internal/substep"
	"github.com/roach88/timealgebra/internal/timed"
	"github.com/roach88/timealgebra/internal/trace"
)

// DefaultStallLimit is the default number of consecutive capped frames
// allowed before a run is stopped.
const DefaultStallLimit = 60

// Recorder receives every frame of a run, in order.
// Implemented by store.Store and trace.Collector.
type Recorder interface {
	WriteFrame(ctx context.Context, f trace.Frame) error
}

// Summary describes a finished, or stopped, run.
type Summary struct {
	RunID        string
	Frames       int     // Frames completed and recorded
	Substeps     int     // Physics steps run in total
	CappedFrames int     // Frames on which physics hit its cap
	FinalTime    float64 // Shutter time of the last completed frame
	Digest       string  // trace.Digest of the recorded frames
}

// Engine is the outer frame loop. It owns the frame clock, drives the
// simulation once per frame, checks what a renderer would read, and hands a
// record of every frame to its recorders.
//
// An Engine runs once; create a new one, with a new Simulation, per run.
type Engine struct {
	sim       *sim.Simulation
	schedule  Schedule
	clock     Sequencer
	ids       RunIDGenerator
	recorders []Recorder
	logger    *slog.Logger
	stall     *StallGuard
	runID     string
	ran       bool
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithRecorder adds a recorder. Recorders are called in the order added.
func WithRecorder(r Recorder) EngineOption {
	return func(e *Engine) {
		e.recorders = append(e.recorders, r)
	}
}

// WithRunIDGenerator sets the run ID source. Default: UUIDv7Generator.
func WithRunIDGenerator(g RunIDGenerator) EngineOption {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithClock sets the logical seq clock. Default: a new Clock at 0.
func WithClock(c Sequencer) EngineOption {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithLogger sets the logger. Default: discard.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithStallLimit sets how many consecutive capped frames are tolerated.
// 0 disables the check. Default: DefaultStallLimit.
func WithStallLimit(n int) EngineOption {
	return func(e *Engine) {
		e.stall = NewStallGuard(n)
	}
}

// New creates an Engine driving s with the frames of sched. The run ID is
// assigned here so callers can register the run before it starts.
func New(s *sim.Simulation, sched Schedule, opts ...EngineOption) (*Engine, error) {
	if s == nil {
		return nil, fmt.Errorf("simulation is required")
	}
	if err := sched.Validate(); err != nil {
		return nil, fmt.Errorf("invalid schedule: %w", err)
	}

	e := &Engine{
		sim:      s,
		schedule: sched,
		clock:    NewClock(),
		ids:      UUIDv7Generator{},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		stall:    NewStallGuard(DefaultStallLimit),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.runID = e.ids.Generate()
	return e, nil
}

// RunID returns the ID stamped on every frame of this run.
func (e *Engine) RunID() string {
	return e.runID
}

// Run drives frames frames and returns a summary. On error the summary
// covers the frames recorded before the failing one.
//
// Cancellation is observed between frames only.
func (e *Engine) Run(ctx context.Context, frames int) (Summary, error) {
	if e.ran {
		return Summary{}, fmt.Errorf("engine for run %s already ran", e.runID)
	}
	e.ran = true
	if frames < 0 {
		return Summary{}, fmt.Errorf("frame count must be non-negative, got %d", frames)
	}

	e.logger.Info("run starting",
		"run_id", e.runID,
		"frames", frames,
		"frame_step", e.schedule.Step,
		"inner_step", e.sim.Config().InnerStep,
	)

	fc := NewFrameClock(e.schedule)
	digest := trace.NewDigester()
	sum := Summary{RunID: e.runID}

	for i := 0; i < frames; i++ {
		if err := ctx.Err(); err != nil {
			return e.finish(sum, digest), e.fail(ErrCodeCancelled, i, err)
		}

		rec, capped, err := e.step(fc.Next())
		if err != nil {
			return e.finish(sum, digest), err
		}

		for _, r := range e.recorders {
			if err := r.WriteFrame(ctx, rec); err != nil {
				return e.finish(sum, digest), e.fail(ErrCodeRecord, i, err)
			}
		}
		if err := digest.Add(rec); err != nil {
			return e.finish(sum, digest), e.fail(ErrCodeRecord, i, err)
		}

		sum.Frames++
		sum.FinalTime = rec.Shutter
		if capped {
			sum.CappedFrames++
		}
	}

	sum = e.finish(sum, digest)
	e.logger.Info("run finished",
		"run_id", e.runID,
		"frames", sum.Frames,
		"substeps", sum.Substeps,
		"capped_frames", sum.CappedFrames,
		"final_time", sum.FinalTime,
		"digest", sum.Digest,
	)
	return sum, nil
}

// step runs one frame and builds its record.
func (e *Engine) step(frame timed.Scalar) (trace.Frame, bool, error) {
	rep, err := e.sim.Update(frame)
	capped := substep.IsStepsExceededError(err)
	if err != nil && !capped {
		return trace.Frame{}, false, e.fail(ErrCodeFault, rep.Index, err)
	}

	if capped {
		e.logger.Warn("physics capped",
			"run_id", e.runID,
			"frame", rep.Index,
			"error", err,
		)
	}
	if err := e.stall.Observe(capped); err != nil {
		return trace.Frame{}, capped, e.fail(ErrCodeStalled, rep.Index, err)
	}

	// A frame that produced no new physics state has nothing at the shutter
	// to check.
	if rep.Physics.Interpolated && !capped {
		if err := e.sim.RenderCheck(rep.Shutter); err != nil {
			return trace.Frame{}, capped, e.fail(ErrCodeRenderCheck, rep.Index, err)
		}
	}

	return e.record(rep, capped), capped, nil
}

func (e *Engine) record(rep sim.FrameReport, capped bool) trace.Frame {
	start, _ := rep.Frame.Tag()
	return trace.Frame{
		RunID:    e.runID,
		Index:    rep.Index,
		Seq:      e.clock.Next(),
		Start:    start,
		Step:     rep.Frame.Value(),
		Shutter:  rep.Shutter,
		Substeps: rep.Physics.Steps,
		Alpha:    rep.Physics.Alpha,
		Capped:   capped,
		CarPos:   trace.SampleOf(rep.Car.Pos),
		CarVel:   trace.SampleOf(rep.Car.Vel),
		Camera:   trace.SampleOf(rep.Camera),
		Input:    trace.SampleOf(rep.Input),
	}
}

func (e *Engine) finish(sum Summary, d *trace.Digester) Summary {
	sum.Substeps = e.sim.TotalSubsteps()
	sum.Digest = d.Sum()
	return sum
}

func (e *Engine) fail(code RunErrorCode, frame int, err error) *RunError {
	e.logger.Error("run stopped",
		"run_id", e.runID,
		"code", code,
		"frame", frame,
		"error", err,
	)
	return &RunError{Code: code, RunID: e.runID, Frame: frame, Err: err}
}
