package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/roach88/timealgebra/internal/config"
	"github.com/roach88/timealgebra/internal/engine"
	"github.com/roach88/timealgebra/internal/sim"
	"github.com/roach88/timealgebra/internal/store"
	"github.com/roach88/timealgebra/internal/trace"
)

// ExecuteOptions configures Execute.
type ExecuteOptions struct {
	// Store records the run header and frames when set.
	Store *store.Store

	// Label is stored as the run's scenario name.
	Label string

	// Frames is the number of frames to drive.
	Frames int

	// RunIDs generates the run ID. Default: engine.UUIDv7Generator.
	RunIDs engine.RunIDGenerator

	// Clock stamps the run header and frames. Default: a clock continuing
	// after the store's highest seq, or starting at 0 without a store.
	Clock engine.Sequencer

	// StallLimit overrides engine.DefaultStallLimit when set.
	StallLimit *int

	// Recorders receive frames in addition to Store.
	Recorders []engine.Recorder

	Logger *slog.Logger
}

// Execute builds a simulation from cfg and drives it for opts.Frames frames.
//
// Configuration errors are returned before anything is recorded. Once the run
// starts, its header is finished with the frames actually recorded even if
// the run stops early; the returned error is then an *engine.RunError.
func Execute(ctx context.Context, cfg config.Config, opts ExecuteOptions) (engine.Summary, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	sc, err := cfg.Sim()
	if err != nil {
		return engine.Summary{}, fmt.Errorf("invalid config: %w", err)
	}
	s, err := sim.New(sc, append(cfg.SimOptions(), sim.WithLogger(logger))...)
	if err != nil {
		return engine.Summary{}, err
	}

	clock := opts.Clock
	if clock == nil {
		clock, err = defaultClock(ctx, opts.Store)
		if err != nil {
			return engine.Summary{}, err
		}
	}

	engineOpts := []engine.EngineOption{
		engine.WithClock(clock),
		engine.WithLogger(logger),
	}
	if opts.RunIDs != nil {
		engineOpts = append(engineOpts, engine.WithRunIDGenerator(opts.RunIDs))
	}
	if opts.StallLimit != nil {
		engineOpts = append(engineOpts, engine.WithStallLimit(*opts.StallLimit))
	}
	if opts.Store != nil {
		engineOpts = append(engineOpts, engine.WithRecorder(opts.Store))
	}
	for _, r := range opts.Recorders {
		engineOpts = append(engineOpts, engine.WithRecorder(r))
	}

	e, err := engine.New(s, cfg.Schedule(), engineOpts...)
	if err != nil {
		return engine.Summary{}, err
	}

	if opts.Store != nil {
		canonical, err := cfg.Canonical()
		if err != nil {
			return engine.Summary{}, err
		}
		run := trace.Run{
			ID:         e.RunID(),
			Scenario:   opts.Label,
			Config:     canonical,
			CreatedSeq: clock.Next(),
		}
		if err := opts.Store.WriteRun(ctx, run); err != nil {
			return engine.Summary{}, err
		}
	}

	sum, runErr := e.Run(ctx, opts.Frames)

	if opts.Store != nil {
		// The run may have been cancelled; the header is still closed.
		if err := opts.Store.FinishRun(context.WithoutCancel(ctx), sum.RunID, sum.Frames, sum.Digest); err != nil {
			return sum, errors.Join(runErr, err)
		}
	}
	return sum, runErr
}

func defaultClock(ctx context.Context, st *store.Store) (engine.Sequencer, error) {
	if st == nil {
		return engine.NewClock(), nil
	}
	seq, err := st.MaxSeq(ctx)
	if err != nil {
		return nil, err
	}
	return engine.NewClockAt(seq), nil
}

// ReplayReport compares a stored run with a fresh execution of its config.
type ReplayReport struct {
	RunID        string `json:"run_id"`
	Frames       int    `json:"frames"`
	StoredDigest string `json:"stored_digest"`
	ReplayDigest string `json:"replay_digest"`
	Match        bool   `json:"match"`

	// FirstMismatch is the index of the first differing frame, or -1.
	FirstMismatch int `json:"first_mismatch"`

	// Diff describes the first differing frame (-stored +replayed).
	Diff string `json:"diff,omitempty"`
}

// Replay re-executes a finished run from its stored config and frame count
// and compares the result frame by frame. The stall guard is disabled: the
// frame count already bounds the replay.
func Replay(ctx context.Context, st *store.Store, runID string, logger *slog.Logger) (ReplayReport, error) {
	run, err := st.ReadRun(ctx, runID)
	if err != nil {
		return ReplayReport{}, err
	}
	if !run.Finished() {
		return ReplayReport{}, fmt.Errorf("run %s has not finished", runID)
	}

	cfg, err := config.FromCanonical(run.Config)
	if err != nil {
		return ReplayReport{}, fmt.Errorf("stored config of run %s: %w", runID, err)
	}

	stored, err := st.ReadFrames(ctx, runID)
	if err != nil {
		return ReplayReport{}, err
	}

	noStall := 0
	var replayed trace.Collector
	sum, err := Execute(ctx, cfg, ExecuteOptions{
		Frames:     run.FrameCount,
		StallLimit: &noStall,
		Recorders:  []engine.Recorder{&replayed},
		Logger:     logger,
	})
	if err != nil {
		return ReplayReport{}, fmt.Errorf("replay run %s: %w", runID, err)
	}

	report := ReplayReport{
		RunID:         runID,
		Frames:        sum.Frames,
		StoredDigest:  run.Digest,
		ReplayDigest:  sum.Digest,
		Match:         run.Digest == sum.Digest,
		FirstMismatch: -1,
	}
	report.FirstMismatch, report.Diff = firstMismatch(stored, replayed.Frames)
	return report, nil
}

// frameContent compares frames ignoring run identity.
var frameContent = cmpopts.IgnoreFields(trace.Frame{}, "RunID", "Seq")

func firstMismatch(stored, replayed []trace.Frame) (int, string) {
	n := min(len(stored), len(replayed))
	for i := 0; i < n; i++ {
		if !cmp.Equal(stored[i], replayed[i], frameContent) {
			return i, cmp.Diff(stored[i], replayed[i], frameContent)
		}
	}
	if len(stored) != len(replayed) {
		return n, fmt.Sprintf("stored %d frames, replayed %d", len(stored), len(replayed))
	}
	return -1, ""
}
