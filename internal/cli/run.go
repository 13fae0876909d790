package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/roach88/timealgebra/internal/config"
	"github.com/roach88/timealgebra/internal/engine"
	"github.com/roach88/timealgebra/internal/harness"
	"github.com/roach88/timealgebra/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Frames   int
	Database string
	RunID    string

	// RunIDs allows overriding the run ID generator (for testing).
	// If nil and RunID is empty, defaults to UUIDv7Generator.
	RunIDs engine.RunIDGenerator
}

// RunSummary is the outcome of a run as reported by the CLI.
type RunSummary struct {
	RunID        string  `json:"run_id"`
	Frames       int     `json:"frames"`
	Substeps     int     `json:"substeps"`
	CappedFrames int     `json:"capped_frames"`
	FinalTime    float64 `json:"final_time"`
	Digest       string  `json:"digest"`
	Database     string  `json:"database,omitempty"`
}

func summaryOf(sum engine.Summary, db string) RunSummary {
	return RunSummary{
		RunID:        sum.RunID,
		Frames:       sum.Frames,
		Substeps:     sum.Substeps,
		CappedFrames: sum.CappedFrames,
		FinalTime:    sum.FinalTime,
		Digest:       sum.Digest,
		Database:     db,
	}
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <config.cue>",
		Short: "Drive a simulation from a config file",
		Long: `Drive the simulation described by a CUE config for a number of frames.

Every frame is render-checked. With --db, the run header and every frame are
recorded to a SQLite database (created if it doesn't exist) so the run can be
inspected with trace and re-checked with replay.

Exit codes:
  0 - All frames completed
  1 - The run stopped early (fault, stall, interrupt)
  2 - Command error (config, database)

Example:
  timealg run ./car.cue
  timealg run ./car.cue --frames 600 --db ./runs.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Frames, "frames", 0, "number of frames (default: frames.count from the config)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database to record into")
	cmd.Flags().StringVar(&opts.RunID, "run-id", "", "run ID (default: a fresh UUIDv7)")

	return cmd
}

func runSimulation(opts *RunOptions, configPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	if opts.Frames < 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("--frames must be non-negative, got %d", opts.Frames))
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	frames := opts.Frames
	if frames == 0 {
		frames = cfg.Frames.Count
	}

	execOpts := harness.ExecuteOptions{
		Label:  configPath,
		Frames: frames,
		RunIDs: opts.RunIDs,
		Logger: logger,
	}
	if opts.RunID != "" {
		execOpts.RunIDs = engine.NewFixedGenerator(opts.RunID)
	}

	if opts.Database != "" {
		logger.Debug("opening database", "path", opts.Database)
		st, err := store.Open(opts.Database)
		if err != nil {
			_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		execOpts.Store = st
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, stopping run", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	formatter.VerboseLog("Running %s for %d frames", configPath, frames)
	sum, runErr := harness.Execute(ctx, cfg, execOpts)

	var re *engine.RunError
	if runErr != nil && !errors.As(runErr, &re) {
		if errors.Is(runErr, store.ErrRunExists) {
			_ = formatter.Error(ErrCodeRun, runErr.Error(), nil)
			return WrapExitError(ExitCommandError, "run ID already recorded", runErr)
		}
		code := ErrCodeGeneric
		if config.IsConfigError(runErr) {
			code = ErrCodeConfig
		}
		_ = formatter.Error(code, runErr.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to start run", runErr)
	}

	summary := summaryOf(sum, opts.Database)
	if formatter.IsJSON() {
		resp := CLIResponse{Status: "ok", Data: summary, RunID: sum.RunID}
		if runErr != nil {
			resp.Status = "error"
			resp.Error = &CLIError{
				Code:    ErrCodeRun,
				Message: runErr.Error(),
				Details: map[string]any{"code": string(re.Code), "frame": re.Frame},
			}
		}
		if err := formatter.Respond(resp); err != nil {
			return err
		}
	} else {
		outputRunText(formatter, summary, runErr)
	}

	if runErr != nil {
		return WrapExitError(ExitFailure, "run stopped", runErr)
	}
	return nil
}

func outputRunText(formatter *OutputFormatter, s RunSummary, runErr error) {
	w := formatter.Writer
	if runErr != nil {
		fmt.Fprintf(w, "✗ Run %s stopped after %s frames\n", s.RunID, humanize.Comma(int64(s.Frames)))
		fmt.Fprintf(w, "  %v\n", runErr)
	} else {
		fmt.Fprintf(w, "✓ Run %s completed %s frames\n", s.RunID, humanize.Comma(int64(s.Frames)))
	}
	fmt.Fprintf(w, "  Substeps:   %s\n", humanize.Comma(int64(s.Substeps)))
	fmt.Fprintf(w, "  Capped:     %s\n", humanize.Comma(int64(s.CappedFrames)))
	fmt.Fprintf(w, "  Final time: %ss\n", humanize.FtoaWithDigits(s.FinalTime, 6))
	fmt.Fprintf(w, "  Digest:     %s\n", s.Digest)
	if s.Database != "" {
		fmt.Fprintf(w, "  Recorded:   %s\n", s.Database)
	}
}

