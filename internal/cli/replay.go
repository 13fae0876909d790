package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/timealgebra/internal/harness"
	"github.com/roach88/timealgebra/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - specific run only
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Runs          []harness.ReplayReport `json:"runs"`
	TotalRuns     int                    `json:"total_runs"`
	Skipped       []string               `json:"skipped,omitempty"` // unfinished runs
	AllReproduced bool                   `json:"all_reproduced"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-run recorded runs and verify determinism",
		Long: `Re-run recorded runs from their stored configs and compare the result
frame by frame with what was recorded.

Without --run, every finished run in the database is replayed.

Exit codes:
  0 - Every replayed run reproduced its digest
  1 - Determinism verification failed (differences detected)
  2 - Command error (database or run not found, etc.)

Examples:
  timealg replay --db ./runs.db
  timealg replay --db ./runs.db --run 0192a7c4-...
  timealg replay --db ./runs.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "replay specific run only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	st, err := openExistingStore(opts.Database)
	if err != nil {
		_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return err
	}
	defer st.Close()

	runIDs, skipped, err := replayTargets(ctx, st, opts.RunID)
	if err != nil {
		_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to select runs", err)
	}

	result := ReplayResult{
		Runs:          make([]harness.ReplayReport, 0, len(runIDs)),
		Skipped:       skipped,
		AllReproduced: true,
	}
	for _, id := range runIDs {
		formatter.VerboseLog("Replaying %s", id)
		report, err := harness.Replay(ctx, st, id, logger)
		if err != nil {
			_ = formatter.Error(ErrCodeRun, err.Error(), nil)
			return WrapExitError(ExitCommandError, "replay failed", err)
		}
		result.Runs = append(result.Runs, report)
		if !report.Match || report.FirstMismatch >= 0 {
			result.AllReproduced = false
		}
	}
	result.TotalRuns = len(result.Runs)

	if formatter.IsJSON() {
		resp := CLIResponse{Status: "ok", Data: result}
		if !result.AllReproduced {
			resp.Status = "error"
			resp.Error = &CLIError{Code: ErrCodeMismatch, Message: "replay did not reproduce the recorded trace"}
		}
		if err := formatter.Respond(resp); err != nil {
			return err
		}
	} else {
		outputReplayText(formatter.Writer, result, opts.Verbose)
	}

	if !result.AllReproduced {
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

// replayTargets returns the runs to replay and the unfinished runs skipped.
// A run named explicitly must exist and be finished.
func replayTargets(ctx context.Context, st *store.Store, runID string) ([]string, []string, error) {
	if runID != "" {
		run, err := st.ReadRun(ctx, runID)
		if err != nil {
			return nil, nil, fmt.Errorf("run %s: %w", runID, err)
		}
		if !run.Finished() {
			return nil, nil, fmt.Errorf("run %s has not finished", runID)
		}
		return []string{runID}, nil, nil
	}

	runs, err := st.ListRuns(ctx)
	if err != nil {
		return nil, nil, err
	}
	var ids, skipped []string
	for _, r := range runs {
		if r.Finished() {
			ids = append(ids, r.ID)
		} else {
			skipped = append(skipped, r.ID)
		}
	}
	return ids, skipped, nil
}

func outputReplayText(w io.Writer, result ReplayResult, verbose bool) {
	if result.TotalRuns == 0 {
		fmt.Fprintln(w, "No finished runs to replay.")
	}
	for _, r := range result.Runs {
		if r.Match && r.FirstMismatch < 0 {
			fmt.Fprintf(w, "✓ %s  %d frames  %s\n", r.RunID, r.Frames, shortDigest(r.ReplayDigest))
			continue
		}
		fmt.Fprintf(w, "✗ %s  stored %s, replayed %s\n", r.RunID, shortDigest(r.StoredDigest), shortDigest(r.ReplayDigest))
		if r.FirstMismatch >= 0 {
			fmt.Fprintf(w, "  first difference at frame %d\n", r.FirstMismatch)
			if verbose {
				fmt.Fprintln(w, r.Diff)
			}
		}
	}
	for _, id := range result.Skipped {
		fmt.Fprintf(w, "- %s  skipped (unfinished)\n", id)
	}

	fmt.Fprintln(w)
	if result.AllReproduced {
		fmt.Fprintf(w, "✓ %d run(s) reproduced\n", result.TotalRuns)
	} else {
		fmt.Fprintln(w, "✗ Determinism verification failed")
	}
}
