package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/roach88/timealgebra/internal/store"
	"github.com/roach88/timealgebra/internal/trace"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - list runs when empty
}

// RunListing is one line of the run list.
type RunListing struct {
	ID         string `json:"id"`
	Scenario   string `json:"scenario"`
	FrameCount int    `json:"frame_count"`
	Digest     string `json:"digest"`
	CreatedSeq int64  `json:"created_seq"`
	Finished   bool   `json:"finished"`
}

// TraceResult holds the frames of one run and their verification.
type TraceResult struct {
	Run      RunListing    `json:"run"`
	Config   string        `json:"config"`
	Frames   []trace.Frame `json:"frames"`
	Verified bool          `json:"verified"`
	Stats    TraceStats    `json:"stats"`
}

// TraceStats holds summary statistics for a run.
type TraceStats struct {
	Frames         int     `json:"frames"`
	Substeps       int     `json:"substeps"`
	CappedFrames   int     `json:"capped_frames"`
	FinalTime      float64 `json:"final_time"`
	ComputedDigest string  `json:"computed_digest"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect recorded runs",
		Long: `Inspect the runs recorded in a database.

Without --run, lists every run in creation order. With --run, prints the
run's frames in seq order and recomputes its digest from the stored frames.

Exit codes:
  0 - Success
  1 - The stored frames do not match the run header
  2 - Command error (database or run not found, etc.)

Examples:
  timealg trace --db ./runs.db
  timealg trace --db ./runs.db --run 0192a7c4-...
  timealg trace --db ./runs.db --run 0192a7c4-... --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run ID to show")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
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

	st, err := openExistingStore(opts.Database)
	if err != nil {
		_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return err
	}
	defer st.Close()

	if opts.RunID == "" {
		return listRuns(ctx, st, formatter)
	}

	run, err := st.ReadRun(ctx, opts.RunID)
	if errors.Is(err, store.ErrRunNotFound) {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("run not found: %s", opts.RunID), nil)
		return WrapExitError(ExitCommandError, "run not found", err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	frames, err := st.ReadFrames(ctx, opts.RunID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read frames", err)
	}

	v, err := st.VerifyRun(ctx, opts.RunID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to verify run", err)
	}

	result := TraceResult{
		Run:      listingOf(run),
		Config:   run.Config,
		Frames:   frames,
		Verified: v.OK(),
		Stats:    statsOf(frames, v.ComputedDigest),
	}

	if formatter.IsJSON() {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		outputTraceText(formatter.Writer, result, opts.Verbose)
	}

	if !result.Verified {
		return NewExitError(ExitFailure, fmt.Sprintf("run %s: stored frames do not match header", run.ID))
	}
	return nil
}

// openExistingStore opens a database without creating it.
func openExistingStore(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("database not found: %s", path), err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func listRuns(ctx context.Context, st *store.Store, formatter *OutputFormatter) error {
	runs, err := st.ListRuns(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	listings := make([]RunListing, 0, len(runs))
	for _, r := range runs {
		listings = append(listings, listingOf(r))
	}

	if formatter.IsJSON() {
		return formatter.Success(listings)
	}

	w := formatter.Writer
	if len(listings) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	fmt.Fprintf(w, "%-36s  %8s  %-12s  %s\n", "RUN", "FRAMES", "DIGEST", "SCENARIO")
	for _, l := range listings {
		digest := "(unfinished)"
		if l.Finished {
			digest = shortDigest(l.Digest)
		}
		fmt.Fprintf(w, "%-36s  %8s  %-12s  %s\n", l.ID, humanize.Comma(int64(l.FrameCount)), digest, l.Scenario)
	}
	return nil
}

func listingOf(r trace.Run) RunListing {
	return RunListing{
		ID:         r.ID,
		Scenario:   r.Scenario,
		FrameCount: r.FrameCount,
		Digest:     r.Digest,
		CreatedSeq: r.CreatedSeq,
		Finished:   r.Finished(),
	}
}

func statsOf(frames []trace.Frame, computed string) TraceStats {
	stats := TraceStats{Frames: len(frames), ComputedDigest: computed}
	for _, f := range frames {
		stats.Substeps += f.Substeps
		if f.Capped {
			stats.CappedFrames++
		}
		stats.FinalTime = f.Shutter
	}
	return stats
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}

// outputTraceText prints the frames of a run. Verbose adds tags.
func outputTraceText(w io.Writer, r TraceResult, verbose bool) {
	fmt.Fprintf(w, "Run: %s\n", r.Run.ID)
	if r.Run.Scenario != "" {
		fmt.Fprintf(w, "Scenario: %s\n", r.Run.Scenario)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%5s %6s %10s %10s %4s %7s  %12s %12s %12s %10s\n",
		"IDX", "SEQ", "START", "STEP", "SUB", "ALPHA", "CAR_POS", "CAR_VEL", "CAMERA", "INPUT")
	for _, f := range r.Frames {
		mark := ""
		if f.Capped {
			mark = "  capped"
		}
		fmt.Fprintf(w, "%5d %6d %10.5f %10.5f %4d %7.4f  %12.5f %12.5f %12.5f %10.4f%s\n",
			f.Index, f.Seq, f.Start, f.Step, f.Substeps, f.Alpha,
			f.CarPos.Value, f.CarVel.Value, f.Camera.Value, f.Input.Value, mark)
		if verbose {
			fmt.Fprintf(w, "      tags: car_pos=%s car_vel=%s camera=%s input=%s\n",
				tagString(f.CarPos), tagString(f.CarVel), tagString(f.Camera), tagString(f.Input))
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Stats:\n")
	fmt.Fprintf(w, "  Frames:     %s\n", humanize.Comma(int64(r.Stats.Frames)))
	fmt.Fprintf(w, "  Substeps:   %s\n", humanize.Comma(int64(r.Stats.Substeps)))
	fmt.Fprintf(w, "  Capped:     %s\n", humanize.Comma(int64(r.Stats.CappedFrames)))
	fmt.Fprintf(w, "  Final time: %ss\n", humanize.FtoaWithDigits(r.Stats.FinalTime, 6))
	if r.Verified {
		fmt.Fprintf(w, "✓ Digest verified: %s\n", r.Run.Digest)
	} else {
		fmt.Fprintf(w, "✗ Digest mismatch: header %q, frames %s\n", r.Run.Digest, r.Stats.ComputedDigest)
	}
}

func tagString(s trace.Sample) string {
	if s.Tag == nil {
		return "const"
	}
	return humanize.FtoaWithDigits(*s.Tag, 6)
}
