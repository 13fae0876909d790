package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/timealgebra/internal/config"
	"github.com/roach88/timealgebra/internal/engine"
	"github.com/roach88/timealgebra/internal/store"
	"github.com/roach88/timealgebra/internal/trace"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestExecute_RecordsRun(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	cfg := config.Default()

	var extra trace.Collector
	sum, err := Execute(ctx, cfg, ExecuteOptions{
		Store:     st,
		Label:     "defaults",
		Frames:    cfg.Frames.Count,
		RunIDs:    engine.NewFixedGenerator("run-a"),
		Recorders: []engine.Recorder{&extra},
	})
	require.NoError(t, err)

	run, err := st.ReadRun(ctx, "run-a")
	require.NoError(t, err)
	assert.Equal(t, "defaults", run.Scenario)
	assert.Equal(t, 10, run.FrameCount)
	assert.Equal(t, sum.Digest, run.Digest)
	assert.Equal(t, int64(1), run.CreatedSeq)

	stored, err := cfg.Canonical()
	require.NoError(t, err)
	assert.Equal(t, stored, run.Config)

	frames, err := st.ReadFrames(ctx, "run-a")
	require.NoError(t, err)
	assert.Equal(t, extra.Frames, frames)
}

func TestExecute_ClockContinuesAcrossRuns(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	cfg := config.Default()

	_, err := Execute(ctx, cfg, ExecuteOptions{Store: st, Frames: 3, RunIDs: engine.NewFixedGenerator("first")})
	require.NoError(t, err)
	_, err = Execute(ctx, cfg, ExecuteOptions{Store: st, Frames: 3, RunIDs: engine.NewFixedGenerator("second")})
	require.NoError(t, err)

	runs, err := st.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "first", runs[0].ID)
	assert.Equal(t, int64(5), runs[1].CreatedSeq)

	// Same config, same content.
	assert.Equal(t, runs[0].Digest, runs[1].Digest)
}

func TestExecute_DuplicateRunID(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	opts := func() ExecuteOptions {
		return ExecuteOptions{Store: st, Frames: 1, RunIDs: engine.NewFixedGenerator("dup")}
	}

	_, err := Execute(ctx, config.Default(), opts())
	require.NoError(t, err)
	_, err = Execute(ctx, config.Default(), opts())
	assert.ErrorIs(t, err, store.ErrRunExists)
}

func TestExecute_StoppedRunIsFinished(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	cfg, err := config.Default().WithOverrides(map[string]any{
		"max_substeps": 1,
		"frames":       map[string]any{"step": 2.0 / 64},
	})
	require.NoError(t, err)

	limit := 3
	sum, err := Execute(ctx, cfg, ExecuteOptions{
		Store:      st,
		Frames:     10,
		RunIDs:     engine.NewFixedGenerator("stalled"),
		StallLimit: &limit,
	})
	require.Error(t, err)
	assert.True(t, engine.IsStalledError(err))

	v, err := st.VerifyRun(ctx, "stalled")
	require.NoError(t, err)
	assert.True(t, v.OK())
	assert.Equal(t, sum.Frames, v.FoundFrames)
	assert.Equal(t, 3, v.FoundFrames)
}

func TestReplay_Matches(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	cfg, err := config.Default().WithOverrides(map[string]any{
		"animation": "end_frame",
		"input":     map[string]any{"kind": "noise", "seed": 11},
		"frames":    map[string]any{"jitter": 0.2, "increment": 0.001},
	})
	require.NoError(t, err)

	_, err = Execute(ctx, cfg, ExecuteOptions{Store: st, Frames: 30, RunIDs: engine.NewFixedGenerator("orig")})
	require.NoError(t, err)

	report, err := Replay(ctx, st, "orig", nil)
	require.NoError(t, err)
	assert.True(t, report.Match)
	assert.Equal(t, 30, report.Frames)
	assert.Equal(t, -1, report.FirstMismatch)
	assert.Empty(t, report.Diff)
}

func TestReplay_DetectsTampering(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)

	_, err := Execute(ctx, config.Default(), ExecuteOptions{Store: st, Frames: 5, RunIDs: engine.NewFixedGenerator("orig")})
	require.NoError(t, err)

	_, err = st.DB().Exec("UPDATE frames SET substeps = substeps + 1 WHERE idx = 3")
	require.NoError(t, err)

	report, err := Replay(ctx, st, "orig", nil)
	require.NoError(t, err)
	// The header digest is untouched; the frames are not.
	assert.True(t, report.Match)
	assert.Equal(t, 3, report.FirstMismatch)
	assert.Contains(t, report.Diff, "Substeps")
}

func TestReplay_StalledRun(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	cfg, err := config.Default().WithOverrides(map[string]any{
		"max_substeps": 1,
		"frames":       map[string]any{"step": 2.0 / 64},
	})
	require.NoError(t, err)

	limit := 2
	_, err = Execute(ctx, cfg, ExecuteOptions{Store: st, Frames: 10, RunIDs: engine.NewFixedGenerator("s"), StallLimit: &limit})
	require.Error(t, err)

	report, err := Replay(ctx, st, "s", nil)
	require.NoError(t, err)
	assert.True(t, report.Match)
	assert.Equal(t, 2, report.Frames)
}

func TestReplay_Errors(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)

	_, err := Replay(ctx, st, "missing", nil)
	assert.ErrorIs(t, err, store.ErrRunNotFound)

	require.NoError(t, st.WriteRun(ctx, trace.Run{ID: "open", Config: "{}", CreatedSeq: 1}))
	_, err = Replay(ctx, st, "open", nil)
	assert.ErrorContains(t, err, "has not finished")
}
