package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/timealgebra/internal/store"
)

func recordedDB(t *testing.T, src string, runIDs ...string) string {
	t.Helper()
	dir := t.TempDir()
	cfg := writeConfig(t, dir, src)
	dbPath := filepath.Join(dir, "runs.db")
	for _, id := range runIDs {
		recordRun(t, dbPath, cfg, id)
	}
	return dbPath
}

func TestReplayMissingDatabaseFlag(t *testing.T) {
	_, err := execute(t, "replay")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestReplayNonExistentDatabase(t *testing.T) {
	_, err := execute(t, "replay", "--db", filepath.Join(t.TempDir(), "missing.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestReplayEmptyDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := execute(t, "replay", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "No finished runs to replay.")
}

func TestReplayAllRuns(t *testing.T) {
	dbPath := recordedDB(t, `simulation: {
	input: {kind: "noise", seed: 3}
	frames: {count: 12, jitter: 0.25, seed: 5}
}
`, "run-1", "run-2")

	out, err := execute(t, "replay", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "✓ run-1")
	assert.Contains(t, out.String(), "✓ run-2")
	assert.Contains(t, out.String(), "✓ 2 run(s) reproduced")
}

func TestReplaySpecificRunJSON(t *testing.T) {
	dbPath := recordedDB(t, "simulation: {frames: count: 5}\n", "run-1", "run-2")

	out, err := execute(t, "--format", "json", "replay", "--db", dbPath, "--run", "run-2")
	require.NoError(t, err)

	var result ReplayResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, result.AllReproduced)
	require.Len(t, result.Runs, 1)
	r := result.Runs[0]
	assert.Equal(t, "run-2", r.RunID)
	assert.Equal(t, 5, r.Frames)
	assert.True(t, r.Match)
	assert.Equal(t, -1, r.FirstMismatch)
	assert.Equal(t, r.StoredDigest, r.ReplayDigest)
}

func TestReplayStalledRun(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir, stallingConfig)
	dbPath := filepath.Join(dir, "runs.db")
	_, err := execute(t, "run", "--db", dbPath, "--run-id", "stuck", cfg)
	require.Error(t, err)

	// The stopped run replays to the frames it recorded.
	out, err := execute(t, "--format", "json", "replay", "--db", dbPath, "--run", "stuck")
	require.NoError(t, err)
	var result ReplayResult
	decodeResponse(t, out, &result)
	require.Len(t, result.Runs, 1)
	assert.Equal(t, 60, result.Runs[0].Frames)
	assert.True(t, result.AllReproduced)
}

func TestReplayDetectsMismatch(t *testing.T) {
	dbPath := recordedDB(t, "simulation: {frames: count: 6}\n", "run-1")

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	_, err = st.DB().Exec(
		`UPDATE runs SET config = replace(config, '"inner_step":0.015625', '"inner_step":0.0078125') WHERE id = ?`,
		"run-1")
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := execute(t, "--verbose", "replay", "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out.String(), "✗ run-1")
	assert.Contains(t, out.String(), "first difference at frame 0")
	assert.Contains(t, out.String(), "Determinism verification failed")
}

func TestReplayUnknownRun(t *testing.T) {
	dbPath := recordedDB(t, "simulation: {frames: count: 2}\n", "run-1")

	_, err := execute(t, "replay", "--db", dbPath, "--run", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.ErrorIs(t, err, store.ErrRunNotFound)
}

func TestReplayHelpText(t *testing.T) {
	cmd := NewReplayCommand(&RootOptions{Format: "text"})
	assert.Contains(t, cmd.Long, "frame by frame")
	assert.Contains(t, cmd.Long, "Exit codes")
}
