package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/timealgebra/internal/trace"
)

func TestWriteRun_Basic(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	run := createTestRun(t, s, "run-1", 1)

	got, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, run, got)
	assert.False(t, got.Finished())
}

func TestWriteRun_Duplicate(t *testing.T) {
	s := createTestStore(t)
	createTestRun(t, s, "run-1", 1)

	err := s.WriteRun(context.Background(), trace.Run{ID: "run-1", CreatedSeq: 2})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRunExists)
}

func TestFinishRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-1", 1)

	require.NoError(t, s.FinishRun(ctx, "run-1", 12, "abc123"))

	got, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 12, got.FrameCount)
	assert.Equal(t, "abc123", got.Digest)
	assert.True(t, got.Finished())
}

func TestFinishRun_UnknownRun(t *testing.T) {
	s := createTestStore(t)
	err := s.FinishRun(context.Background(), "nope", 1, "x")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestWriteFrame_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-1", 1)

	want := createTestFrame("run-1", 0, 2)
	want.Capped = true
	require.NoError(t, s.WriteFrame(ctx, want))

	frames, err := s.ReadFrames(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, want, frames[0])

	// Constant samples come back untagged.
	assert.Nil(t, frames[0].Input.Tag)
	require.NotNil(t, frames[0].CarPos.Tag)
}

func TestWriteFrame_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-1", 1)

	f := createTestFrame("run-1", 0, 2)
	require.NoError(t, s.WriteFrame(ctx, f))

	// Same (run_id, idx) with different content is ignored.
	dup := f
	dup.Substeps = 99
	require.NoError(t, s.WriteFrame(ctx, dup))

	frames, err := s.ReadFrames(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, 2, frames[0].Substeps)
}

func TestWriteFrame_RequiresRun(t *testing.T) {
	s := createTestStore(t)
	err := s.WriteFrame(context.Background(), createTestFrame("ghost", 0, 1))
	assert.Error(t, err, "foreign key should reject frames of an unknown run")
}

func TestWriteFrames_Batch(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-1", 1)

	var want []trace.Frame
	for i := 0; i < 5; i++ {
		want = append(want, createTestFrame("run-1", i, int64(i+2)))
	}
	require.NoError(t, s.WriteFrames(ctx, want))

	got, err := s.ReadFrames(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestWriteFrames_RollsBackOnError(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-1", 1)

	frames := []trace.Frame{
		createTestFrame("run-1", 0, 2),
		createTestFrame("ghost", 1, 3),
	}
	require.Error(t, s.WriteFrames(ctx, frames))

	got, err := s.ReadFrames(ctx, "run-1")
	require.NoError(t, err)
	assert.Empty(t, got)
}
