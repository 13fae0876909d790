package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/timealgebra/internal/timed"
	"github.com/roach88/timealgebra/internal/trace"
)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun writes a run header with minimal required fields.
func createTestRun(t *testing.T, s *Store, id string, seq int64) trace.Run {
	t.Helper()
	run := trace.Run{
		ID:         id,
		Scenario:   "test",
		Config:     `{"inner_step":0.015625}`,
		CreatedSeq: seq,
	}
	if err := s.WriteRun(context.Background(), run); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}
	return run
}

// createTestFrame returns frame idx of a 30 Hz run.
func createTestFrame(runID string, idx int, seq int64) trace.Frame {
	start := float64(idx) / 30
	shutter := start + 1.0/30
	return trace.Frame{
		RunID:    runID,
		Index:    idx,
		Seq:      seq,
		Start:    start,
		Step:     1.0 / 30,
		Shutter:  shutter,
		Substeps: 2,
		Alpha:    0.25,
		CarPos:   trace.SampleOf(timed.At(float64(idx), shutter)),
		CarVel:   trace.SampleOf(timed.At(1.5, shutter)),
		Camera:   trace.SampleOf(timed.At(0.5, shutter+1.0/64)),
		Input:    trace.SampleOf(timed.Const(30)),
	}
}
