package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/timealgebra/internal/trace"
)

// ReadRun returns the header of a run.
func (s *Store) ReadRun(ctx context.Context, id string) (trace.Run, error) {
	var row runRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, scenario, config, frame_count, digest, created_seq
		FROM runs
		WHERE id = ?
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return trace.Run{}, fmt.Errorf("read run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return trace.Run{}, fmt.Errorf("read run: %w", err)
	}
	return row.run(), nil
}

// ReadFrames returns the frames of a run ordered by seq, then index.
// Returns an empty slice (not nil) if the run has no frames.
func (s *Store) ReadFrames(ctx context.Context, runID string) ([]trace.Frame, error) {
	var rows []frameRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+frameColumns+`
		FROM frames
		WHERE run_id = ?
		ORDER BY seq ASC, idx ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("read frames: %w", err)
	}

	frames := make([]trace.Frame, 0, len(rows))
	for _, row := range rows {
		frames = append(frames, row.frame())
	}
	return frames, nil
}

// ListRuns returns every run header in creation order.
func (s *Store) ListRuns(ctx context.Context) ([]trace.Run, error) {
	var rows []runRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, scenario, config, frame_count, digest, created_seq
		FROM runs
		ORDER BY created_seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	runs := make([]trace.Run, 0, len(rows))
	for _, row := range rows {
		runs = append(runs, row.run())
	}
	return runs, nil
}

// MaxSeq returns the highest seq stored in runs or frames, or 0 for an
// empty store. A process resuming writes starts its clock here.
func (s *Store) MaxSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := s.db.GetContext(ctx, &seq, `
		SELECT MAX(
			COALESCE((SELECT MAX(created_seq) FROM runs), 0),
			COALESCE((SELECT MAX(seq) FROM frames), 0)
		)
	`)
	if err != nil {
		return 0, fmt.Errorf("max seq: %w", err)
	}
	return seq, nil
}
