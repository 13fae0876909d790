package store

import (
	"context"
	"fmt"

	"github.com/roach88/timealgebra/internal/trace"
)

// WriteRun inserts a run header. A header with the same ID returns
// ErrRunExists, since frames of two runs must never share an ID.
func (s *Store) WriteRun(ctx context.Context, run trace.Run) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO runs (id, scenario, config, frame_count, digest, created_seq)
		VALUES (:id, :scenario, :config, :frame_count, :digest, :created_seq)
	`, runRowOf(run))
	if isPrimaryKeyViolation(err) {
		return fmt.Errorf("write run %s: %w", run.ID, ErrRunExists)
	}
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// FinishRun records the frame count and digest of a completed run.
func (s *Store) FinishRun(ctx context.Context, runID string, frameCount int, digest string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET frame_count = ?, digest = ? WHERE id = ?
	`, frameCount, digest, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}

// WriteFrame inserts a frame record. Uses ON CONFLICT DO NOTHING so a
// repeated write of the same (run_id, idx) is ignored. The run header must
// already exist.
//
// WriteFrame makes *Store an engine.Recorder.
func (s *Store) WriteFrame(ctx context.Context, f trace.Frame) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO frames (`+frameColumns+`)
		VALUES (:run_id, :idx, :seq, :start, :step, :shutter, :substeps, :alpha, :capped,
			:car_pos, :car_pos_tag, :car_vel, :car_vel_tag, :camera, :camera_tag, :input, :input_tag)
		ON CONFLICT(run_id, idx) DO NOTHING
	`, frameRowOf(f))
	if err != nil {
		return fmt.Errorf("write frame %d: %w", f.Index, err)
	}
	return nil
}

// WriteFrames inserts frames in a single transaction.
func (s *Store) WriteFrames(ctx context.Context, frames []trace.Frame) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write frames: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamedContext(ctx, `
		INSERT INTO frames (`+frameColumns+`)
		VALUES (:run_id, :idx, :seq, :start, :step, :shutter, :substeps, :alpha, :capped,
			:car_pos, :car_pos_tag, :car_vel, :car_vel_tag, :camera, :camera_tag, :input, :input_tag)
		ON CONFLICT(run_id, idx) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("write frames: %w", err)
	}
	defer stmt.Close()

	for _, f := range frames {
		if _, err := stmt.ExecContext(ctx, frameRowOf(f)); err != nil {
			return fmt.Errorf("write frame %d: %w", f.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write frames: %w", err)
	}
	return nil
}
