package store

import (
	"context"
	"fmt"

	"github.com/roach88/timealgebra/internal/trace"
)

// Verification is the result of recomputing a stored run's digest.
type Verification struct {
	RunID          string
	StoredDigest   string
	ComputedDigest string
	StoredFrames   int // frame_count from the run header
	FoundFrames    int // frame rows actually present
}

// OK reports whether the stored header matches the stored frames.
func (v Verification) OK() bool {
	return v.StoredDigest == v.ComputedDigest && v.StoredFrames == v.FoundFrames
}

// VerifyRun recomputes the digest of a run from its frame rows and compares
// it with the header. An unfinished run reports an empty stored digest and
// never verifies.
func (s *Store) VerifyRun(ctx context.Context, runID string) (Verification, error) {
	run, err := s.ReadRun(ctx, runID)
	if err != nil {
		return Verification{}, err
	}

	frames, err := s.ReadFrames(ctx, runID)
	if err != nil {
		return Verification{}, err
	}

	digest, err := trace.Digest(frames)
	if err != nil {
		return Verification{}, fmt.Errorf("verify run %s: %w", runID, err)
	}

	return Verification{
		RunID:          runID,
		StoredDigest:   run.Digest,
		ComputedDigest: digest,
		StoredFrames:   run.FrameCount,
		FoundFrames:    len(frames),
	}, nil
}
