package engine

import (
	"errors"
	"fmt"
)

// RunErrorCode categorizes errors that stop a run.
type RunErrorCode string

const (
	// ErrCodeFault indicates the simulation raised a consistency fault.
	ErrCodeFault RunErrorCode = "FAULT"

	// ErrCodeRenderCheck indicates the values read at the shutter disagree in time.
	ErrCodeRenderCheck RunErrorCode = "RENDER_CHECK"

	// ErrCodeStalled indicates physics stayed capped for too many frames in a row.
	ErrCodeStalled RunErrorCode = "STALLED"

	// ErrCodeRecord indicates a recorder failed to accept a frame.
	ErrCodeRecord RunErrorCode = "RECORD"

	// ErrCodeCancelled indicates the context was cancelled between frames.
	ErrCodeCancelled RunErrorCode = "CANCELLED"
)

// RunError stops a run at a given frame. Frames before it were recorded.
type RunError struct {
	// Code identifies the error category.
	Code RunErrorCode

	// RunID identifies the affected run.
	RunID string

	// Frame is the index of the frame that failed.
	Frame int

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *RunError) Error() string {
	return fmt.Sprintf("%s at frame %d (run=%s): %v", e.Code, e.Frame, e.RunID, e.Err)
}

// Unwrap returns the underlying error, so a *timed.Fault stays reachable.
func (e *RunError) Unwrap() error {
	return e.Err
}

// CodeOf returns the RunErrorCode of err, or "" if err is not a RunError.
func CodeOf(err error) RunErrorCode {
	var re *RunError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// IsStalledError returns true if the run stopped because physics could not
// catch up. Uses errors.As to handle wrapped errors.
func IsStalledError(err error) bool {
	return CodeOf(err) == ErrCodeStalled
}
