package harness

import (
	"github.com/roach88/timealgebra/internal/engine"
	"github.com/roach88/timealgebra/internal/trace"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success: the run ended as expected and
	// every assertion held.
	Pass bool `json:"pass"`

	// RunID is the ID stamped on every frame.
	RunID string `json:"run_id"`

	// Summary is the engine's account of the run.
	Summary engine.Summary `json:"summary"`

	// Frames holds the recorded frames, read back from the store.
	Frames []trace.Frame `json:"frames"`

	// Fault is the code of the error that stopped the run, if any.
	Fault string `json:"fault,omitempty"`

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Frames: []trace.Frame{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
