package substep

import (
	"errors"
	"fmt"
)

// StepsExceededError is returned when a single outer step needs more inner
// steps than the configured cap. The remaining balance is carried into the
// next call.
type StepsExceededError struct {
	Steps   int     // Inner steps run before stopping
	Limit   int     // Configured cap
	Balance float64 // Time still owed to the inner clock
}

// Error implements the error interface.
func (e *StepsExceededError) Error() string {
	return fmt.Sprintf("sub-step cap reached: %d steps >= %d limit, %g s still owed",
		e.Steps, e.Limit, e.Balance)
}

// IsStepsExceededError returns true if the error is a StepsExceededError.
// Uses errors.As to handle wrapped errors.
func IsStepsExceededError(err error) bool {
	var se *StepsExceededError
	return errors.As(err, &se)
}
