package dynamics

import (
	"errors"
	"fmt"
)

// Domain errors shared by solvers and the adjoint pass.
var (
	// ErrNotDifferentiable indicates a field without vector-Jacobian support
	// was handed to code that needs gradients.
	ErrNotDifferentiable = errors.New("dynamics: field does not implement vector-Jacobian products")

	// ErrDimension indicates mismatched vector dimensions.
	ErrDimension = errors.New("dynamics: dimension mismatch")

	// ErrInvalidState indicates a state vector containing NaN or Inf.
	ErrInvalidState = errors.New("dynamics: invalid state (NaN or Inf detected)")

	// ErrTimeGrid indicates a time grid that is not strictly monotonic.
	ErrTimeGrid = errors.New("dynamics: time points not strictly monotonic")

	// ErrStepTooSmall indicates an adaptive timestep shrank below the minimum.
	ErrStepTooSmall = errors.New("dynamics: adaptive timestep below minimum")

	// ErrMaxSteps indicates the solver exhausted its step budget.
	ErrMaxSteps = errors.New("dynamics: maximum step count exceeded")
)

// SolveError wraps an error with the time and step at which it occurred.
type SolveError struct {
	T       float64
	Step    int
	Wrapped error
}

func (e *SolveError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.T, e.Wrapped)
}

func (e *SolveError) Unwrap() error {
	return e.Wrapped
}
