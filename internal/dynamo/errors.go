package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrInvalidState indicates a state vector with NaN or Inf components.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrDimensionMismatch indicates mismatched state/control dimensions.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and system")

	// ErrUnknownIntegrator is returned when an integrator name is not registered.
	ErrUnknownIntegrator = errors.New("dynamo: unknown integrator")
)

// DimensionError reports the expected and actual length of a vector.
type DimensionError struct {
	What     string
	Expected int
	Got      int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("dynamo: %s has dimension %d, want %d", e.What, e.Got, e.Expected)
}

func (e *DimensionError) Unwrap() error {
	return ErrDimensionMismatch
}
