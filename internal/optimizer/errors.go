package optimizer

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidParameter is matched by every *InvalidParameterError.
	ErrInvalidParameter = errors.New("optimizer: invalid parameter")

	// ErrSolverConvergence is matched by every *SolverConvergenceError.
	ErrSolverConvergence = errors.New("optimizer: solver did not converge")

	// ErrNoDepotFound is returned when no location carries the depot flag.
	ErrNoDepotFound = errors.New("optimizer: no depot found")

	// ErrInfeasible is returned when the routing program has no feasible assignment.
	ErrInfeasible = errors.New("optimizer: routing problem is infeasible")
)

// InvalidParameterError reports a cost/demand parameter that is missing or out of range.
type InvalidParameterError struct {
	Param  string
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("optimizer: invalid parameter %q: %s", e.Param, e.Reason)
}

func (e *InvalidParameterError) Is(target error) bool {
	return target == ErrInvalidParameter
}

// SolverConvergenceError carries the last iterate of a failed inventory solve.
type SolverConvergenceError struct {
	Q       float64
	R       float64
	Message string
}

func (e *SolverConvergenceError) Error() string {
	return fmt.Sprintf("optimizer: solver did not converge (last iterate Q=%g R=%g): %s", e.Q, e.R, e.Message)
}

func (e *SolverConvergenceError) Is(target error) bool {
	return target == ErrSolverConvergence
}
