package model

import "fmt"

// InsufficientDataError means the aligned price table has fewer than two
// observations for the requested instruments. It is fatal and raised before
// any trial runs.
type InsufficientDataError struct {
	Instruments int
	Rows        int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: %d aligned observations for %d instruments, need at least 2", e.Rows, e.Instruments)
}

// DegenerateSampleError means a sampled window is too short to estimate a
// non-singular covariance matrix.
type DegenerateSampleError struct {
	Rows        int
	Instruments int
}

func (e *DegenerateSampleError) Error() string {
	return fmt.Sprintf("degenerate sample: %d rows for %d instruments", e.Rows, e.Instruments)
}

// SolverNonConvergenceError is a soft error: the solver stopped before
// converging and its best iterate was returned alongside this error.
type SolverNonConvergenceError struct {
	Solver     string
	Status     string
	Iterations int
}

func (e *SolverNonConvergenceError) Error() string {
	return fmt.Sprintf("%s did not converge after %d iterations (status %s)", e.Solver, e.Iterations, e.Status)
}

// SimulationAbortedError is a systemic failure that aborts the whole run.
// Partial results are discarded.
type SimulationAbortedError struct {
	Reason string
	// Trial is the trial that triggered the abort, or -1.
	Trial int
	Err   error
}

func (e *SimulationAbortedError) Error() string {
	msg := "simulation aborted: " + e.Reason
	if e.Trial >= 0 {
		msg = fmt.Sprintf("%s (trial %d)", msg, e.Trial)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SimulationAbortedError) Unwrap() error { return e.Err }
