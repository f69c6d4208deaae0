// Package optimizer finds the maximum-Sharpe long-only portfolio under a
// per-instrument weight cap.
package optimizer

import (
	"fmt"
	"sort"

	"portfolio-frontier/internal/model"
	"portfolio-frontier/internal/stats"
)

// Problem is one max-Sharpe instance: weights in [0, MaxWeight] summing to 1.
type Problem struct {
	Estimate     *stats.Estimate
	RiskFreeRate float64
	MaxWeight    float64
}

// Dim is the number of instruments.
func (p Problem) Dim() int { return p.Estimate.Dim() }

func (p Problem) validate() error {
	if p.Estimate == nil || p.Estimate.Dim() == 0 {
		return fmt.Errorf("empty problem")
	}
	if !(p.MaxWeight > 0) || p.MaxWeight > 1 {
		return fmt.Errorf("max weight %g outside (0, 1]", p.MaxWeight)
	}
	if p.MaxWeight*float64(p.Dim()) < 1-feasibilityTol {
		return fmt.Errorf("infeasible bounds: %d instruments with max weight %g cannot sum to 1", p.Dim(), p.MaxWeight)
	}
	return nil
}

// Result is the solver's answer. Weights always satisfy the constraints,
// even when Converged is false.
type Result struct {
	Weights     model.WeightVector
	Converged   bool
	Status      string
	Iterations  int
	Evaluations int
	// Objective is the negative Sharpe ratio at Weights.
	Objective float64
}

// Settings bound a solver run.
type Settings struct {
	MaxIterations int
	Tolerance     float64
}

// Solver maximizes the Sharpe ratio of a Problem starting from equal weights.
// Implementations are deterministic and safe for concurrent use.
//
// Solve returns a *model.SolverNonConvergenceError together with a usable
// Result when the iteration budget runs out; any other error means no Result.
type Solver interface {
	Name() string
	Solve(p Problem) (Result, error)
}

// Info describes a registered solver.
type Info struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	UsesGradient bool   `json:"uses_gradient"`
}

var registry = map[string]struct {
	info Info
	make func(Settings) Solver
}{
	"nelder-mead": {
		info: Info{
			Name:        "nelder-mead",
			Description: "Nelder-Mead simplex search over the capped simplex via Euclidean projection",
		},
		make: func(s Settings) Solver { return &NelderMead{Settings: s} },
	},
	"projected-gradient": {
		info: Info{
			Name:         "projected-gradient",
			Description:  "Projected gradient ascent on the Sharpe ratio with Armijo backtracking",
			UsesGradient: true,
		},
		make: func(s Settings) Solver { return &ProjectedGradient{Settings: s} },
	},
}

// New returns the named solver.
func New(name string, s Settings) (Solver, error) {
	entry, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown solver %q", name)
	}
	return entry.make(s.withDefaults()), nil
}

// Solvers lists the registered solvers sorted by name.
func Solvers() []Info {
	out := make([]Info, 0, len(registry))
	for _, e := range registry {
		out = append(out, e.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s Settings) withDefaults() Settings {
	if s.MaxIterations <= 0 {
		s.MaxIterations = 2000
	}
	if s.Tolerance <= 0 {
		s.Tolerance = 1e-10
	}
	return s
}

func nonConvergence(solver string, r Result) error {
	return &model.SolverNonConvergenceError{Solver: solver, Status: r.Status, Iterations: r.Iterations}
}
