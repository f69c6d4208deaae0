package optimizer

import (
	"portfolio-frontier/internal/model"
	"portfolio-frontier/internal/portfolio"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

// convergedStatuses are the gonum termination statuses counted as converged.
var convergedStatuses = map[optimize.Status]bool{
	optimize.Success:             true,
	optimize.FunctionThreshold:   true,
	optimize.FunctionConvergence: true,
	optimize.GradientThreshold:   true,
	optimize.StepConvergence:     true,
	optimize.MethodConverge:      true,
}

// NelderMead runs gonum's Nelder-Mead over unconstrained y. Each point is
// mapped onto the feasible set with ProjectCapped, and the squared projection
// distance is added to the objective so the search stays near the set.
type NelderMead struct {
	Settings Settings
}

func (s *NelderMead) Name() string { return "nelder-mead" }

func (s *NelderMead) Solve(p Problem) (Result, error) {
	if err := p.validate(); err != nil {
		return Result{}, err
	}
	n := p.Dim()
	settings := s.Settings.withDefaults()

	objective := func(y []float64) float64 {
		w := ProjectCapped(y, p.MaxWeight)
		dist := floats.Distance(y, w, 2)
		return portfolio.NegativeSharpe(w, p.Estimate, p.RiskFreeRate) + dist*dist
	}

	x0 := model.EqualWeights(n)
	result, err := optimize.Minimize(
		optimize.Problem{Func: objective},
		x0,
		&optimize.Settings{
			MajorIterations: settings.MaxIterations,
			FuncEvaluations: settings.MaxIterations * (n + 2) * 4,
			Converger: &optimize.FunctionConverge{
				Absolute:   settings.Tolerance,
				Iterations: 50,
			},
		},
		&optimize.NelderMead{},
	)

	best := x0
	status := optimize.Failure
	out := Result{}
	if result != nil {
		best = result.X
		status = result.Status
		out.Iterations = result.Stats.MajorIterations
		out.Evaluations = result.Stats.FuncEvaluations
	}
	out.Weights = model.WeightVector(ProjectCapped(best, p.MaxWeight))
	out.Objective = portfolio.NegativeSharpe(out.Weights, p.Estimate, p.RiskFreeRate)
	out.Status = status.String()
	out.Converged = err == nil && convergedStatuses[status]
	if !out.Converged {
		return out, nonConvergence(s.Name(), out)
	}
	return out, nil
}
