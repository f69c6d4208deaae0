package optimizer

import (
	"math"

	"portfolio-frontier/internal/model"
	"portfolio-frontier/internal/portfolio"

	"gonum.org/v1/gonum/floats"
)

const (
	armijo          = 1e-4
	maxBacktracks   = 60
	stationaryStep  = 1e-14
	initialStepSize = 1.0
)

// ProjectedGradient performs gradient ascent on the Sharpe ratio, projecting
// every step back onto the capped simplex.
type ProjectedGradient struct {
	Settings Settings
}

func (s *ProjectedGradient) Name() string { return "projected-gradient" }

func (s *ProjectedGradient) Solve(p Problem) (Result, error) {
	if err := p.validate(); err != nil {
		return Result{}, err
	}
	n := p.Dim()
	settings := s.Settings.withDefaults()

	w := ProjectCapped(model.EqualWeights(n), p.MaxWeight)
	grad := make([]float64, n)
	step := make([]float64, n)
	out := Result{Status: "IterationLimit"}
	alpha := initialStepSize

	for out.Iterations < settings.MaxIterations {
		out.Iterations++
		sharpe, ok := portfolio.SharpeGradient(grad, w, p.Estimate, p.RiskFreeRate)
		out.Evaluations++
		if !ok {
			out.Status = "ZeroVolatility"
			break
		}

		var (
			cand     []float64
			candS    float64
			accepted bool
		)
		for k := 0; k < maxBacktracks; k++ {
			floats.AddScaledTo(step, w, alpha, grad)
			cand = ProjectCapped(step, p.MaxWeight)
			floats.SubTo(step, cand, w)
			if floats.Norm(step, math.Inf(1)) < stationaryStep {
				break
			}
			candS, ok = portfolio.SharpeRatio(cand, p.Estimate, p.RiskFreeRate)
			out.Evaluations++
			if ok && candS >= sharpe+armijo*floats.Dot(grad, step) {
				accepted = true
				break
			}
			alpha /= 2
		}
		if !accepted {
			out.Status = "StepConvergence"
			out.Converged = true
			break
		}
		w = cand
		if candS-sharpe <= settings.Tolerance*(1+math.Abs(sharpe)) {
			out.Status = "FunctionConvergence"
			out.Converged = true
			break
		}
		alpha = math.Min(alpha*2, 1e6)
	}

	out.Weights = model.WeightVector(w)
	out.Objective = portfolio.NegativeSharpe(w, p.Estimate, p.RiskFreeRate)
	if !out.Converged {
		return out, nonConvergence(s.Name(), out)
	}
	return out, nil
}
