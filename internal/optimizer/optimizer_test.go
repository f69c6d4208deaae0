package optimizer

import (
	"errors"
	"testing"

	"portfolio-frontier/internal/model"
	"portfolio-frontier/internal/portfolio"
	"portfolio-frontier/internal/stats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func diagEstimate(mean, variance []float64) *stats.Estimate {
	n := len(mean)
	cov := mat.NewSymDense(n, nil)
	for i, v := range variance {
		cov.SetSym(i, i, v)
	}
	return &stats.Estimate{Mean: mat.NewVecDense(n, mean), Cov: cov}
}

func solvers(t *testing.T) []Solver {
	t.Helper()
	var out []Solver
	for _, info := range Solvers() {
		s, err := New(info.Name, Settings{MaxIterations: 5000, Tolerance: 1e-12})
		require.NoError(t, err)
		out = append(out, s)
	}
	return out
}

func TestSolversListed(t *testing.T) {
	infos := Solvers()
	require.Len(t, infos, 2)
	assert.Equal(t, "nelder-mead", infos[0].Name)
	assert.Equal(t, "projected-gradient", infos[1].Name)
	assert.True(t, infos[1].UsesGradient)

	_, err := New("sqp", Settings{})
	assert.Error(t, err)
}

func TestTangencyPortfolioUncapped(t *testing.T) {
	// Uncorrelated assets: w ∝ (μ - rf) / σ² = (2, 4).
	p := Problem{
		Estimate:     diagEstimate([]float64{0.10, 0.06}, []float64{0.04, 0.01}),
		RiskFreeRate: 0.02,
		MaxWeight:    1,
	}
	for _, s := range solvers(t) {
		t.Run(s.Name(), func(t *testing.T) {
			res, err := s.Solve(p)
			require.NoError(t, err)
			assert.True(t, res.Converged)
			assert.InDeltaSlice(t, []float64{1.0 / 3, 2.0 / 3}, res.Weights, 1e-3)
			assert.InDelta(t, 1, res.Weights.Sum(), 1e-9)
		})
	}
}

func TestCapBindsAtOptimum(t *testing.T) {
	p := Problem{
		Estimate:     diagEstimate([]float64{0.10, 0.06}, []float64{0.04, 0.01}),
		RiskFreeRate: 0.02,
		MaxWeight:    0.5,
	}
	for _, s := range solvers(t) {
		t.Run(s.Name(), func(t *testing.T) {
			res, err := s.Solve(p)
			require.NoError(t, err)
			assert.InDeltaSlice(t, []float64{0.5, 0.5}, res.Weights, 1e-4)
			assert.True(t, Feasible(res.Weights, 0.5, 1e-9))
		})
	}
}

func TestIdenticalUncorrelatedAssetsGiveEqualWeights(t *testing.T) {
	p := Problem{
		Estimate:     diagEstimate([]float64{0.08, 0.08, 0.08, 0.08}, []float64{0.02, 0.02, 0.02, 0.02}),
		RiskFreeRate: 0,
		MaxWeight:    0.4,
	}
	for _, s := range solvers(t) {
		t.Run(s.Name(), func(t *testing.T) {
			res, err := s.Solve(p)
			require.NoError(t, err)
			assert.InDeltaSlice(t, []float64{0.25, 0.25, 0.25, 0.25}, res.Weights, 1e-3)
		})
	}
}

func TestSolversAgreeWithCapActive(t *testing.T) {
	p := Problem{
		Estimate:     diagEstimate([]float64{0.12, 0.08, 0.05}, []float64{0.09, 0.04, 0.01}),
		RiskFreeRate: 0.02,
		MaxWeight:    0.4,
	}
	var sharpe []float64
	for _, s := range solvers(t) {
		res, err := s.Solve(p)
		require.NoError(t, err, s.Name())
		assert.True(t, Feasible(res.Weights, 0.4, 1e-9), s.Name())
		assert.InDelta(t, 0.4, res.Weights[2], 1e-3, s.Name())
		v, ok := portfolio.SharpeRatio(res.Weights, p.Estimate, p.RiskFreeRate)
		require.True(t, ok)
		sharpe = append(sharpe, v)
	}
	assert.InDelta(t, sharpe[0], sharpe[1], 1e-5)
}

func TestNonConvergenceReturnsBestIterate(t *testing.T) {
	p := Problem{
		Estimate:     diagEstimate([]float64{0.12, 0.08, 0.05}, []float64{0.09, 0.04, 0.01}),
		RiskFreeRate: 0.02,
		MaxWeight:    0.6,
	}
	for _, name := range []string{"nelder-mead", "projected-gradient"} {
		t.Run(name, func(t *testing.T) {
			s, err := New(name, Settings{MaxIterations: 1, Tolerance: 1e-12})
			require.NoError(t, err)

			res, err := s.Solve(p)
			var nc *model.SolverNonConvergenceError
			require.True(t, errors.As(err, &nc), "got %v", err)
			assert.Equal(t, name, nc.Solver)
			assert.False(t, res.Converged)
			assert.Len(t, res.Weights, 3)
			assert.True(t, Feasible(res.Weights, 0.6, 1e-9))
		})
	}
}

func TestSolveIsDeterministic(t *testing.T) {
	p := Problem{
		Estimate: &stats.Estimate{
			Mean: mat.NewVecDense(3, []float64{0.11, 0.07, 0.04}),
			Cov: mat.NewSymDense(3, []float64{
				0.050, 0.010, 0.002,
				0.010, 0.030, 0.004,
				0.002, 0.004, 0.010,
			}),
		},
		RiskFreeRate: 0.02,
		MaxWeight:    0.5,
	}
	for _, s := range solvers(t) {
		a, errA := s.Solve(p)
		b, errB := s.Solve(p)
		assert.Equal(t, errA, errB, s.Name())
		assert.Equal(t, a.Weights, b.Weights, s.Name())
	}
}

func TestInfeasibleBoundsRejected(t *testing.T) {
	p := Problem{
		Estimate:     diagEstimate([]float64{0.1, 0.1, 0.1}, []float64{0.01, 0.01, 0.01}),
		RiskFreeRate: 0.02,
		MaxWeight:    0.3,
	}
	for _, s := range solvers(t) {
		_, err := s.Solve(p)
		require.Error(t, err, s.Name())
		var nc *model.SolverNonConvergenceError
		assert.False(t, errors.As(err, &nc))
	}
}
