// Package portfolio evaluates weight vectors against estimated statistics.
package portfolio

import (
	"math"

	"portfolio-frontier/internal/model"
	"portfolio-frontier/internal/stats"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ZeroVolatilityPenalty is the objective value assigned to weights whose
// portfolio volatility is zero and whose Sharpe ratio is therefore undefined.
const ZeroVolatilityPenalty = 1e10

// ExpectedReturn is dot(mean, w).
func ExpectedReturn(w []float64, est *stats.Estimate) float64 {
	return floats.Dot(est.Mean.RawVector().Data, w)
}

// Variance is wᵀ Σ w, clamped to be non-negative.
func Variance(w []float64, est *stats.Estimate) float64 {
	v := mat.NewVecDense(len(w), w)
	return math.Max(0, mat.Inner(v, est.Cov, v))
}

func Volatility(w []float64, est *stats.Estimate) float64 {
	return math.Sqrt(Variance(w, est))
}

// SharpeRatio returns (return - rf) / volatility. ok is false when the
// volatility is zero.
func SharpeRatio(w []float64, est *stats.Estimate, rf float64) (sharpe float64, ok bool) {
	vol := Volatility(w, est)
	if vol == 0 {
		return 0, false
	}
	return (ExpectedReturn(w, est) - rf) / vol, true
}

// NegativeSharpe is the minimization objective. Zero-volatility weights get
// ZeroVolatilityPenalty.
func NegativeSharpe(w []float64, est *stats.Estimate, rf float64) float64 {
	s, ok := SharpeRatio(w, est, rf)
	if !ok {
		return ZeroVolatilityPenalty
	}
	return -s
}

// SharpeGradient writes d(Sharpe)/dw into grad and returns the Sharpe ratio.
// ok is false when the volatility is zero, in which case grad is zeroed.
func SharpeGradient(grad, w []float64, est *stats.Estimate, rf float64) (sharpe float64, ok bool) {
	n := len(w)
	wv := mat.NewVecDense(n, w)
	sigmaW := mat.NewVecDense(n, nil)
	sigmaW.MulVec(est.Cov, wv)
	variance := math.Max(0, mat.Dot(wv, sigmaW))
	vol := math.Sqrt(variance)
	if vol == 0 {
		for i := range grad {
			grad[i] = 0
		}
		return 0, false
	}
	excess := ExpectedReturn(w, est) - rf
	mu := est.Mean.RawVector().Data
	for i := 0; i < n; i++ {
		grad[i] = mu[i]/vol - excess*sigmaW.AtVec(i)/(vol*variance)
	}
	return excess / vol, true
}

// Metrics are the reported statistics of one weight vector.
type Metrics struct {
	ExpectedReturn float64
	Volatility     float64
	SharpeRatio    float64
}

// Evaluate computes the reported metrics. An undefined Sharpe ratio is
// reported as 0 so results stay JSON-encodable.
func Evaluate(w model.WeightVector, est *stats.Estimate, rf float64) Metrics {
	m := Metrics{
		ExpectedReturn: ExpectedReturn(w, est),
		Volatility:     Volatility(w, est),
	}
	if m.Volatility > 0 {
		m.SharpeRatio = (m.ExpectedReturn - rf) / m.Volatility
	}
	return m
}
