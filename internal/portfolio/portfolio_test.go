package portfolio

import (
	"math"
	"testing"

	"portfolio-frontier/internal/model"
	"portfolio-frontier/internal/stats"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func estimate(mean []float64, cov []float64) *stats.Estimate {
	return &stats.Estimate{
		Mean: mat.NewVecDense(len(mean), mean),
		Cov:  mat.NewSymDense(len(mean), cov),
	}
}

func TestExpectedReturnAndVolatility(t *testing.T) {
	est := estimate([]float64{0.10, 0.05}, []float64{
		0.04, 0.00,
		0.00, 0.01,
	})
	w := []float64{0.5, 0.5}

	assert.InDelta(t, 0.075, ExpectedReturn(w, est), 1e-12)
	assert.InDelta(t, math.Sqrt(0.25*0.04+0.25*0.01), Volatility(w, est), 1e-12)
}

func TestVarianceClampedAtZero(t *testing.T) {
	// Not positive semi-definite: wᵀΣw < 0 for w = (0.5, 0.5).
	est := estimate([]float64{0, 0}, []float64{
		0.0, -0.1,
		-0.1, 0.0,
	})
	w := []float64{0.5, 0.5}
	assert.Equal(t, 0.0, Variance(w, est))
	assert.Equal(t, 0.0, Volatility(w, est))
}

func TestSharpeRatio(t *testing.T) {
	est := estimate([]float64{0.12}, []float64{0.04})
	s, ok := SharpeRatio([]float64{1}, est, 0.02)
	assert.True(t, ok)
	assert.InDelta(t, 0.5, s, 1e-12)
	assert.InDelta(t, -0.5, NegativeSharpe([]float64{1}, est, 0.02), 1e-12)
}

func TestZeroVolatilityIsPenalized(t *testing.T) {
	est := estimate([]float64{0.1, 0.1}, []float64{0, 0, 0, 0})
	w := []float64{0.5, 0.5}

	_, ok := SharpeRatio(w, est, 0.02)
	assert.False(t, ok)
	assert.Equal(t, ZeroVolatilityPenalty, NegativeSharpe(w, est, 0.02))

	m := Evaluate(model.WeightVector(w), est, 0.02)
	assert.Equal(t, 0.0, m.Volatility)
	assert.Equal(t, 0.0, m.SharpeRatio)
}

func TestSharpeGradientMatchesFiniteDifference(t *testing.T) {
	est := estimate([]float64{0.10, 0.05, 0.08}, []float64{
		0.040, 0.006, 0.002,
		0.006, 0.020, 0.004,
		0.002, 0.004, 0.030,
	})
	w := []float64{0.2, 0.5, 0.3}
	grad := make([]float64, 3)
	s, ok := SharpeGradient(grad, w, est, 0.02)
	assert.True(t, ok)
	want, _ := SharpeRatio(w, est, 0.02)
	assert.InDelta(t, want, s, 1e-12)

	const h = 1e-6
	for i := range w {
		up := append([]float64(nil), w...)
		dn := append([]float64(nil), w...)
		up[i] += h
		dn[i] -= h
		su, _ := SharpeRatio(up, est, 0.02)
		sd, _ := SharpeRatio(dn, est, 0.02)
		assert.InDelta(t, (su-sd)/(2*h), grad[i], 1e-5, "component %d", i)
	}
}

func TestEvaluate(t *testing.T) {
	est := estimate([]float64{0.10, 0.05}, []float64{
		0.04, 0.01,
		0.01, 0.02,
	})
	w := model.WeightVector{0.6, 0.4}
	m := Evaluate(w, est, 0.01)
	assert.InDelta(t, 0.08, m.ExpectedReturn, 1e-12)
	variance := 0.36*0.04 + 2*0.24*0.01 + 0.16*0.02
	assert.InDelta(t, math.Sqrt(variance), m.Volatility, 1e-12)
	assert.InDelta(t, 0.07/math.Sqrt(variance), m.SharpeRatio, 1e-12)
}
