package model

// WeightVector holds one weight per instrument, in configured instrument order.
type WeightVector []float64

// Sum returns the total allocation.
func (w WeightVector) Sum() float64 {
	s := 0.0
	for _, x := range w {
		s += x
	}
	return s
}

// Clone returns an independent copy.
func (w WeightVector) Clone() WeightVector {
	return append(WeightVector(nil), w...)
}

// EqualWeights returns 1/n for each of n instruments.
func EqualWeights(n int) WeightVector {
	w := make(WeightVector, n)
	for i := range w {
		w[i] = 1 / float64(n)
	}
	return w
}

// TrialResult is the outcome of one simulation trial.
// Index is the trial's position in the run output.
type TrialResult struct {
	Index          int          `json:"index"`
	Volatility     float64      `json:"volatility"`
	ExpectedReturn float64      `json:"expected_return"`
	SharpeRatio    float64      `json:"sharpe_ratio"`
	Weights        WeightVector `json:"weights"`
	// Converged is false when the solver stopped on an iteration or evaluation
	// limit; the weights are then the best iterate found.
	Converged bool `json:"converged"`

	Years     float64 `json:"years"`
	NumDays   int     `json:"num_days"`
	Resamples int     `json:"resamples"`
}
