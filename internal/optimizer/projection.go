package optimizer

import "math"

const feasibilityTol = 1e-12

// ProjectCapped returns the Euclidean projection of y onto
// {w : 0 <= w_i <= upper, sum(w) = 1}. The set must be non-empty
// (len(y)*upper >= 1).
//
// The projection has the form w_i = clip(y_i - tau, 0, upper); tau is found by
// bisection on the monotone map tau -> sum_i clip(y_i - tau, 0, upper).
func ProjectCapped(y []float64, upper float64) []float64 {
	n := len(y)
	w := make([]float64, n)
	if n == 0 {
		return w
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range y {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	// sum(lo) = n*upper >= 1, sum(hi) = 0.
	lo -= upper
	for i := 0; i < 200 && hi-lo > 1e-16*math.Max(1, math.Abs(hi)); i++ {
		mid := 0.5 * (lo + hi)
		if cappedSum(y, mid, upper) >= 1 {
			lo = mid
		} else {
			hi = mid
		}
	}
	tau := lo
	free := 0
	sum := 0.0
	for i, v := range y {
		w[i] = clip(v-tau, upper)
		sum += w[i]
		if w[i] > 0 && w[i] < upper {
			free++
		}
	}
	// Spread the bisection residual over coordinates strictly inside the box.
	if r := 1 - sum; r != 0 && free > 0 {
		adj := r / float64(free)
		for i := range w {
			if w[i] > 0 && w[i] < upper {
				w[i] = clip(w[i]+adj, upper)
			}
		}
	}
	return w
}

func cappedSum(y []float64, tau, upper float64) float64 {
	s := 0.0
	for _, v := range y {
		s += clip(v-tau, upper)
	}
	return s
}

func clip(v, upper float64) float64 {
	if v < 0 {
		return 0
	}
	if v > upper {
		return upper
	}
	return v
}

// Feasible reports whether w lies in the capped simplex within tol.
func Feasible(w []float64, upper, tol float64) bool {
	sum := 0.0
	for _, v := range w {
		if v < -tol || v > upper+tol || math.IsNaN(v) {
			return false
		}
		sum += v
	}
	return math.Abs(sum-1) <= tol
}
