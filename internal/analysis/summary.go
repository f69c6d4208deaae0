package analysis

import (
	"math"
	"sort"

	"portfolio-frontier/internal/model"
)

// Distribution summarizes one metric across trials.
type Distribution struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
	P05  float64 `json:"p05"`
	P95  float64 `json:"p95"`
}

// Summary is a run-level view of the frontier dataset.
type Summary struct {
	Count     int `json:"count"`
	Converged int `json:"converged"`

	// Indices refer to TrialResult.Index; -1 when there are no trials.
	BestSharpeIndex    int `json:"best_sharpe_index"`
	MinVolatilityIndex int `json:"min_volatility_index"`

	Volatility     Distribution `json:"volatility"`
	ExpectedReturn Distribution `json:"expected_return"`
	SharpeRatio    Distribution `json:"sharpe_ratio"`

	// MeanWeights is the average allocation per instrument, in instrument order.
	MeanWeights []float64 `json:"mean_weights"`
}

func Summarize(trials []model.TrialResult) Summary {
	s := Summary{BestSharpeIndex: -1, MinVolatilityIndex: -1}
	if len(trials) == 0 {
		return s
	}
	s.Count = len(trials)

	vols := make([]float64, 0, len(trials))
	rets := make([]float64, 0, len(trials))
	sharpes := make([]float64, 0, len(trials))
	bestSharpe, minVol := math.Inf(-1), math.Inf(1)
	s.MeanWeights = make([]float64, len(trials[0].Weights))

	for _, t := range trials {
		if t.Converged {
			s.Converged++
		}
		vols = append(vols, t.Volatility)
		rets = append(rets, t.ExpectedReturn)
		sharpes = append(sharpes, t.SharpeRatio)
		if t.SharpeRatio > bestSharpe {
			bestSharpe = t.SharpeRatio
			s.BestSharpeIndex = t.Index
		}
		if t.Volatility < minVol {
			minVol = t.Volatility
			s.MinVolatilityIndex = t.Index
		}
		for i := range s.MeanWeights {
			if i < len(t.Weights) {
				s.MeanWeights[i] += t.Weights[i]
			}
		}
	}
	for i := range s.MeanWeights {
		s.MeanWeights[i] /= float64(len(trials))
	}

	s.Volatility = distribution(vols)
	s.ExpectedReturn = distribution(rets)
	s.SharpeRatio = distribution(sharpes)
	return s
}

func distribution(vals []float64) Distribution {
	sort.Float64s(vals)
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return Distribution{
		Min:  vals[0],
		Max:  vals[len(vals)-1],
		Mean: sum / float64(len(vals)),
		P05:  percentileSorted(vals, 0.05),
		P95:  percentileSorted(vals, 0.95),
	}
}

func percentileSorted(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
