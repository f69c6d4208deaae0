package analysis

import (
	"sort"

	"portfolio-frontier/internal/model"
)

type RankedTrial struct {
	Rank int `json:"rank"`
	model.TrialResult
}

// RankBySharpe sorts trials by Sharpe ratio, highest first. Ties keep trial
// order. limit <= 0 returns every trial.
func RankBySharpe(trials []model.TrialResult, limit int) []RankedTrial {
	sorted := append([]model.TrialResult(nil), trials...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SharpeRatio > sorted[j].SharpeRatio
	})
	if limit > 0 && limit < len(sorted) {
		sorted = sorted[:limit]
	}
	out := make([]RankedTrial, len(sorted))
	for i, t := range sorted {
		out[i] = RankedTrial{Rank: i + 1, TrialResult: t}
	}
	return out
}

// EfficientTrials returns the trials not dominated by any other trial, i.e.
// no other trial has lower-or-equal volatility and strictly higher return.
// The result is ordered by volatility.
func EfficientTrials(trials []model.TrialResult) []model.TrialResult {
	sorted := append([]model.TrialResult(nil), trials...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Volatility != sorted[j].Volatility {
			return sorted[i].Volatility < sorted[j].Volatility
		}
		return sorted[i].ExpectedReturn > sorted[j].ExpectedReturn
	})
	var out []model.TrialResult
	for _, t := range sorted {
		if len(out) == 0 || t.ExpectedReturn > out[len(out)-1].ExpectedReturn {
			out = append(out, t)
		}
	}
	return out
}
