package data

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"portfolio-frontier/internal/model"
)

// SyntheticSpec describes one instrument of a generated price table.
// Drift and Volatility are annualized.
type SyntheticSpec struct {
	Symbol     string
	Drift      float64
	Volatility float64
}

// SyntheticPrices generates business-day geometric Brownian motion paths
// ending at end. Every instrument loads on one market factor with weight
// marketLoad in [0, 1]. The same seed always yields the same table.
func SyntheticPrices(specs []SyntheticSpec, days int, end time.Time, marketLoad float64, seed uint64) (*model.PriceTable, error) {
	if days < 2 {
		return nil, fmt.Errorf("need at least 2 days, got %d", days)
	}
	if marketLoad < 0 || marketLoad > 1 {
		return nil, fmt.Errorf("market load %g outside [0, 1]", marketLoad)
	}
	symbols := make([]string, len(specs))
	for i, s := range specs {
		symbols[i] = s.Symbol
	}
	table := model.NewPriceTable(symbols)
	rng := rand.New(rand.NewPCG(seed, 0x5eed))

	dates := businessDays(end, days)
	prices := make([]float64, len(specs))
	for i := range prices {
		prices[i] = 100
	}
	const dt = 1.0 / model.TradingDaysPerYear
	idio := math.Sqrt(1 - marketLoad*marketLoad)
	for _, d := range dates {
		market := rng.NormFloat64()
		for i, s := range specs {
			z := marketLoad*market + idio*rng.NormFloat64()
			prices[i] *= math.Exp((s.Drift-0.5*s.Volatility*s.Volatility)*dt + s.Volatility*math.Sqrt(dt)*z)
			if err := table.Add(s.Symbol, d, prices[i]); err != nil {
				return nil, err
			}
		}
	}
	return table, nil
}

func businessDays(end time.Time, n int) []time.Time {
	out := make([]time.Time, n)
	d := model.DateOf(end)
	for i := n - 1; i >= 0; {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			out[i] = d
			i--
		}
		d = d.AddDate(0, 0, -1)
	}
	return out
}
