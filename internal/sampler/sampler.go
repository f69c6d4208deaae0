// Package sampler draws random look-back windows from a return series.
package sampler

import (
	"fmt"
	"math/rand/v2"

	"portfolio-frontier/internal/model"
)

// Sampler draws windows whose length in years is uniform on [MinYears, MaxYears].
type Sampler struct {
	MinYears float64
	MaxYears float64
}

func New(minYears, maxYears float64) (*Sampler, error) {
	if !(minYears > 0) || maxYears < minYears {
		return nil, fmt.Errorf("invalid years range [%g, %g]", minYears, maxYears)
	}
	return &Sampler{MinYears: minYears, MaxYears: maxYears}, nil
}

// TrialRand returns the generator for one trial. Streams depend only on the
// base seed and the trial index, never on scheduling.
func TrialRand(seed uint64, trial int) *rand.Rand {
	return rand.New(rand.NewPCG(seed, uint64(trial)))
}

// Draw samples a horizon and returns the trailing window of that length.
// The horizon is uniform on [MinYears, MaxYears); MaxYears itself is drawn
// only when the range is empty.
// A window longer than the series is clamped to the full series; the sample
// keeps the requested length so callers can tell.
func (s *Sampler) Draw(rng *rand.Rand, series *model.ReturnSeries) model.Sample {
	years := s.MinYears
	if s.MaxYears > s.MinYears {
		years = s.MinYears + rng.Float64()*(s.MaxYears-s.MinYears)
	}
	requested := int(years * model.TradingDaysPerYear)
	smp := series.Tail(requested)
	smp.Years = years
	smp.Requested = requested
	return smp
}
