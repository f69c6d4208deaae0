package simulation

import (
	"time"

	"portfolio-frontier/internal/model"
)

// Result is the output of one run.
type Result struct {
	Instruments []string `json:"instruments"`
	// Seed is the base seed actually used; replaying it reproduces the run.
	Seed      uint64              `json:"seed"`
	Requested int                 `json:"requested"`
	Trials    []model.TrialResult `json:"trials"`
	// Partial is set when the run stopped on its deadline before every
	// trial completed. Trials then holds only completed trials, by index.
	Partial bool          `json:"partial"`
	Elapsed time.Duration `json:"elapsed_ns"`
}

func (r *Result) ConvergedCount() int {
	n := 0
	for _, t := range r.Trials {
		if t.Converged {
			n++
		}
	}
	return n
}

// Trial returns the trial with the given index.
func (r *Result) Trial(index int) (model.TrialResult, bool) {
	if index >= 0 && index < len(r.Trials) && r.Trials[index].Index == index {
		return r.Trials[index], true
	}
	for _, t := range r.Trials {
		if t.Index == index {
			return t, true
		}
	}
	return model.TrialResult{}, false
}
