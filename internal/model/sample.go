package model

import "time"

// Sample is a contiguous suffix of a ReturnSeries used by a single trial.
// It shares storage with its series and must be treated as read-only.
type Sample struct {
	// Years is the lookback horizon drawn for the trial.
	Years float64
	// Requested is round-down(Years * 252) before clamping to the series length.
	Requested int
	Start     time.Time
	End       time.Time

	rows int
	cols int
	data []float64
}

// Rows is the number of return observations in the sample.
func (s Sample) Rows() int { return s.rows }

// Cols is the number of instruments.
func (s Sample) Cols() int { return s.cols }

// Clamped reports whether the requested window exceeded the available history.
func (s Sample) Clamped() bool { return s.Requested > s.rows }

// Values exposes the row-major backing data. Callers must not modify it.
func (s Sample) Values() []float64 { return s.data }

// At returns the return of instrument col at row.
func (s Sample) At(row, col int) float64 { return s.data[row*s.cols+col] }
