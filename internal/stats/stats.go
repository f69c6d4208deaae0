// Package stats estimates annualized return statistics from a sample.
package stats

import (
	"math"

	"portfolio-frontier/internal/model"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Estimate holds the annualized mean vector and covariance matrix of a sample.
type Estimate struct {
	Mean *mat.VecDense
	Cov  *mat.SymDense
}

// Dim is the number of instruments.
func (e *Estimate) Dim() int { return e.Mean.Len() }

// Compute annualizes the column means and the unbiased sample covariance of
// smp by 252. A sample is degenerate unless it has more rows than
// instruments and at least two rows: the covariance of r rows has rank at
// most r-1.
func Compute(smp model.Sample) (*Estimate, error) {
	rows, cols := smp.Rows(), smp.Cols()
	if rows < 2 || rows <= cols {
		return nil, &model.DegenerateSampleError{Rows: rows, Instruments: cols}
	}

	x := mat.NewDense(rows, cols, smp.Values())
	mean := mat.NewVecDense(cols, nil)
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, x)
		mean.SetVec(j, stat.Mean(col, nil)*model.TradingDaysPerYear)
	}

	cov := mat.NewSymDense(cols, nil)
	stat.CovarianceMatrix(cov, x, nil)
	cov.ScaleSym(model.TradingDaysPerYear, cov)

	if floats.HasNaN(mean.RawVector().Data) || hasNaN(cov) {
		return nil, &model.DegenerateSampleError{Rows: rows, Instruments: cols}
	}
	return &Estimate{Mean: mean, Cov: cov}, nil
}

func hasNaN(m *mat.SymDense) bool {
	n := m.SymmetricDim()
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := m.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return true
			}
		}
	}
	return false
}
