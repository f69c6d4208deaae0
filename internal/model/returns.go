package model

import (
	"fmt"
	"math"
	"time"
)

// ReturnSeries is the aligned daily log-return matrix of a PriceTable.
// Rows are time steps (oldest first), columns follow the instrument order.
// A ReturnSeries is immutable once built and safe for concurrent readers.
type ReturnSeries struct {
	instruments []string
	dates       []time.Time
	data        []float64
}

// BuildReturnSeries aligns the table on its common dates and computes
// ln(p_t / p_{t-1}) per instrument. The first aligned row and any row with a
// non-finite return are dropped.
func BuildReturnSeries(table *PriceTable) (*ReturnSeries, error) {
	instruments := table.Instruments()
	dates, prices := table.Align()
	if len(instruments) == 0 || len(dates) < 2 {
		return nil, &InsufficientDataError{Instruments: len(instruments), Rows: len(dates)}
	}

	n := len(instruments)
	s := &ReturnSeries{
		instruments: instruments,
		dates:       make([]time.Time, 0, len(dates)-1),
		data:        make([]float64, 0, (len(dates)-1)*n),
	}
	row := make([]float64, n)
	for t := 1; t < len(prices); t++ {
		finite := true
		for i := 0; i < n; i++ {
			r := math.Log(prices[t][i] / prices[t-1][i])
			if math.IsNaN(r) || math.IsInf(r, 0) {
				finite = false
				break
			}
			row[i] = r
		}
		if !finite {
			continue
		}
		s.dates = append(s.dates, dates[t])
		s.data = append(s.data, row...)
	}
	if len(s.dates) == 0 {
		return nil, &InsufficientDataError{Instruments: n, Rows: len(dates)}
	}
	return s, nil
}

// NewReturnSeries wraps precomputed returns. rows[t][i] is the return of
// instrument i at step t; every row must have len(instruments) entries.
func NewReturnSeries(instruments []string, dates []time.Time, rows [][]float64) (*ReturnSeries, error) {
	n := len(instruments)
	if n == 0 || len(rows) == 0 {
		return nil, &InsufficientDataError{Instruments: n, Rows: len(rows)}
	}
	s := &ReturnSeries{
		instruments: append([]string(nil), instruments...),
		data:        make([]float64, 0, len(rows)*n),
	}
	for t, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("row %d has %d values, want %d", t, len(row), n)
		}
		s.data = append(s.data, row...)
	}
	if len(dates) == len(rows) {
		s.dates = append([]time.Time(nil), dates...)
	} else {
		s.dates = make([]time.Time, len(rows))
	}
	return s, nil
}

// Instruments returns the column order of the series.
func (s *ReturnSeries) Instruments() []string {
	return append([]string(nil), s.instruments...)
}

// NumInstruments is the column count.
func (s *ReturnSeries) NumInstruments() int { return len(s.instruments) }

// Len is the number of return rows.
func (s *ReturnSeries) Len() int { return len(s.dates) }

// Row returns a copy of the returns at step t.
func (s *ReturnSeries) Row(t int) []float64 {
	n := len(s.instruments)
	return append([]float64(nil), s.data[t*n:(t+1)*n]...)
}

// Tail returns the most recent n rows as a Sample. n is clamped to [0, Len()].
func (s *ReturnSeries) Tail(n int) Sample {
	requested := n
	if n < 0 {
		n = 0
	}
	if n > s.Len() {
		n = s.Len()
	}
	cols := len(s.instruments)
	start := s.Len() - n
	smp := Sample{
		Requested: requested,
		rows:      n,
		cols:      cols,
		data:      s.data[start*cols : s.Len()*cols : s.Len()*cols],
	}
	if n > 0 {
		smp.Start = s.dates[start]
		smp.End = s.dates[s.Len()-1]
	}
	return smp
}
