package model

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// TradingDaysPerYear is the annualization factor for daily statistics.
const TradingDaysPerYear = 252

// Symbol canonicalizes an instrument name: surrounding space trimmed and
// upper-cased. Configs, universes and price files all key on this form.
func Symbol(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }

// PricePoint is one adjusted close observation for an instrument.
type PricePoint struct {
	Date  time.Time
	Close float64
}

// PriceTable holds per-instrument price observations keyed by calendar date.
// Instrument order is significant: it is the column order of every derived
// series, weight vector and exported row.
type PriceTable struct {
	instruments []string
	series      map[string]map[time.Time]float64
}

// NewPriceTable creates an empty table for the given instruments, in order.
func NewPriceTable(instruments []string) *PriceTable {
	t := &PriceTable{
		instruments: append([]string(nil), instruments...),
		series:      make(map[string]map[time.Time]float64, len(instruments)),
	}
	for _, inst := range instruments {
		t.series[inst] = map[time.Time]float64{}
	}
	return t
}

// Instruments returns the instrument list in table order.
func (t *PriceTable) Instruments() []string {
	return append([]string(nil), t.instruments...)
}

// Add records a close for instrument on the calendar day of date.
// Non-finite or non-positive closes are treated as missing observations.
// A later Add for the same day overwrites the earlier one.
func (t *PriceTable) Add(instrument string, date time.Time, close float64) error {
	obs, ok := t.series[instrument]
	if !ok {
		return fmt.Errorf("unknown instrument %q", instrument)
	}
	if math.IsNaN(close) || math.IsInf(close, 0) || close <= 0 {
		return nil
	}
	obs[DateOf(date)] = close
	return nil
}

// Points returns the observations of one instrument sorted by date.
func (t *PriceTable) Points(instrument string) []PricePoint {
	obs := t.series[instrument]
	out := make([]PricePoint, 0, len(obs))
	for d, c := range obs {
		out = append(out, PricePoint{Date: d, Close: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Subset returns a table restricted to instruments, in the given order.
// Every instrument must be present in t.
func (t *PriceTable) Subset(instruments []string) (*PriceTable, error) {
	out := NewPriceTable(instruments)
	for _, inst := range instruments {
		obs, ok := t.series[inst]
		if !ok {
			return nil, fmt.Errorf("instrument %q not in price table", inst)
		}
		for d, c := range obs {
			out.series[inst][d] = c
		}
	}
	return out, nil
}

// Len is the number of observations recorded for instrument.
func (t *PriceTable) Len(instrument string) int { return len(t.series[instrument]) }

// Align inner-joins all instruments on their common dates.
// prices[row][col] follows the instrument order of the table.
func (t *PriceTable) Align() (dates []time.Time, prices [][]float64) {
	if len(t.instruments) == 0 {
		return nil, nil
	}
	first := t.series[t.instruments[0]]
	for d := range first {
		shared := true
		for _, inst := range t.instruments[1:] {
			if _, ok := t.series[inst][d]; !ok {
				shared = false
				break
			}
		}
		if shared {
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	prices = make([][]float64, len(dates))
	for r, d := range dates {
		row := make([]float64, len(t.instruments))
		for c, inst := range t.instruments {
			row[c] = t.series[inst][d]
		}
		prices[r] = row
	}
	return dates, prices
}

// DateOf truncates a timestamp to its calendar day in UTC.
func DateOf(ts time.Time) time.Time {
	y, m, d := ts.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
