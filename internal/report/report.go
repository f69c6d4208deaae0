// Package report renders static PNG charts of simulation results.
package report

import (
	"errors"
	"fmt"
	"strconv"

	"portfolio-frontier/internal/model"

	"github.com/vicanso/go-charts/v2"
)

const (
	chartWidth  = 900
	chartHeight = 500
)

// WeightsChart renders one trial's allocation as a bar chart.
func WeightsChart(instruments []string, trial model.TrialResult) ([]byte, error) {
	if len(instruments) == 0 {
		return nil, errors.New("no instruments provided")
	}
	if len(trial.Weights) != len(instruments) {
		return nil, fmt.Errorf("trial %d has %d weights for %d instruments", trial.Index, len(trial.Weights), len(instruments))
	}

	values := make([]float64, len(trial.Weights))
	for i, w := range trial.Weights {
		values[i] = w * 100
	}
	yMin, yMax := 0.0, 100.0

	title := fmt.Sprintf("Trial %d weights (%%)", trial.Index)
	subtitle := fmt.Sprintf("Sharpe %.3f • return %.2f%% • volatility %.2f%%",
		trial.SharpeRatio, trial.ExpectedReturn*100, trial.Volatility*100)

	p, err := charts.BarRender(
		[][]float64{values},
		charts.TitleTextOptionFunc(title, subtitle),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: instruments}),
		charts.YAxisOptionFunc(charts.YAxisOption{Min: &yMin, Max: &yMax, DivideCount: 5}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(chartWidth),
		charts.HeightOptionFunc(chartHeight),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render weights chart: %w", err)
	}
	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to generate chart bytes: %w", err)
	}
	return buf, nil
}

// SharpeChart renders the Sharpe ratio of each trial against its index.
func SharpeChart(trials []model.TrialResult) ([]byte, error) {
	if len(trials) < 2 {
		return nil, errors.New("need at least two trials to plot")
	}

	values := make([]float64, len(trials))
	xLabels := make([]string, len(trials))
	yMin, yMax := trials[0].SharpeRatio, trials[0].SharpeRatio
	for i, t := range trials {
		values[i] = t.SharpeRatio
		xLabels[i] = strconv.Itoa(t.Index)
		yMin = min(yMin, t.SharpeRatio)
		yMax = max(yMax, t.SharpeRatio)
	}
	pad := (yMax - yMin) * 0.05
	if pad == 0 {
		pad = 0.1
	}
	yMin -= pad
	yMax += pad

	split := len(trials) / 10
	if split < 1 {
		split = 1
	}

	p, err := charts.LineRender(
		[][]float64{values},
		charts.TitleTextOptionFunc("Sharpe ratio by trial", fmt.Sprintf("%d trials", len(trials))),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        xLabels,
			SplitNumber: split,
			BoundaryGap: charts.FalseFlag(),
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{Min: &yMin, Max: &yMax, DivideCount: 5}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(chartWidth),
		charts.HeightOptionFunc(chartHeight),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render sharpe chart: %w", err)
	}
	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to generate chart bytes: %w", err)
	}
	return buf, nil
}
