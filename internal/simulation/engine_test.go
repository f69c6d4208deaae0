package simulation

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"portfolio-frontier/internal/config"
	"portfolio-frontier/internal/data"
	"portfolio-frontier/internal/model"
	"portfolio-frontier/internal/optimizer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

// pricesFromReturns compounds per-day log returns from a price of 100.
func pricesFromReturns(t *testing.T, instruments []string, returns [][]float64) *model.PriceTable {
	t.Helper()
	table := model.NewPriceTable(instruments)
	price := make([]float64, len(instruments))
	for i, inst := range instruments {
		price[i] = 100
		require.NoError(t, table.Add(inst, day0, price[i]))
	}
	for d, row := range returns {
		for i, inst := range instruments {
			price[i] *= math.Exp(row[i])
			require.NoError(t, table.Add(inst, day0.AddDate(0, 0, d+1), price[i]))
		}
	}
	return table
}

// twoAssetTable builds 300 days where A earns 0.001/day and B 0.0005/day,
// with uncorrelated ±1% shocks.
func twoAssetTable(t *testing.T) *model.PriceTable {
	sa := []float64{1, -1}
	sb := []float64{1, 1, -1, -1}
	rows := make([][]float64, 300)
	for d := range rows {
		rows[d] = []float64{
			0.001 + 0.01*sa[d%2],
			0.0005 + 0.01*sb[d%4],
		}
	}
	return pricesFromReturns(t, []string{"A", "B"}, rows)
}

func randomTable(t *testing.T, instruments []string, days int) *model.PriceTable {
	rng := rand.New(rand.NewPCG(11, 13))
	rows := make([][]float64, days)
	for d := range rows {
		rows[d] = make([]float64, len(instruments))
		common := rng.NormFloat64() * 0.006
		for i := range instruments {
			rows[d][i] = 0.0002*float64(i+1) + common + rng.NormFloat64()*0.01
		}
	}
	return pricesFromReturns(t, instruments, rows)
}

func seed(v uint64) *uint64 { return &v }

func baseConfig(instruments ...string) *config.Config {
	c := config.Defaults()
	c.Instruments = instruments
	c.Workers = 2
	c.RandomSeed = seed(7)
	return &c
}

func TestRunTwoAssetScenario(t *testing.T) {
	cfg := baseConfig("A", "B")
	cfg.YearsRange = [2]float64{1, 1}
	cfg.RiskFreeRate = 0.02
	cfg.TrialCount = 5
	// 0.4 * 2 < 1 leaves no feasible weights for two instruments.
	cfg.MaxWeight = 1

	res, err := New().Run(context.Background(), cfg, twoAssetTable(t))
	require.NoError(t, err)
	require.Len(t, res.Trials, 5)
	assert.False(t, res.Partial)
	assert.Equal(t, uint64(7), res.Seed)
	assert.Equal(t, []string{"A", "B"}, res.Instruments)

	for i, tr := range res.Trials {
		assert.Equal(t, i, tr.Index)
		assert.Equal(t, 252, tr.NumDays)
		assert.True(t, tr.Converged)
		assert.GreaterOrEqual(t, tr.Weights[0], tr.Weights[1])
		assert.InDelta(t, 1, tr.Weights.Sum(), 1e-6)
		assert.False(t, math.IsNaN(tr.SharpeRatio) || math.IsInf(tr.SharpeRatio, 0))
		assert.Greater(t, tr.SharpeRatio, 0.0)
		assert.GreaterOrEqual(t, tr.Volatility, 0.0)
		// Uncorrelated, equal variance: w ∝ μ - rf = (0.232, 0.106).
		assert.InDelta(t, 0.232/0.338, tr.Weights[0], 5e-3)
		assert.InDelta(t, 0.252*tr.Weights[0]+0.126*tr.Weights[1], tr.ExpectedReturn, 1e-9)
	}
}

func TestRunIsReproducibleAcrossWorkerCounts(t *testing.T) {
	instruments := []string{"X", "Y", "Z"}
	table := randomTable(t, instruments, 600)

	cfg := baseConfig(instruments...)
	cfg.YearsRange = [2]float64{0.5, 4}
	cfg.TrialCount = 24
	cfg.MaxWeight = 0.6

	cfg.Workers = 1
	seq, err := New().Run(context.Background(), cfg, table)
	require.NoError(t, err)
	cfg.Workers = 6
	par, err := New().Run(context.Background(), cfg, table)
	require.NoError(t, err)

	require.Len(t, par.Trials, 24)
	assert.Equal(t, seq.Trials, par.Trials)

	clamped := 0
	for _, tr := range seq.Trials {
		assert.True(t, optimizer.Feasible(tr.Weights, 0.6, 1e-9))
		assert.GreaterOrEqual(t, tr.Years, 0.5)
		assert.LessOrEqual(t, tr.Years, 4.0)
		if tr.NumDays < int(tr.Years*252) {
			clamped++
			assert.Equal(t, 600, tr.NumDays)
		}
	}
	assert.Positive(t, clamped)

	cfg.RandomSeed = seed(8)
	other, err := New().Run(context.Background(), cfg, table)
	require.NoError(t, err)
	assert.NotEqual(t, seq.Trials, other.Trials)
}

func TestRunDrawsSeedWhenAbsent(t *testing.T) {
	cfg := baseConfig("X", "Y")
	cfg.RandomSeed = nil
	cfg.TrialCount = 3
	cfg.MaxWeight = 0.8
	table := randomTable(t, []string{"X", "Y"}, 600)

	e := New()
	e.now = func() time.Time { return time.Unix(0, 123456789) }
	res, err := e.Run(context.Background(), cfg, table)
	require.NoError(t, err)
	assert.Equal(t, uint64(123456789), res.Seed)

	cfg.RandomSeed = seed(res.Seed)
	replay, err := New().Run(context.Background(), cfg, table)
	require.NoError(t, err)
	assert.Equal(t, res.Trials, replay.Trials)
}

func TestRunZeroTrials(t *testing.T) {
	cfg := baseConfig("A", "B")
	cfg.MaxWeight = 1
	cfg.TrialCount = 0

	res, err := New().Run(context.Background(), cfg, twoAssetTable(t))
	require.NoError(t, err)
	assert.Empty(t, res.Trials)
	assert.NotNil(t, res.Trials)
}

func TestRunInsufficientData(t *testing.T) {
	table := model.NewPriceTable([]string{"A", "B"})
	require.NoError(t, table.Add("A", day0, 10))
	require.NoError(t, table.Add("B", day0, 20))
	require.NoError(t, table.Add("A", day0.AddDate(0, 0, 1), 11))

	cfg := baseConfig("A", "B")
	cfg.MaxWeight = 1
	_, err := New().Run(context.Background(), cfg, table)
	var insufficient *model.InsufficientDataError
	require.True(t, errors.As(err, &insufficient), "got %v", err)
	assert.Equal(t, 1, insufficient.Rows)
}

func TestRunRejectsInfeasibleConfig(t *testing.T) {
	cfg := baseConfig("A", "B")
	_, err := New().Run(context.Background(), cfg, twoAssetTable(t))

	var aborted *model.SimulationAbortedError
	require.True(t, errors.As(err, &aborted))
	var invalid *config.ValidationError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "max_weight", invalid.Field)
}

func TestRunRejectsMissingInstrument(t *testing.T) {
	cfg := baseConfig("A", "C")
	cfg.MaxWeight = 1
	_, err := New().Run(context.Background(), cfg, twoAssetTable(t))
	var aborted *model.SimulationAbortedError
	require.True(t, errors.As(err, &aborted))
}

func TestRunAbortsWhenWindowsStayDegenerate(t *testing.T) {
	cfg := baseConfig("A", "B")
	cfg.MaxWeight = 1
	// At most one row per window.
	cfg.YearsRange = [2]float64{0.001, 0.007}
	cfg.MaxResampleAttempts = 3

	res, err := New().Run(context.Background(), cfg, twoAssetTable(t))
	assert.Nil(t, res)
	var aborted *model.SimulationAbortedError
	require.True(t, errors.As(err, &aborted))
	assert.GreaterOrEqual(t, aborted.Trial, 0)
	var degenerate *model.DegenerateSampleError
	assert.True(t, errors.As(err, &degenerate))
}

func TestRunResamplesShortWindows(t *testing.T) {
	cfg := baseConfig("X", "Y")
	cfg.MaxWeight = 1
	cfg.TrialCount = 60
	// Between one and five rows per window; windows of one or two rows are redrawn.
	cfg.YearsRange = [2]float64{0.005, 0.02}
	cfg.MaxResampleAttempts = 40
	table := randomTable(t, []string{"X", "Y"}, 100)

	res, err := New().Run(context.Background(), cfg, table)
	require.NoError(t, err)
	require.Len(t, res.Trials, 60)
	resampled := 0
	for _, tr := range res.Trials {
		assert.GreaterOrEqual(t, tr.NumDays, 3)
		if tr.Resamples > 0 {
			resampled++
		}
	}
	assert.Positive(t, resampled)
}

func TestRunFlagsNonConvergedTrials(t *testing.T) {
	cfg := baseConfig("X", "Y", "Z")
	cfg.MaxWeight = 0.5
	cfg.TrialCount = 4
	cfg.Solver.MaxIterations = 1
	table := randomTable(t, []string{"X", "Y", "Z"}, 700)

	res, err := New().Run(context.Background(), cfg, table)
	require.NoError(t, err)
	require.Len(t, res.Trials, 4)
	assert.Equal(t, 0, res.ConvergedCount())
	for _, tr := range res.Trials {
		assert.False(t, tr.Converged)
		assert.True(t, optimizer.Feasible(tr.Weights, 0.5, 1e-9))
	}
}

func TestRunLowercaseJSONPriceTable(t *testing.T) {
	f := data.NewPriceFile(twoAssetTable(t))
	f.Instruments = nil
	f.Series = map[string][]data.PriceFilePoint{"a": f.Series["A"], "b": f.Series["B"]}
	table, err := f.Table()
	require.NoError(t, err)

	cfg := baseConfig("a", "b")
	cfg.MaxWeight = 1
	cfg.TrialCount = 3
	cfg.Normalize()

	res, err := New().Run(context.Background(), cfg, table)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, res.Instruments)
	assert.Len(t, res.Trials, 3)
}

func TestRunProjectedGradientSolver(t *testing.T) {
	cfg := baseConfig("A", "B")
	cfg.YearsRange = [2]float64{1, 1}
	cfg.MaxWeight = 1
	cfg.TrialCount = 2
	cfg.Solver.Name = config.SolverProjectedGradient

	res, err := New().Run(context.Background(), cfg, twoAssetTable(t))
	require.NoError(t, err)
	for _, tr := range res.Trials {
		assert.True(t, tr.Converged)
		assert.InDelta(t, 0.232/0.338, tr.Weights[0], 5e-3)
	}
}

func TestRunTimeoutKeepsCompletedTrials(t *testing.T) {
	cfg := baseConfig("X", "Y", "Z")
	cfg.MaxWeight = 0.5
	cfg.TrialCount = 5000
	cfg.Workers = 1
	cfg.Timeout = config.Duration(time.Nanosecond)
	table := randomTable(t, []string{"X", "Y", "Z"}, 700)

	res, err := New().Run(context.Background(), cfg, table)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	require.NotNil(t, res)
	assert.True(t, res.Partial)
	assert.Less(t, len(res.Trials), 5000)
	for i, tr := range res.Trials {
		if i > 0 {
			assert.Greater(t, tr.Index, res.Trials[i-1].Index)
		}
		assert.Len(t, tr.Weights, 3)
		assert.InDelta(t, 1, tr.Weights.Sum(), 1e-6)
	}
}

func TestRunCancelledContext(t *testing.T) {
	cfg := baseConfig("A", "B")
	cfg.MaxWeight = 1
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := New().Run(ctx, cfg, twoAssetTable(t))
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.True(t, res.Partial)
	assert.Empty(t, res.Trials)
}

func TestResultTrialLookup(t *testing.T) {
	res := &Result{Trials: []model.TrialResult{{Index: 0}, {Index: 2}, {Index: 5}}}
	tr, ok := res.Trial(5)
	require.True(t, ok)
	assert.Equal(t, 5, tr.Index)
	_, ok = res.Trial(1)
	assert.False(t, ok)
}
