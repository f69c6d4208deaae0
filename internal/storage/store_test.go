package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"portfolio-frontier/internal/config"
	"portfolio-frontier/internal/model"
	"portfolio-frontier/internal/simulation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "db", "frontier.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRun() (*config.Config, *simulation.Result) {
	cfg := config.Defaults()
	cfg.Instruments = []string{"AAPL", "MSFT", "BND"}
	seed := uint64(1<<63 + 5)
	cfg.RandomSeed = &seed
	cfg.Timeout = config.Duration(30 * time.Second)

	res := &simulation.Result{
		Instruments: cfg.Instruments,
		Seed:        seed,
		Requested:   3,
		Elapsed:     1500 * time.Millisecond,
		Trials: []model.TrialResult{
			{Index: 0, Volatility: 0.12, ExpectedReturn: 0.08, SharpeRatio: 0.5, Weights: model.WeightVector{0.4, 0.2, 0.4}, Converged: true, Years: 1.5, NumDays: 378},
			{Index: 1, Volatility: 0.10, ExpectedReturn: 0.09, SharpeRatio: 0.7, Weights: model.WeightVector{0.4, 0.4, 0.2}, Converged: false, Years: 2.2, NumDays: 554, Resamples: 1},
			{Index: 2, Volatility: 0.15, ExpectedReturn: 0.07, SharpeRatio: 0.33, Weights: model.WeightVector{0.2, 0.4, 0.4}, Converged: true, Years: 1.1, NumDays: 277},
		},
	}
	return &cfg, res
}

func TestSaveAndGetRun(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	cfg, res := sampleRun()

	id, err := s.SaveRun(ctx, cfg, res)
	require.NoError(t, err)
	assert.Len(t, id, 36)

	run, err := s.GetRun(ctx, id, true)
	require.NoError(t, err)
	assert.Equal(t, id, run.ID)
	assert.Equal(t, res.Instruments, run.Instruments)
	assert.Equal(t, res.Seed, run.Seed)
	assert.Equal(t, 3, run.Requested)
	assert.Equal(t, 1500*time.Millisecond, run.Elapsed)
	assert.Equal(t, res.Trials, run.Trials)
	assert.Equal(t, cfg.Instruments, run.Config.Instruments)
	assert.Equal(t, config.Duration(30*time.Second), run.Config.Timeout)
	require.NotNil(t, run.Config.RandomSeed)
	assert.Equal(t, *cfg.RandomSeed, *run.Config.RandomSeed)
	assert.WithinDuration(t, time.Now(), run.CreatedAt, time.Minute)

	noTrials, err := s.GetRun(ctx, id, false)
	require.NoError(t, err)
	assert.Empty(t, noTrials.Trials)
}

func TestTrialLookup(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	cfg, res := sampleRun()
	id, err := s.SaveRun(ctx, cfg, res)
	require.NoError(t, err)

	tr, err := s.Trial(ctx, id, 1)
	require.NoError(t, err)
	assert.Equal(t, res.Trials[1], tr)

	_, err = s.Trial(ctx, id, 7)
	assert.True(t, errors.Is(err, ErrTrialNotFound))
	_, err = s.Trial(ctx, "missing", 0)
	assert.True(t, errors.Is(err, ErrRunNotFound))
}

func TestTopTrials(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	cfg, res := sampleRun()
	id, err := s.SaveRun(ctx, cfg, res)
	require.NoError(t, err)

	top, err := s.TopTrials(ctx, id, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, 1, top[0].Index)
	assert.Equal(t, 0, top[1].Index)

	all, err := s.TopTrials(ctx, id, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestListAndDeleteRuns(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	cfg, res := sampleRun()
	first, err := s.SaveRun(ctx, cfg, res)
	require.NoError(t, err)
	res.Partial = true
	res.Trials = res.Trials[:1]
	second, err := s.SaveRun(ctx, cfg, res)
	require.NoError(t, err)

	runs, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second, runs[0].ID)
	assert.True(t, runs[0].Partial)
	assert.Equal(t, 1, runs[0].Trials)
	assert.Equal(t, first, runs[1].ID)
	assert.Equal(t, 3, runs[1].Trials)

	require.NoError(t, s.DeleteRun(ctx, first))
	_, err = s.GetRun(ctx, first, false)
	assert.True(t, errors.Is(err, ErrRunNotFound))
	assert.True(t, errors.Is(s.DeleteRun(ctx, first), ErrRunNotFound))
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frontier.db")
	s, err := Open(path)
	require.NoError(t, err)
	cfg, res := sampleRun()
	id, err := s.SaveRun(context.Background(), cfg, res)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	run, err := s.GetRun(context.Background(), id, true)
	require.NoError(t, err)
	assert.Len(t, run.Trials, 3)
}
