// Package simulation runs Monte Carlo trials of the max-Sharpe optimization
// over randomly sized look-back windows.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"time"

	"portfolio-frontier/internal/config"
	"portfolio-frontier/internal/logger"
	"portfolio-frontier/internal/model"
	"portfolio-frontier/internal/optimizer"
	"portfolio-frontier/internal/portfolio"
	"portfolio-frontier/internal/sampler"
	"portfolio-frontier/internal/stats"

	"golang.org/x/sync/errgroup"
)

type Engine struct {
	log *slog.Logger
	now func() time.Time
}

func New() *Engine {
	return &Engine{log: logger.Component("simulation"), now: time.Now}
}

// WithLogger returns a copy of e logging to l.
func (e *Engine) WithLogger(l *slog.Logger) *Engine {
	cp := *e
	cp.log = l
	return &cp
}

// Run validates cfg, builds the return series from table and runs every
// trial. See RunSeries for the result and error contract.
func (e *Engine) Run(ctx context.Context, cfg *config.Config, table *model.PriceTable) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if table == nil {
		return nil, &model.InsufficientDataError{Instruments: len(cfg.Instruments)}
	}
	sub, err := table.Subset(cfg.Instruments)
	if err != nil {
		return nil, &model.SimulationAbortedError{Reason: "price table does not cover the instruments", Trial: -1, Err: err}
	}
	series, err := model.BuildReturnSeries(sub)
	if err != nil {
		return nil, err
	}
	return e.RunSeries(ctx, cfg, series)
}

// RunSeries runs cfg.TrialCount trials against series. Trial i's result is
// Trials[i].
//
// A *model.SimulationAbortedError discards every result. When ctx is done or
// cfg.Timeout elapses first, the completed trials are returned with
// Partial set, together with an error wrapping the context error.
func (e *Engine) RunSeries(ctx context.Context, cfg *config.Config, series *model.ReturnSeries) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !sameInstruments(series.Instruments(), cfg.Instruments) {
		return nil, &model.SimulationAbortedError{
			Reason: fmt.Sprintf("series instruments %v do not match configured %v", series.Instruments(), cfg.Instruments),
			Trial:  -1,
		}
	}

	seed := uint64(e.now().UnixNano())
	if cfg.RandomSeed != nil {
		seed = *cfg.RandomSeed
	}
	start := e.now()
	res := &Result{
		Instruments: append([]string(nil), cfg.Instruments...),
		Seed:        seed,
		Requested:   cfg.TrialCount,
		Trials:      []model.TrialResult{},
	}
	if cfg.TrialCount == 0 {
		return res, nil
	}

	sp, err := sampler.New(cfg.YearsRange[0], cfg.YearsRange[1])
	if err != nil {
		return nil, &model.SimulationAbortedError{Reason: "invalid years range", Trial: -1, Err: err}
	}
	solver, err := optimizer.New(cfg.Solver.Name, optimizer.Settings{
		MaxIterations: cfg.Solver.MaxIterations,
		Tolerance:     cfg.Solver.Tolerance,
	})
	if err != nil {
		return nil, &model.SimulationAbortedError{Reason: "invalid solver", Trial: -1, Err: err}
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	log := logger.FromContext(ctx, e.log)
	log.Info("simulation started",
		"trials", cfg.TrialCount,
		"instruments", len(cfg.Instruments),
		"rows", series.Len(),
		"seed", seed,
		"workers", workers,
		"solver", solver.Name(),
	)

	runCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(cfg.Timeout))
		defer cancel()
	}

	t := trialRunner{
		cfg:     cfg,
		series:  series,
		sampler: sp,
		solver:  solver,
		seed:    seed,
		log:     log,
	}
	trials := make([]model.TrialResult, cfg.TrialCount)
	done := make([]bool, cfg.TrialCount)

	g, gctx := errgroup.WithContext(runCtx)
	g.SetLimit(workers)
	for i := 0; i < cfg.TrialCount; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			r, err := t.run(i)
			if err != nil {
				return err
			}
			trials[i] = r
			done[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Error("simulation aborted", "error", err)
		return nil, err
	}
	res.Elapsed = e.now().Sub(start)

	completed := 0
	for _, ok := range done {
		if ok {
			completed++
		}
	}
	if ctxErr := runCtx.Err(); ctxErr != nil && completed < cfg.TrialCount {
		for i, ok := range done {
			if ok {
				res.Trials = append(res.Trials, trials[i])
			}
		}
		sort.Slice(res.Trials, func(a, b int) bool { return res.Trials[a].Index < res.Trials[b].Index })
		res.Partial = true
		log.Warn("simulation stopped early",
			"completed", len(res.Trials),
			"requested", cfg.TrialCount,
			"elapsed", res.Elapsed,
		)
		return res, fmt.Errorf("simulation stopped after %d of %d trials: %w", len(res.Trials), cfg.TrialCount, ctxErr)
	}

	res.Trials = trials
	log.Info("simulation finished",
		"trials", len(trials),
		"converged", res.ConvergedCount(),
		"elapsed", res.Elapsed,
	)
	return res, nil
}

type trialRunner struct {
	cfg     *config.Config
	series  *model.ReturnSeries
	sampler *sampler.Sampler
	solver  optimizer.Solver
	seed    uint64
	log     *slog.Logger
}

// run executes one trial. Degenerate windows are redrawn from the trial's own
// generator up to MaxResampleAttempts times.
func (t trialRunner) run(index int) (model.TrialResult, error) {
	rng := sampler.TrialRand(t.seed, index)
	var lastErr error
	for attempt := 0; attempt < t.cfg.MaxResampleAttempts; attempt++ {
		smp := t.sampler.Draw(rng, t.series)
		est, err := stats.Compute(smp)
		if err != nil {
			var degenerate *model.DegenerateSampleError
			if !errors.As(err, &degenerate) {
				return model.TrialResult{}, &model.SimulationAbortedError{Reason: "statistics failed", Trial: index, Err: err}
			}
			t.log.Debug("degenerate window, resampling",
				"trial", index,
				"attempt", attempt+1,
				"rows", smp.Rows(),
				"years", smp.Years,
			)
			lastErr = err
			continue
		}

		opt, err := t.solver.Solve(optimizer.Problem{
			Estimate:     est,
			RiskFreeRate: t.cfg.RiskFreeRate,
			MaxWeight:    t.cfg.MaxWeight,
		})
		if err != nil {
			var nc *model.SolverNonConvergenceError
			if !errors.As(err, &nc) {
				return model.TrialResult{}, &model.SimulationAbortedError{Reason: "optimizer failed", Trial: index, Err: err}
			}
			t.log.Warn("trial did not converge",
				"trial", index,
				"solver", nc.Solver,
				"status", nc.Status,
				"iterations", nc.Iterations,
			)
		}

		m := portfolio.Evaluate(opt.Weights, est, t.cfg.RiskFreeRate)
		return model.TrialResult{
			Index:          index,
			Volatility:     m.Volatility,
			ExpectedReturn: m.ExpectedReturn,
			SharpeRatio:    m.SharpeRatio,
			Weights:        opt.Weights,
			Converged:      opt.Converged,
			Years:          smp.Years,
			NumDays:        smp.Rows(),
			Resamples:      attempt,
		}, nil
	}
	return model.TrialResult{}, &model.SimulationAbortedError{
		Reason: fmt.Sprintf("no usable window after %d attempts", t.cfg.MaxResampleAttempts),
		Trial:  index,
		Err:    lastErr,
	}
}

func sameInstruments(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
