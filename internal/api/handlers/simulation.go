package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"portfolio-frontier/internal/analysis"
	"portfolio-frontier/internal/api/models"
	"portfolio-frontier/internal/config"
	"portfolio-frontier/internal/data"
	"portfolio-frontier/internal/logger"
	"portfolio-frontier/internal/model"
	"portfolio-frontier/internal/report"
	"portfolio-frontier/internal/simulation"
	"portfolio-frontier/internal/storage"

	"github.com/gin-gonic/gin"
)

const defaultRankLimit = 10

// PriceFetcher downloads a price table from a market-data provider.
// *data.YahooClient implements it.
type PriceFetcher interface {
	FetchPriceTable(ctx context.Context, instruments []string, end time.Time, years float64) (*model.PriceTable, []string, error)
}

// SimulationHandler handles simulation-related requests
type SimulationHandler struct {
	store       *storage.Store
	prices      PriceFetcher
	engine      *simulation.Engine
	universeDir string
	now         func() time.Time
	log         *slog.Logger
}

// NewSimulationHandler creates a new simulation handler. prices may be nil,
// in which case only inline price tables are accepted.
func NewSimulationHandler(store *storage.Store, prices PriceFetcher, universeDir string) *SimulationHandler {
	return &SimulationHandler{
		store:       store,
		prices:      prices,
		engine:      simulation.New(),
		universeDir: universeDir,
		now:         time.Now,
		log:         logger.Component("api"),
	}
}

// RunSimulation handles POST /api/v1/simulations
func (h *SimulationHandler) RunSimulation(c *gin.Context) {
	req := models.SimulationRequest{Config: config.Defaults()}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, badRequest(err))
		return
	}
	ctx := c.Request.Context()

	cfg, err := h.resolveConfig(req.Config)
	if err != nil {
		writeError(c, err)
		return
	}
	table, skipped, err := h.loadPrices(ctx, cfg.Instruments, cfg.YearsRange[1], req.Prices, req.Source)
	if err != nil {
		writeError(c, err)
		return
	}
	if len(skipped) > 0 {
		cfg.Instruments = keep(cfg.Instruments, table.Instruments())
	}

	res, runErr := h.engine.Run(ctx, &cfg, table)
	if runErr != nil && (res == nil || !res.Partial) {
		writeError(c, runErr)
		return
	}
	if runErr != nil {
		h.log.Warn("simulation stopped early", "completed", len(res.Trials), "requested", res.Requested, "error", runErr)
	}

	id, err := h.store.SaveRun(ctx, &cfg, res)
	if err != nil {
		writeError(c, fmt.Errorf("save run: %w", err))
		return
	}
	logger.FromContext(logger.WithRun(ctx, id), h.log).Info("simulation stored",
		"trials", len(res.Trials), "converged", res.ConvergedCount(), "partial", res.Partial)

	resp := models.SimulationResponse{
		ID:          id,
		Instruments: res.Instruments,
		Seed:        res.Seed,
		Requested:   res.Requested,
		Partial:     res.Partial,
		ElapsedMS:   res.Elapsed.Milliseconds(),
		Skipped:     skipped,
		Summary:     analysis.Summarize(res.Trials),
	}
	if req.Options.IncludeTrials {
		resp.Trials = res.Trials
	}
	c.JSON(http.StatusOK, resp)
}

// CompareSimulations handles POST /api/v1/simulations/compare
func (h *SimulationHandler) CompareSimulations(c *gin.Context) {
	req := models.CompareRequest{BaseConfig: config.Defaults()}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, badRequest(err))
		return
	}
	ctx := c.Request.Context()

	configs := make([]config.Config, len(req.Variations))
	var instruments []string
	years := 0.0
	for i, v := range req.Variations {
		merged, err := h.resolveConfig(config.Merge(req.BaseConfig, v.Config, v.Set))
		if err != nil {
			writeError(c, fmt.Errorf("variation %q: %w", v.Name, err))
			return
		}
		configs[i] = merged
		instruments = union(instruments, merged.Instruments)
		years = max(years, merged.YearsRange[1])
	}

	table, _, err := h.loadPrices(ctx, instruments, years, req.Prices, req.Source)
	if err != nil {
		writeError(c, err)
		return
	}

	comparison := make([]models.ComparisonResult, 0, len(req.Variations))
	for i, v := range req.Variations {
		result := models.ComparisonResult{Name: v.Name}
		res, err := h.engine.Run(ctx, &configs[i], table)
		if res != nil {
			result.Seed = res.Seed
			result.Summary = analysis.Summarize(res.Trials)
		}
		if err != nil {
			_, detail := classifyError(err)
			result.Error = &detail
		}
		comparison = append(comparison, result)
	}

	c.JSON(http.StatusOK, models.CompareResponse{Comparison: comparison})
}

// ListSimulations handles GET /api/v1/simulations
func (h *SimulationHandler) ListSimulations(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	runs, err := h.store.ListRuns(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"simulations": runs})
}

// GetSimulation handles GET /api/v1/simulations/:id
func (h *SimulationHandler) GetSimulation(c *gin.Context) {
	run, err := h.store.GetRun(c.Request.Context(), c.Param("id"), true)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := models.SimulationResponse{
		ID:          run.ID,
		CreatedAt:   run.CreatedAt,
		Instruments: run.Instruments,
		Seed:        run.Seed,
		Requested:   run.Requested,
		Partial:     run.Partial,
		ElapsedMS:   run.Elapsed.Milliseconds(),
		Config:      &run.Config,
		Summary:     analysis.Summarize(run.Trials),
	}
	if c.DefaultQuery("trials", "true") != "false" {
		resp.Trials = run.Trials
	}
	c.JSON(http.StatusOK, resp)
}

// DeleteSimulation handles DELETE /api/v1/simulations/:id
func (h *SimulationHandler) DeleteSimulation(c *gin.Context) {
	if err := h.store.DeleteRun(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetTrial handles GET /api/v1/simulations/:id/trials/:index
func (h *SimulationHandler) GetTrial(c *gin.Context) {
	run, trial, ok := h.lookupTrial(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, models.TrialResponse{
		RunID:       run.ID,
		Instruments: run.Instruments,
		Trial:       trial,
	})
}

// TrialChart handles GET /api/v1/simulations/:id/trials/:index/chart.png
func (h *SimulationHandler) TrialChart(c *gin.Context) {
	run, trial, ok := h.lookupTrial(c)
	if !ok {
		return
	}
	buf, err := report.WeightsChart(run.Instruments, trial)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", buf)
}

// SharpeChart handles GET /api/v1/simulations/:id/sharpe.png
func (h *SimulationHandler) SharpeChart(c *gin.Context) {
	run, err := h.store.GetRun(c.Request.Context(), c.Param("id"), true)
	if err != nil {
		writeError(c, err)
		return
	}
	buf, err := report.SharpeChart(run.Trials)
	if err != nil {
		respondError(c, http.StatusUnprocessableEntity, "INSUFFICIENT_DATA", err.Error(), nil)
		return
	}
	c.Data(http.StatusOK, "image/png", buf)
}

// RankTrials handles GET /api/v1/simulations/:id/rank
func (h *SimulationHandler) RankTrials(c *gin.Context) {
	var req models.RankRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		writeError(c, badRequest(err))
		return
	}
	if req.Limit <= 0 {
		req.Limit = defaultRankLimit
	}
	ctx := c.Request.Context()
	run, err := h.store.GetRun(ctx, c.Param("id"), false)
	if err != nil {
		writeError(c, err)
		return
	}
	top, err := h.store.TopTrials(ctx, run.ID, req.Limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.RankResponse{
		RunID:       run.ID,
		Instruments: run.Instruments,
		Rankings:    analysis.RankBySharpe(top, req.Limit),
	})
}

// ExportCSV handles GET /api/v1/simulations/:id/trials.csv
func (h *SimulationHandler) ExportCSV(c *gin.Context) {
	run, err := h.store.GetRun(c.Request.Context(), c.Param("id"), true)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.csv"`, run.ID))
	c.Status(http.StatusOK)
	if err := simulation.WriteResults(c.Writer, run.Instruments, run.Trials); err != nil {
		_ = c.Error(err)
	}
}

func (h *SimulationHandler) lookupTrial(c *gin.Context) (*storage.Run, model.TrialResult, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		writeError(c, badRequest(fmt.Errorf("invalid trial index %q", c.Param("index"))))
		return nil, model.TrialResult{}, false
	}
	ctx := c.Request.Context()
	run, err := h.store.GetRun(ctx, c.Param("id"), false)
	if err != nil {
		writeError(c, err)
		return nil, model.TrialResult{}, false
	}
	trial, err := h.store.Trial(ctx, run.ID, index)
	if err != nil {
		writeError(c, err)
		return nil, model.TrialResult{}, false
	}
	return run, trial, true
}

// resolveConfig expands universe_file against the preset directory and
// normalizes the result. Validation happens in the engine.
func (h *SimulationHandler) resolveConfig(cfg config.Config) (config.Config, error) {
	if cfg.UniverseFile != "" && len(cfg.Instruments) == 0 {
		dir := h.universeDir
		if dir == "" {
			dir = config.DefaultUniverseDir()
		}
		u, err := config.LoadUniverse(config.ResolveUniversePath(dir, cfg.UniverseFile))
		if err != nil {
			return cfg, badRequest(err)
		}
		cfg.Instruments = u.Instruments
	}
	cfg.Instruments = append([]string(nil), cfg.Instruments...)
	cfg.Normalize()
	return cfg, nil
}

func (h *SimulationHandler) loadPrices(ctx context.Context, instruments []string, years float64, inline *data.PriceFile, source *models.DataSourceConfig) (*model.PriceTable, []string, error) {
	switch {
	case inline != nil:
		table, err := inline.Table()
		if err != nil {
			return nil, nil, badRequest(fmt.Errorf("prices: %w", err))
		}
		return table, nil, nil
	case source != nil:
		if source.Type != "yahoo" {
			return nil, nil, badRequest(fmt.Errorf("unsupported data source type: %s", source.Type))
		}
		if h.prices == nil {
			return nil, nil, badRequest(fmt.Errorf("market-data provider is not configured"))
		}
		end := h.now()
		if source.EndDate != "" {
			var err error
			if end, err = time.Parse("2006-01-02", source.EndDate); err != nil {
				return nil, nil, badRequest(fmt.Errorf("end_date must be in YYYY-MM-DD format"))
			}
		}
		if len(instruments) == 0 {
			return nil, nil, badRequest(fmt.Errorf("no instruments to fetch"))
		}
		h.log.Info("fetching prices", "instruments", len(instruments), "end", end.Format("2006-01-02"), "years", years)
		return h.prices.FetchPriceTable(ctx, instruments, end, years)
	default:
		return nil, nil, badRequest(fmt.Errorf("either prices or source is required"))
	}
}

// keep returns the elements of want present in have, in want's order.
func keep(want, have []string) []string {
	set := make(map[string]bool, len(have))
	for _, s := range have {
		set[s] = true
	}
	out := make([]string, 0, len(want))
	for _, s := range want {
		if set[s] {
			out = append(out, s)
		}
	}
	return out
}

func union(a, b []string) []string {
	seen := make(map[string]bool, len(a))
	for _, s := range a {
		seen[s] = true
	}
	for _, s := range b {
		if !seen[s] {
			seen[s] = true
			a = append(a, s)
		}
	}
	return a
}
