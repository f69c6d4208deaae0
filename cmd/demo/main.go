package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"portfolio-frontier/internal/analysis"
	"portfolio-frontier/internal/config"
	"portfolio-frontier/internal/data"
	"portfolio-frontier/internal/logger"
	"portfolio-frontier/internal/report"
	"portfolio-frontier/internal/simulation"
)

// Demo:
// - Generate a seeded synthetic price table (no network)
// - Run a small frontier simulation over it
// - Print the best trials and optionally write CSV and charts
func main() {
	cfgPath := flag.String("config", "", "Path to YAML config (optional; instruments are replaced by the synthetic ones)")
	trials := flag.Int("trials", 40, "Number of trials")
	days := flag.Int("days", 4*252, "Number of business days to generate")
	seed := flag.Uint64("seed", 42, "Seed for prices and sampling")
	outCSV := flag.String("out", "", "Optional path to write results CSV (e.g. results/demo.csv)")
	chart := flag.String("chart", "", "Optional path to write the Sharpe-per-trial PNG")
	flag.Parse()

	if _, err := logger.Init(logger.FromEnv()); err != nil {
		panic(err)
	}

	specs := []data.SyntheticSpec{
		{Symbol: "GROWTH", Drift: 0.14, Volatility: 0.32},
		{Symbol: "VALUE", Drift: 0.09, Volatility: 0.20},
		{Symbol: "BONDS", Drift: 0.035, Volatility: 0.06},
		{Symbol: "GOLD", Drift: 0.05, Volatility: 0.15},
		{Symbol: "SMALL", Drift: 0.11, Volatility: 0.28},
	}
	table, err := data.SyntheticPrices(specs, *days, time.Now(), 0.5, *seed)
	if err != nil {
		panic(err)
	}

	// Defaults (can be overridden via --config).
	cfg := config.Defaults()
	if *cfgPath != "" {
		loaded, err := config.LoadUnchecked(*cfgPath)
		if err != nil {
			panic(err)
		}
		cfg = *loaded
	}
	cfg.UniverseFile = ""
	cfg.Instruments = table.Instruments()
	cfg.TrialCount = *trials
	cfg.RandomSeed = seed

	res, err := simulation.New().Run(context.Background(), &cfg, table)
	if err != nil {
		panic(err)
	}

	fmt.Printf("Generated %d days for %d instruments\n", *days, len(specs))
	fmt.Printf("Ran %d trials in %s (seed=%d, solver=%s, converged=%d)\n\n",
		len(res.Trials), res.Elapsed.Round(time.Millisecond), res.Seed, cfg.Solver.Name, res.ConvergedCount())

	fmt.Printf("%-4s %-6s %-6s %-8s %-8s %-8s\n", "rank", "trial", "years", "return", "vol", "sharpe")
	for _, r := range analysis.RankBySharpe(res.Trials, 5) {
		fmt.Printf("%-4d %-6d %-6.2f %-8.4f %-8.4f %-8.4f\n",
			r.Rank, r.Index, r.Years, r.ExpectedReturn, r.Volatility, r.SharpeRatio)
	}

	s := analysis.Summarize(res.Trials)
	fmt.Println("\nMean weights:")
	for i, inst := range res.Instruments {
		fmt.Printf("  %-7s %6.2f%%\n", inst, s.MeanWeights[i]*100)
	}

	if *outCSV != "" {
		if err := simulation.WriteResultsCSV(*outCSV, res.Instruments, res.Trials); err != nil {
			panic(err)
		}
		fmt.Printf("\nWrote CSV: %s\n", *outCSV)
	}
	if *chart != "" {
		buf, err := report.SharpeChart(res.Trials)
		if err != nil {
			panic(err)
		}
		if err := os.WriteFile(*chart, buf, 0o644); err != nil {
			panic(err)
		}
		fmt.Printf("Wrote chart: %s\n", *chart)
	}
}
