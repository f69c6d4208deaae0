package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"portfolio-frontier/internal/analysis"
	"portfolio-frontier/internal/config"
	"portfolio-frontier/internal/data"
	"portfolio-frontier/internal/logger"
	"portfolio-frontier/internal/model"
	"portfolio-frontier/internal/report"
	"portfolio-frontier/internal/simulation"
	"portfolio-frontier/internal/storage"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	if _, err := logger.Init(logger.FromEnv()); err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "simulate":
		cmdSimulate(os.Args[2:])
	case "show":
		cmdShow(os.Args[2:])
	case "rank":
		cmdRank(os.Args[2:])
	case "summary":
		cmdSummary(os.Args[2:])
	case "runs":
		cmdRuns(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("usage:")
	fmt.Println("  cli simulate --config examples/config.yaml --prices prices.json --out results/frontier.csv [--db data/frontier.db]")
	fmt.Println("  cli simulate --config examples/config.yaml --fetch [--end 2024-06-28]")
	fmt.Println("  cli show --run ID --trial N [--chart weights.png]")
	fmt.Println("  cli rank --run ID --limit 10")
	fmt.Println("  cli summary --results results/frontier.csv [--chart sharpe.png]")
	fmt.Println("  cli runs")
	fmt.Println("")
	fmt.Println("notes:")
	fmt.Println("  - simulate writes one CSV row per trial: Volatility,Return,Sharpe Ratio,<weights>,Converged")
	fmt.Println("  - --db defaults to DB_PATH or data/frontier.db; pass --db '' to skip persistence")
	fmt.Println("  - interrupting simulate keeps the trials completed so far")
}

func cmdSimulate(args []string) {
	fs := flag.NewFlagSet("simulate", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to YAML config")
	pricesPath := fs.String("prices", "", "Path to a price table (.json or .csv)")
	fetch := fs.Bool("fetch", false, "Download prices from Yahoo instead of --prices")
	endDate := fs.String("end", "", "Last date to fetch (YYYY-MM-DD, default today)")
	outPath := fs.String("out", "results/frontier.csv", "Output CSV path")
	dbPath := fs.String("db", storage.DefaultPath(), "SQLite database to store the run in ('' to skip)")
	seed := fs.String("seed", "", "Override random_seed")
	trials := fs.Int("trials", 0, "Override trial_count")
	workers := fs.Int("workers", 0, "Override workers")
	solver := fs.String("solver", "", "Override solver.name (nelder-mead|projected-gradient)")
	timeout := fs.Duration("timeout", 0, "Override the run timeout")
	_ = fs.Parse(args)

	if *cfgPath == "" {
		fmt.Println("--config is required")
		os.Exit(2)
	}
	if (*pricesPath == "") == !*fetch {
		fmt.Println("exactly one of --prices or --fetch is required")
		os.Exit(2)
	}

	base, err := config.LoadUnchecked(*cfgPath)
	must(err)

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	var override config.Config
	if set["seed"] {
		v, err := strconv.ParseUint(*seed, 10, 64)
		must(err)
		override.RandomSeed = &v
	}
	override.TrialCount = *trials
	override.Workers = *workers
	override.Solver.Name = *solver
	override.Timeout = config.Duration(*timeout)
	cfg := config.Merge(*base, override, map[string]bool{"trial_count": set["trials"]})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var table *model.PriceTable
	if *fetch {
		end := time.Now()
		if *endDate != "" {
			end, err = time.Parse("2006-01-02", *endDate)
			must(err)
		}
		var skipped []string
		table, skipped, err = data.NewYahooClient("").FetchPriceTable(ctx, cfg.Instruments, end, cfg.YearsRange[1])
		must(err)
		if len(skipped) > 0 {
			fmt.Printf("Skipped instruments without data: %s\n", strings.Join(skipped, ", "))
			cfg.Instruments = table.Instruments()
		}
	} else {
		table, err = data.LoadPrices(*pricesPath)
		must(err)
	}

	res, runErr := simulation.New().Run(ctx, &cfg, table)
	if runErr != nil && (res == nil || !res.Partial) {
		must(runErr)
	}
	if runErr != nil {
		fmt.Printf("Run stopped early (%v): keeping %d of %d trials\n", runErr, len(res.Trials), res.Requested)
	}

	if err := os.MkdirAll(filepath.Dir(*outPath), 0o755); err != nil {
		must(err)
	}
	must(simulation.WriteResultsCSV(*outPath, res.Instruments, res.Trials))
	fmt.Printf("Wrote %d trials to %s (seed=%d, converged=%d, elapsed=%s)\n",
		len(res.Trials), *outPath, res.Seed, res.ConvergedCount(), res.Elapsed.Round(time.Millisecond))

	if *dbPath != "" {
		store, err := storage.Open(*dbPath)
		must(err)
		defer store.Close()
		id, err := store.SaveRun(context.Background(), &cfg, res)
		must(err)
		fmt.Printf("Stored run %s in %s\n", id, *dbPath)
	}

	printSummary(res.Instruments, analysis.Summarize(res.Trials))
}

func cmdShow(args []string) {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	dbPath := fs.String("db", storage.DefaultPath(), "SQLite database path")
	runID := fs.String("run", "", "Run ID")
	index := fs.Int("trial", 0, "Trial index")
	chartPath := fs.String("chart", "", "Optional: write a PNG of the trial's weights")
	_ = fs.Parse(args)

	if *runID == "" {
		fmt.Println("--run is required")
		os.Exit(2)
	}
	store, err := storage.Open(*dbPath)
	must(err)
	defer store.Close()

	ctx := context.Background()
	run, err := store.GetRun(ctx, *runID, false)
	must(err)
	trial, err := store.Trial(ctx, run.ID, *index)
	must(err)

	fmt.Printf("run %s trial %d (window %.2fy, %d days, resamples %d, converged %v)\n",
		run.ID, trial.Index, trial.Years, trial.NumDays, trial.Resamples, trial.Converged)
	fmt.Printf("return=%.4f volatility=%.4f sharpe=%.4f\n", trial.ExpectedReturn, trial.Volatility, trial.SharpeRatio)
	for i, inst := range run.Instruments {
		fmt.Printf("  %-8s %7.2f%%\n", inst, trial.Weights[i]*100)
	}

	if *chartPath != "" {
		buf, err := report.WeightsChart(run.Instruments, trial)
		must(err)
		must(os.WriteFile(*chartPath, buf, 0o644))
		fmt.Printf("Wrote %s\n", *chartPath)
	}
}

func cmdRank(args []string) {
	fs := flag.NewFlagSet("rank", flag.ExitOnError)
	dbPath := fs.String("db", storage.DefaultPath(), "SQLite database path")
	runID := fs.String("run", "", "Run ID")
	limit := fs.Int("limit", 10, "Number of trials to show (0=all)")
	_ = fs.Parse(args)

	if *runID == "" {
		fmt.Println("--run is required")
		os.Exit(2)
	}
	store, err := storage.Open(*dbPath)
	must(err)
	defer store.Close()

	ctx := context.Background()
	run, err := store.GetRun(ctx, *runID, false)
	must(err)
	top, err := store.TopTrials(ctx, run.ID, *limit)
	must(err)

	fmt.Printf("%-4s %-6s %-8s %-8s %-8s %s\n", "rank", "trial", "sharpe", "return", "vol", "weights")
	for _, r := range analysis.RankBySharpe(top, *limit) {
		fmt.Printf("%-4d %-6d %-8.4f %-8.4f %-8.4f %s\n",
			r.Rank, r.Index, r.SharpeRatio, r.ExpectedReturn, r.Volatility, formatWeights(run.Instruments, r.Weights))
	}
}

func cmdSummary(args []string) {
	fs := flag.NewFlagSet("summary", flag.ExitOnError)
	resultsPath := fs.String("results", "", "Results CSV written by simulate")
	chartPath := fs.String("chart", "", "Optional: write a PNG of the Sharpe ratio per trial")
	_ = fs.Parse(args)

	if *resultsPath == "" {
		fmt.Println("--results is required")
		os.Exit(2)
	}
	instruments, trials, err := simulation.ReadResultsCSV(*resultsPath)
	must(err)
	printSummary(instruments, analysis.Summarize(trials))

	efficient := analysis.EfficientTrials(trials)
	fmt.Printf("efficient trials: %d of %d\n", len(efficient), len(trials))

	if *chartPath != "" {
		buf, err := report.SharpeChart(trials)
		must(err)
		must(os.WriteFile(*chartPath, buf, 0o644))
		fmt.Printf("Wrote %s\n", *chartPath)
	}
}

func cmdRuns(args []string) {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	dbPath := fs.String("db", storage.DefaultPath(), "SQLite database path")
	limit := fs.Int("limit", 20, "Number of runs to list")
	_ = fs.Parse(args)

	store, err := storage.Open(*dbPath)
	must(err)
	defer store.Close()

	runs, err := store.ListRuns(context.Background(), *limit)
	must(err)
	fmt.Printf("%-36s %-20s %-7s %-7s %s\n", "id", "created", "trials", "partial", "instruments")
	for _, r := range runs {
		fmt.Printf("%-36s %-20s %-7d %-7v %s\n",
			r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Trials, r.Partial, strings.Join(r.Instruments, ","))
	}
}

func printSummary(instruments []string, s analysis.Summary) {
	fmt.Printf("trials=%d converged=%d\n", s.Count, s.Converged)
	if s.Count == 0 {
		return
	}
	fmt.Printf("sharpe     min=%.4f mean=%.4f max=%.4f (best trial %d)\n",
		s.SharpeRatio.Min, s.SharpeRatio.Mean, s.SharpeRatio.Max, s.BestSharpeIndex)
	fmt.Printf("return     min=%.4f mean=%.4f max=%.4f\n",
		s.ExpectedReturn.Min, s.ExpectedReturn.Mean, s.ExpectedReturn.Max)
	fmt.Printf("volatility min=%.4f mean=%.4f max=%.4f (lowest trial %d)\n",
		s.Volatility.Min, s.Volatility.Mean, s.Volatility.Max, s.MinVolatilityIndex)
	fmt.Printf("mean weights: %s\n", formatWeights(instruments, s.MeanWeights))
}

func formatWeights(instruments []string, w []float64) string {
	parts := make([]string, 0, len(w))
	for i, x := range w {
		name := strconv.Itoa(i)
		if i < len(instruments) {
			name = instruments[i]
		}
		parts = append(parts, fmt.Sprintf("%s=%.1f%%", name, x*100))
	}
	return strings.Join(parts, " ")
}

func must(err error) {
	if err == nil {
		return
	}
	var aborted *model.SimulationAbortedError
	if errors.As(err, &aborted) {
		fmt.Fprintln(os.Stderr, "aborted:", err)
		os.Exit(3)
	}
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
