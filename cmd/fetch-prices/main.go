package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"portfolio-frontier/internal/config"
	"portfolio-frontier/internal/data"
	"portfolio-frontier/internal/logger"
	"portfolio-frontier/internal/model"
)

func main() {
	var (
		cfgPath     = flag.String("config", "", "Config whose instruments (or universe) to fetch")
		universe    = flag.String("universe", "", "Universe preset name or path")
		symbols     = flag.String("symbols", "", "Comma-separated symbols (overrides --config/--universe)")
		outputPath  = flag.String("output", "data/prices.json", "Output file path")
		years       = flag.Float64("years", 0, "Years of history (default: max of years_range, or 3)")
		endDate     = flag.String("end", "", "Last date (YYYY-MM-DD, default today)")
		baseURL     = flag.String("base-url", "", "Override the Yahoo chart endpoint")
		timeoutFlag = flag.Duration("timeout", 2*time.Minute, "Overall download timeout")
	)
	flag.Parse()

	log, err := logger.Init(logger.FromEnv())
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}

	instruments, span := resolveInstruments(log, *cfgPath, *universe, *symbols)
	if *years > 0 {
		span = *years
	}
	if len(instruments) == 0 {
		log.Error("no instruments: pass --symbols, --universe or --config")
		os.Exit(2)
	}

	end := time.Now()
	if *endDate != "" {
		if end, err = time.Parse("2006-01-02", *endDate); err != nil {
			log.Error("invalid --end", "error", err)
			os.Exit(2)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeoutFlag)
	defer cancel()

	fmt.Printf("Fetching %d instruments, %.1f years ending %s\n", len(instruments), span, end.Format("2006-01-02"))
	client := data.NewYahooClient(*baseURL)
	table, skipped, err := client.FetchPriceTable(ctx, instruments, end, span)
	if err != nil {
		log.Error("fetch failed", "error", err, "rate_limited", data.IsRateLimited(err))
		os.Exit(1)
	}
	if len(skipped) > 0 {
		fmt.Printf("Skipped: %s\n", strings.Join(skipped, ", "))
	}

	if err := os.MkdirAll(filepath.Dir(*outputPath), 0o755); err != nil {
		log.Error("create output dir", "error", err)
		os.Exit(1)
	}
	if err := data.SavePricesJSON(*outputPath, table); err != nil {
		log.Error("save prices", "error", err)
		os.Exit(1)
	}

	dates, _ := table.Align()
	fmt.Printf("Wrote %d instruments (%d aligned days) to %s\n", len(table.Instruments()), len(dates), *outputPath)
}

// resolveInstruments returns the symbols to fetch and the default history span.
func resolveInstruments(log *slog.Logger, cfgPath, universe, symbols string) ([]string, float64) {
	span := config.Defaults().YearsRange[1]
	var instruments []string
	if cfgPath != "" {
		cfg, err := config.LoadUnchecked(cfgPath)
		if err != nil {
			log.Error("load config", "error", err)
			os.Exit(1)
		}
		instruments = cfg.Instruments
		span = cfg.YearsRange[1]
	}
	if universe != "" {
		u, err := config.LoadUniverse(config.ResolveUniversePath(config.DefaultUniverseDir(), universe))
		if err != nil {
			log.Error("load universe", "error", err)
			os.Exit(1)
		}
		instruments = u.Instruments
	}
	if symbols != "" {
		instruments = nil
		for _, s := range strings.Split(symbols, ",") {
			if s = model.Symbol(s); s != "" {
				instruments = append(instruments, s)
			}
		}
	}
	return instruments, span
}
