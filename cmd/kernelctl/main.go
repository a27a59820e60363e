// cmd/kernelctl runs kernel regression indicators over historical bars loaded from
// a CSV export or the SQLite candle store and prints a summary table.
//
// Usage:
//
//	go run ./cmd/kernelctl -csv data/btcusdt_15m.csv -indicators RQ:8:1:25,GAUSS:16:25 -parity
//	go run ./cmd/kernelctl -db data/candles.db -symbol BTCUSDT -tf 15m -chart out.html
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/uyplayer/tech-analysis/config"
	"github.com/uyplayer/tech-analysis/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "kernelctl: %v\n", err)
		os.Exit(2)
	}

	// Flags override env and file configuration.
	flag.StringVar(&cfg.CSVPath, "csv", cfg.CSVPath, "CSV file with time,open,high,low,close,volume columns")
	flag.StringVar(&cfg.SQLitePath, "db", cfg.SQLitePath, "SQLite candle store (used when -csv is empty)")
	flag.StringVar(&cfg.Symbol, "symbol", cfg.Symbol, "Symbol to read from / write to the store")
	flag.StringVar(&cfg.TF, "tf", cfg.TF, "Timeframe, seconds or duration (900, 15m)")
	flag.StringVar(&cfg.Source, "source", cfg.Source, "Input column: close, open, high, low, volume or an extra CSV column")
	flag.StringVar(&cfg.Indicators, "indicators", cfg.Indicators, "Indicator specs: RQ:lb:rw:sab,GAUSS:lb:sab,RMA:len,NORM:min:max,RESCALE:omin:omax:nmin:nmax")
	flag.StringVar(&cfg.Strategy, "strategy", cfg.Strategy, "Kernel strategy: batch or reference")
	flag.StringVar(&cfg.ChartOut, "chart", cfg.ChartOut, "Write an HTML chart to this path")
	flag.StringVar(&cfg.MetricsOut, "metrics-out", cfg.MetricsOut, "Write Prometheus metrics in textfile format to this path")
	flag.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Serve /metrics and /healthz on this address until interrupted")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	chain := flag.Bool("chain", false, "Feed each indicator's output into the next instead of running them side by side")
	parity := flag.Bool("parity", false, "Run kernel indicators with both strategies and report the largest relative error")
	kernelFilter := flag.Bool("kernel-filter", false, "Also compute the classifier kernel filter estimates")
	importDB := flag.Bool("import", false, "Store the loaded CSV bars in the SQLite store")
	save := flag.Bool("save", false, "Store the computed indicator values in the SQLite store")
	flag.Parse()

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kernelctl: %v\n", err)
		os.Exit(2)
	}
	log := logger.Init("kernelctl", level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	label := cfg.Symbol
	if label == "" {
		label = "run"
	}
	ctx = logger.WithRunID(ctx, logger.GenerateRunID(label, time.Now()))

	opts := runOptions{
		Chain:        *chain,
		Parity:       *parity,
		KernelFilter: *kernelFilter,
		Import:       *importDB,
		Save:         *save,
	}
	if err := run(ctx, cfg, opts, os.Stdout); err != nil {
		log.Error("kernelctl failed", append(logger.LogWithRun(ctx), slog.Any("error", err))...)
		os.Exit(1)
	}
}
