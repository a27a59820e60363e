package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/uyplayer/tech-analysis/config"
	"github.com/uyplayer/tech-analysis/internal/chart"
	"github.com/uyplayer/tech-analysis/internal/classification"
	"github.com/uyplayer/tech-analysis/internal/dataset"
	"github.com/uyplayer/tech-analysis/internal/indicator"
	"github.com/uyplayer/tech-analysis/internal/kernel"
	"github.com/uyplayer/tech-analysis/internal/logger"
	"github.com/uyplayer/tech-analysis/internal/metrics"
	"github.com/uyplayer/tech-analysis/internal/model"
	"github.com/uyplayer/tech-analysis/internal/series"
	sqlitestore "github.com/uyplayer/tech-analysis/internal/store/sqlite"
)

type runOptions struct {
	Chain        bool
	Parity       bool
	KernelFilter bool
	Import       bool
	Save         bool
}

var errParity = errors.New("batch and reference strategies disagree")

// run executes one kernelctl invocation and writes the report to out.
func run(ctx context.Context, cfg *config.Config, opts runOptions, out io.Writer) (err error) {
	m := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	if cfg.MetricsAddr != "" {
		srv := metrics.NewServer(cfg.MetricsAddr, m, health)
		srv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Stop(shutdownCtx)
		}()
	}
	if cfg.MetricsOut != "" {
		defer func() {
			if werr := m.WriteTextfile(cfg.MetricsOut); werr != nil && err == nil {
				err = fmt.Errorf("write metrics: %w", werr)
			}
		}()
	}

	tf, err := cfg.ParseTF()
	if err != nil {
		return err
	}
	strategy, err := kernel.ParseStrategy(cfg.Strategy)
	if err != nil {
		return err
	}

	frame, err := loadFrame(cfg, tf)
	if err != nil {
		return err
	}
	m.ObserveBars(frame.Len())
	slog.Info("bars loaded", append(logger.LogWithRun(ctx),
		"bars", frame.Len(), "symbol", cfg.Symbol, "tf", tf)...)

	var writer *sqlitestore.Writer
	if opts.Import || opts.Save {
		writer, err = sqlitestore.New(sqlitestore.WriterConfig{DBPath: cfg.SQLitePath})
		if err != nil {
			return err
		}
		defer writer.Close()
	}
	if opts.Import {
		if err := importBars(ctx, writer, frame.Candles, cfg.SQLitePath); err != nil {
			return err
		}
	}

	src, err := frame.Column(cfg.Source)
	if err != nil {
		return err
	}

	configs := indicator.WithStrategy(indicator.ParseSpecs(cfg.Indicators), strategy)
	engine, err := indicator.NewEngine(configs)
	if err != nil {
		return err
	}
	engine.SetRecorder(m)

	results, warmups, err := compute(engine, src, opts.Chain)
	health.RecordRun(len(results), err)
	if err != nil {
		return err
	}

	if opts.KernelFilter {
		kf, kfWarmup, err := kernelFilterResults(cfg, frame.Candles, strategy)
		if err != nil {
			return err
		}
		results = append(results, kf...)
		warmups = append(warmups, kfWarmup...)
	}

	title := fmt.Sprintf("%s %s (%s, %d bars)", cfg.Symbol, time.Duration(tf)*time.Second, strategy, frame.Len())
	printResults(out, title, results)

	var parityErr error
	if opts.Parity {
		reports, err := indicator.Parity(src, configs)
		if err != nil {
			return err
		}
		for _, r := range reports {
			m.ObserveParity(r.Name, r.MaxRelErr)
			if !r.OK() {
				parityErr = errParity
			}
		}
		printParity(out, reports)
	}

	if opts.Save {
		if err := writer.SaveResults(frame.Candles, results); err != nil {
			return err
		}
		slog.Info("indicator values saved", append(logger.LogWithRun(ctx), "db", cfg.SQLitePath, "indicators", len(results))...)
	}

	if cfg.ChartOut != "" {
		lines := make([]chart.Line, len(results))
		for i, r := range results {
			lines[i] = chart.Line{Series: r.Series, Bars: r.Bars, Warmup: warmups[i]}
		}
		if err := chart.RenderFile(cfg.ChartOut, frame.Candles, src, lines, chart.Options{Title: title}); err != nil {
			return err
		}
		slog.Info("chart written", append(logger.LogWithRun(ctx), "path", cfg.ChartOut)...)
	}

	if cfg.MetricsAddr != "" {
		slog.Info("serving metrics until interrupted", append(logger.LogWithRun(ctx), "addr", cfg.MetricsAddr)...)
		<-ctx.Done()
	}
	return parityErr
}

// importBars stores the bars newer than the last one already in the store.
func importBars(ctx context.Context, writer *sqlitestore.Writer, candles []model.Candle, dbPath string) error {
	if len(candles) == 0 {
		return nil
	}
	last, err := writer.GetLastTimestamp(candles[0].Symbol, candles[0].TF)
	if err != nil {
		return fmt.Errorf("sqlite last timestamp: %w", err)
	}
	start := len(candles)
	for i, c := range candles {
		if c.TS.Unix() > last {
			start = i
			break
		}
	}
	fresh := candles[start:]
	if err := writer.InsertCandles(fresh); err != nil {
		return err
	}
	slog.Info("bars imported", append(logger.LogWithRun(ctx),
		"db", dbPath, "new", len(fresh), "skipped", len(candles)-len(fresh))...)
	return nil
}

// loadFrame reads bars from the CSV file if one is configured, otherwise from the
// SQLite store.
func loadFrame(cfg *config.Config, tf int) (*dataset.Frame, error) {
	if cfg.CSVPath != "" {
		return dataset.LoadCSV(cfg.CSVPath, dataset.Options{Symbol: cfg.Symbol, TF: tf})
	}

	reader, err := sqlitestore.NewReader(cfg.SQLitePath)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	candles, err := reader.ReadCandles(cfg.Symbol, tf, 0)
	if err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("no %s bars with tf=%d in %s", cfg.Symbol, tf, cfg.SQLitePath)
	}
	return &dataset.Frame{Candles: candles}, nil
}

// compute runs the engine and returns the results with the number of leading values
// of each result that carry no estimate.
func compute(engine *indicator.Engine, src series.Series, chain bool) ([]model.IndicatorResult, []int, error) {
	configs := engine.Configs()
	if !chain {
		results, err := engine.Process(src)
		if err != nil {
			return nil, nil, err
		}
		warmups := make([]int, len(results))
		for i, c := range configs {
			warmups[i] = warmup(c)
		}
		return results, warmups, nil
	}

	out, bars, err := engine.Chain(src)
	if err != nil {
		return nil, nil, err
	}
	res := newResult(out.Name, src.Name, out)
	res.Bars = bars

	// Later stages keep the kernel's blank head; RMA may have dropped some of it.
	head := 0
	for _, c := range configs {
		head = max(head, warmup(c))
	}
	w := 0
	for w < out.Len() && res.BarIndex(w, src.Len()) < head {
		w++
	}
	return []model.IndicatorResult{res}, []int{w}, nil
}

func warmup(c indicator.Config) int {
	if p, ok := c.KernelParams(); ok {
		return kernel.ValidStart(p.StartAtBar)
	}
	return 0
}

// kernelFilterResults computes the classifier's kernel filter estimates.
func kernelFilterResults(cfg *config.Config, candles []model.Candle, strategy kernel.Strategy) ([]model.IndicatorResult, []int, error) {
	params, err := cfg.Classifier()
	if err != nil {
		return nil, nil, err
	}
	estimate, smoothed, err := classification.NewClassifier(params).KernelEstimates(candles, strategy)
	if err != nil {
		return nil, nil, err
	}

	source := string(params.Source())
	warmup := kernel.ValidStart(params.KernelFilter().RegressionLevel)
	results := []model.IndicatorResult{newResult("KF_"+estimate.Name, source, estimate)}
	warmups := []int{warmup}
	if smoothed.Len() > 0 {
		results = append(results, newResult("KF_"+smoothed.Name, source, smoothed))
		warmups = append(warmups, warmup)
	}
	return results, warmups, nil
}
