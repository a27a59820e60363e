package indicator

import (
	"fmt"
	"time"

	"github.com/uyplayer/tech-analysis/internal/model"
	"github.com/uyplayer/tech-analysis/internal/series"
)

// Recorder observes indicator computations (implemented by metrics.Metrics).
type Recorder interface {
	ObserveCompute(indicatorType string, d time.Duration, err error)
}

// Engine computes a configured set of indicators over a series.
// It holds no per-series state; one Engine can process any number of series.
type Engine struct {
	configs    []Config
	indicators []Indicator
	recorder   Recorder
}

// NewEngine creates an indicator engine for the given configs.
func NewEngine(configs []Config) (*Engine, error) {
	inds := make([]Indicator, len(configs))
	for i, cfg := range configs {
		ind, err := cfg.Build()
		if err != nil {
			return nil, fmt.Errorf("indicator %d: %w", i, err)
		}
		inds[i] = ind
	}
	return &Engine{
		configs:    configs,
		indicators: inds,
	}, nil
}

// SetRecorder attaches a Recorder; nil disables recording.
func (e *Engine) SetRecorder(r Recorder) { e.recorder = r }

// Configs returns the engine's indicator configs.
func (e *Engine) Configs() []Config {
	out := make([]Config, len(e.configs))
	copy(out, e.configs)
	return out
}

// Process evaluates every configured indicator against src independently and
// returns one result per indicator, in config order. The first failing indicator
// aborts processing; no partial results are returned.
func (e *Engine) Process(src series.Series) ([]model.IndicatorResult, error) {
	results := make([]model.IndicatorResult, 0, len(e.indicators))
	for i, ind := range e.indicators {
		out, bars, err := e.compute(i, src)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ind.Name(), err)
		}
		results = append(results, model.IndicatorResult{
			Name:   ind.Name(),
			Source: src.Name,
			Series: out,
			Bars:   bars,
			Last:   out.Last(),
			Ready:  out.Len() > 0,
		})
	}
	return results, nil
}

// Chain feeds src through every configured indicator in order, each stage consuming
// the previous stage's output, e.g. NORM → RQ → RMA. It also returns the src bar of
// each output value, or nil when the output has one value per src bar.
func (e *Engine) Chain(src series.Series) (series.Series, []int, error) {
	cur := src
	var bars []int
	for i, ind := range e.indicators {
		out, stage, err := e.compute(i, cur)
		if err != nil {
			return series.Series{}, nil, fmt.Errorf("stage %d %s: %w", i, ind.Name(), err)
		}
		switch {
		case stage == nil:
		case bars == nil:
			bars = stage
		default:
			for k, j := range stage {
				stage[k] = bars[j]
			}
			bars = stage
		}
		cur = out
	}
	return cur, bars, nil
}

// compute runs indicator i. bars is nil unless the indicator dropped input bars.
func (e *Engine) compute(i int, src series.Series) (out series.Series, bars []int, err error) {
	start := time.Now()
	if bi, ok := e.indicators[i].(BarIndexer); ok {
		out, bars, err = bi.ComputeBars(src)
		if len(bars) == src.Len() {
			bars = nil
		}
	} else {
		out, err = e.indicators[i].Compute(src)
	}
	if e.recorder != nil {
		e.recorder.ObserveCompute(e.configs[i].Type, time.Since(start), err)
	}
	return out, bars, err
}
