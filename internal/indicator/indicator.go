// Package indicator provides series conditioning helpers and the engine that runs
// configured indicators (kernel regressions and conditioning stages) over a series.
//
// Every indicator is a pure function of its input series: nothing is retained
// between calls and inputs are never modified.
package indicator

import "github.com/uyplayer/tech-analysis/internal/series"

// Indicator is one configured computation over a series.
type Indicator interface {
	// Name returns the indicator name (e.g., "RQ_8_1_25", "RMA_10").
	Name() string

	// Compute returns the indicator series for src.
	Compute(src series.Series) (series.Series, error)
}

// Func adapts a plain function to the Indicator interface.
type Func struct {
	Label string
	Fn    func(series.Series) (series.Series, error)
}

func (f Func) Name() string { return f.Label }

func (f Func) Compute(src series.Series) (series.Series, error) {
	out, err := f.Fn(src)
	if err != nil {
		return series.Series{}, err
	}
	return out.Rename(f.Label), nil
}

// BarIndexer is implemented by indicators whose output can skip input bars. The
// returned indices are the src bar of each output value, in increasing order.
type BarIndexer interface {
	ComputeBars(src series.Series) (series.Series, []int, error)
}

// BarsFunc adapts a function that reports its output bars.
type BarsFunc struct {
	Label string
	Fn    func(series.Series) (series.Series, []int, error)
}

func (f BarsFunc) Name() string { return f.Label }

func (f BarsFunc) Compute(src series.Series) (series.Series, error) {
	out, _, err := f.ComputeBars(src)
	return out, err
}

func (f BarsFunc) ComputeBars(src series.Series) (series.Series, []int, error) {
	out, bars, err := f.Fn(src)
	if err != nil {
		return series.Series{}, nil, err
	}
	return out.Rename(f.Label), bars, nil
}
