package indicator

import (
	"math"

	"github.com/uyplayer/tech-analysis/internal/series"
)

// EMA applies the exponential recurrence ema = alpha*x + (1-alpha)*ema_prev, seeded
// with the first value. It is evaluated as ema_prev + alpha*(x-ema_prev), which
// keeps a constant input exactly constant. NaN inputs are skipped: they neither
// advance nor reset the recurrence and produce no output, so the result can be
// shorter than src.
func EMA(src series.Series, alpha float64) (series.Series, error) {
	out, _, err := EMABars(src, alpha)
	return out, err
}

// EMABars is EMA that also returns, for each output value, the index of the src bar
// it was computed at.
func EMABars(src series.Series, alpha float64) (series.Series, []int, error) {
	const op = "ema"
	if !(alpha > 0 && alpha <= 1) {
		return series.Series{}, nil, series.Domainf(op, "alpha must be in (0, 1], got %v", alpha)
	}

	b := series.NewBuilder(src.Name, src.Len())
	bars := make([]int, 0, src.Len())
	var current float64
	seeded := false
	for i := 0; i < src.Len(); i++ {
		price := src.At(i)
		if math.IsNaN(price) {
			continue
		}
		if !seeded {
			current = price
			seeded = true
		} else {
			current += alpha * (price - current)
		}
		b.Append(current)
		bars = append(bars, i)
	}

	out, err := checked(op, b.Series())
	if err != nil {
		return series.Series{}, nil, err
	}
	return out, bars, nil
}

// RMA is the double-smoothed rolling average: a RollingMean of length bars
// followed by an EMA with alpha = 2/(length+1).
//
// Unlike the kernel regressions, warm-up is not zero-filled: bars the rolling mean
// cannot produce are dropped, so the output length is at most the input length.
// A run of length missing bars inside src drops values from the middle too; use
// RMABars to place the output on its bars.
func RMA(src series.Series, length int) (series.Series, error) {
	out, _, err := RMABars(src, length)
	return out, err
}

// RMABars is RMA that also returns the src bar index of each output value.
func RMABars(src series.Series, length int) (series.Series, []int, error) {
	if length <= 0 {
		return series.Series{}, nil, series.Domainf("rma", "length must be positive, got %d", length)
	}
	mean, err := RollingMean(src, length)
	if err != nil {
		return series.Series{}, nil, err
	}
	return EMABars(mean, 2.0/(float64(length)+1.0))
}
