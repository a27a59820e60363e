package kernel

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/uyplayer/tech-analysis/internal/series"
)

// batch reduces each trailing window against a weight vector computed once.
// Bars before the first full window stay at 0.
func batch(src series.Series, p Params) (series.Series, error) {
	op := p.op()
	size := p.WindowSize()
	weights := Weights(p)
	norm := floats.Sum(weights)
	if !isUsableNormalizer(norm) {
		return series.Series{}, &series.NumericError{Op: op, Index: -1, Value: norm}
	}

	values := src.Values()
	out := make([]float64, len(values))
	window := make([]float64, size)

	for t := size - 1; t < len(values); t++ {
		copy(window, values[t-size+1:t+1])
		floats.Reverse(window) // index 0 is bar t
		v := floats.Dot(window, weights) / norm
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return series.Series{}, &series.NumericError{Op: op, Index: t, Value: v}
		}
		out[t] = v
	}

	return series.FromOwned(p.Label(), out), nil
}

// reference recomputes the weighted sum and its normalizer for every bar.
func reference(src series.Series, p Params) (series.Series, error) {
	op := p.op()
	n := src.Len()
	out := make([]float64, n)

	for t := p.StartAtBar + 1; t < n; t++ {
		current, cumulative := 0.0, 0.0
		for i := 0; i < p.StartAtBar+2; i++ {
			w := p.Weight(i)
			current += src.At(t-i) * w
			cumulative += w
		}
		if !isUsableNormalizer(cumulative) {
			return series.Series{}, &series.NumericError{Op: op, Index: t, Value: cumulative}
		}
		v := current / cumulative
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return series.Series{}, &series.NumericError{Op: op, Index: t, Value: v}
		}
		out[t] = v
	}

	return series.FromOwned(p.Label(), out), nil
}

func isUsableNormalizer(w float64) bool {
	return w != 0 && !math.IsNaN(w) && !math.IsInf(w, 0)
}
