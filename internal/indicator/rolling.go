package indicator

import (
	"math"

	"github.com/uyplayer/tech-analysis/internal/ringbuf"
	"github.com/uyplayer/tech-analysis/internal/series"
)

// RollingMean averages a trailing window of length bars. Windows at the head are
// averaged over the bars seen so far (minimum one observation), so the output has
// the input's length. NaN inputs are excluded from their windows; a window with no
// valid observation yields NaN.
//
// Keeps a running sum over a ring window: O(1) per bar.
func RollingMean(src series.Series, length int) (series.Series, error) {
	const op = "rolling_mean"
	if length <= 0 {
		return series.Series{}, series.Domainf(op, "length must be positive, got %d", length)
	}

	win := ringbuf.New(length)
	sum := 0.0
	valid := 0 // non-NaN values currently in the window

	out := make([]float64, src.Len())
	for i := range out {
		price := src.At(i)
		if old, ok := win.Push(price); ok && !math.IsNaN(old) {
			sum -= old
			valid--
		}
		if !math.IsNaN(price) {
			sum += price
			valid++
		}

		if valid == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(valid)
	}

	return series.FromOwned(src.Name, out), nil
}
