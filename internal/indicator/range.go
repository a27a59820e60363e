package indicator

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/uyplayer/tech-analysis/internal/series"
)

// RescaleEpsilon floors the old range width in Rescale.
const RescaleEpsilon = 1e-9

// Normalize maps src onto [minVal, maxVal] using the series' own observed minimum
// and maximum over the whole series. A flat series has no observed range and is
// rejected with a DomainError.
func Normalize(src series.Series, minVal, maxVal float64) (series.Series, error) {
	const op = "normalizer"
	if src.Len() == 0 {
		return series.Series{}, series.Domainf(op, "empty series")
	}
	if err := series.CheckFinite(op, src); err != nil {
		return series.Series{}, err
	}

	values := src.Values()
	obsMin, obsMax := floats.Min(values), floats.Max(values)
	if !(obsMax > obsMin) {
		return series.Series{}, series.Domainf(op, "degenerate observed range [%v, %v]", obsMin, obsMax)
	}

	span := obsMax - obsMin
	for i, v := range values {
		values[i] = (v-obsMin)/span*(maxVal-minVal) + minVal
	}
	return checked(op, series.FromOwned(src.Name, values))
}

// Rescale linearly remaps src from [oldMin, oldMax] to [newMin, newMax]. The old
// range width is floored at RescaleEpsilon, so a degenerate or inverted old range
// never divides by zero.
func Rescale(src series.Series, oldMin, oldMax, newMin, newMax float64) (series.Series, error) {
	const op = "rescale"
	width := math.Max(oldMax-oldMin, RescaleEpsilon)

	values := src.Values()
	for i, v := range values {
		values[i] = newMin + (newMax-newMin)*(v-oldMin)/width
	}
	return checked(op, series.FromOwned(src.Name, values))
}

func checked(op string, s series.Series) (series.Series, error) {
	if err := series.CheckFinite(op, s); err != nil {
		return series.Series{}, err
	}
	return s, nil
}
