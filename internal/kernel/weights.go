package kernel

import "math"

// RationalQuadraticWeight is (1 + i² / (lookBack² · 2 · relativeWeight))^(-relativeWeight).
func RationalQuadraticWeight(i, lookBack int, relativeWeight float64) float64 {
	lb := float64(lookBack)
	fi := float64(i)
	return math.Pow(1+fi*fi/(lb*lb*2*relativeWeight), -relativeWeight)
}

// GaussianWeight is exp(-i² / (2 · lookBack²)).
func GaussianWeight(i, lookBack int) float64 {
	lb := float64(lookBack)
	fi := float64(i)
	return math.Exp(-fi * fi / (2 * lb * lb))
}

// Weight returns the kernel weight at lag i (0 is the most recent bar).
func (p Params) Weight(i int) float64 {
	if p.Family == GaussianFamily {
		return GaussianWeight(i, p.LookBack)
	}
	return RationalQuadraticWeight(i, p.LookBack, p.RelativeWeight)
}

// Weights returns the weight vector of length WindowSize(), index 0 being lag 0.
func Weights(p Params) []float64 {
	w := make([]float64, p.WindowSize())
	for i := range w {
		w[i] = p.Weight(i)
	}
	return w
}
