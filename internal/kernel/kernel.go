// Package kernel computes kernel-weighted regression estimates over bar series.
//
// Two kernel families are supported (rational quadratic and Gaussian), each with
// two computation strategies:
//
//   - Batch precomputes the weight vector once and reduces every trailing window
//     against it.
//   - Reference recomputes every weight inline for every bar with a nested loop.
//
// Both strategies compute the same formula and are expected to agree within
// floating-point tolerance. Reference exists to cross-check Batch.
//
// Outputs always have the input's length. Bars before ValidStart(startAtBar) carry
// no estimate and are zero-filled.
package kernel

import (
	"fmt"
	"math"
	"strconv"

	"github.com/uyplayer/tech-analysis/internal/series"
)

// Family selects the weighting kernel.
type Family int

const (
	RationalQuadraticFamily Family = iota
	GaussianFamily
)

func (f Family) String() string {
	switch f {
	case RationalQuadraticFamily:
		return "rational_quadratic"
	case GaussianFamily:
		return "gaussian"
	default:
		return "family(" + strconv.Itoa(int(f)) + ")"
	}
}

// Short returns the indicator code used in result names ("RQ", "GAUSS").
func (f Family) Short() string {
	switch f {
	case RationalQuadraticFamily:
		return "RQ"
	case GaussianFamily:
		return "GAUSS"
	default:
		return "K" + strconv.Itoa(int(f))
	}
}

// Strategy selects how the regression is computed.
type Strategy int

const (
	Batch Strategy = iota
	Reference
)

func (s Strategy) String() string {
	switch s {
	case Batch:
		return "batch"
	case Reference:
		return "reference"
	default:
		return "strategy(" + strconv.Itoa(int(s)) + ")"
	}
}

// ParseStrategy maps "batch" / "reference" (also "tv") to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "", "batch":
		return Batch, nil
	case "reference", "ref", "tv":
		return Reference, nil
	}
	return Batch, fmt.Errorf("unknown kernel strategy %q", s)
}

// Params configures one regression call.
type Params struct {
	Family   Family
	Strategy Strategy

	LookBack       int     // bandwidth; larger flattens the weight curve
	RelativeWeight float64 // rational quadratic tail heaviness, ignored for Gaussian
	StartAtBar     int     // window size is StartAtBar+2
}

// WindowSize is the number of bars each estimate is computed from.
func (p Params) WindowSize() int { return p.StartAtBar + 2 }

// ValidStart is the first bar index that receives an estimate. Both strategies
// share it: the batch path's first full window ends at WindowSize()-1, which is
// the reference path's first bar StartAtBar+1.
func ValidStart(startAtBar int) int { return startAtBar + 1 }

// Label names the output series, e.g. "RQ_8_1_25" or "GAUSS_16_25".
func (p Params) Label() string {
	if p.Family == RationalQuadraticFamily {
		return fmt.Sprintf("%s_%d_%s_%d", p.Family.Short(), p.LookBack,
			strconv.FormatFloat(p.RelativeWeight, 'f', -1, 64), p.StartAtBar)
	}
	return fmt.Sprintf("%s_%d_%d", p.Family.Short(), p.LookBack, p.StartAtBar)
}

func (p Params) op() string { return p.Family.String() + "/" + p.Strategy.String() }

// validate checks parameters against a series of n bars.
func (p Params) validate(n int) error {
	op := p.op()
	switch {
	case p.Family != RationalQuadraticFamily && p.Family != GaussianFamily:
		return series.Domainf(op, "unknown kernel family %d", int(p.Family))
	case p.LookBack <= 0:
		return series.Domainf(op, "look_back must be positive, got %d", p.LookBack)
	case p.StartAtBar < 0:
		return series.Domainf(op, "start_at_bar must be non-negative, got %d", p.StartAtBar)
	case p.Family == RationalQuadraticFamily &&
		(!(p.RelativeWeight > 0) || math.IsInf(p.RelativeWeight, 0)):
		return series.Domainf(op, "relative_weight must be positive and finite, got %v", p.RelativeWeight)
	case p.StartAtBar > n-2:
		// Compared before WindowSize, which overflows for StartAtBar near MaxInt.
		return series.Domainf(op, "series length %d shorter than window start_at_bar+2 (start_at_bar %d)", n, p.StartAtBar)
	}
	return nil
}

// Regression runs the kernel regression selected by p over src.
func Regression(src series.Series, p Params) (series.Series, error) {
	if err := p.validate(src.Len()); err != nil {
		return series.Series{}, err
	}
	switch p.Strategy {
	case Batch:
		return batch(src, p)
	case Reference:
		return reference(src, p)
	}
	return series.Series{}, series.Domainf(p.op(), "unknown strategy %d", int(p.Strategy))
}

// RationalQuadratic is the batch rational quadratic kernel regression.
func RationalQuadratic(src series.Series, lookBack int, relativeWeight float64, startAtBar int) (series.Series, error) {
	return Regression(src, Params{
		Family:         RationalQuadraticFamily,
		Strategy:       Batch,
		LookBack:       lookBack,
		RelativeWeight: relativeWeight,
		StartAtBar:     startAtBar,
	})
}

// RationalQuadraticTV is the reference (nested loop) rational quadratic kernel regression.
func RationalQuadraticTV(src series.Series, lookBack int, relativeWeight float64, startAtBar int) (series.Series, error) {
	return Regression(src, Params{
		Family:         RationalQuadraticFamily,
		Strategy:       Reference,
		LookBack:       lookBack,
		RelativeWeight: relativeWeight,
		StartAtBar:     startAtBar,
	})
}

// Gaussian is the batch Gaussian kernel regression.
func Gaussian(src series.Series, lookBack, startAtBar int) (series.Series, error) {
	return Regression(src, Params{
		Family:     GaussianFamily,
		Strategy:   Batch,
		LookBack:   lookBack,
		StartAtBar: startAtBar,
	})
}

// GaussianTV is the reference (nested loop) Gaussian kernel regression.
func GaussianTV(src series.Series, lookBack, startAtBar int) (series.Series, error) {
	return Regression(src, Params{
		Family:     GaussianFamily,
		Strategy:   Reference,
		LookBack:   lookBack,
		StartAtBar: startAtBar,
	})
}
