// Package classification holds the strategy parameters a classifier consumes and the
// classifier entry point itself.
//
// Parameters are checked once, by Validate, and only a ValidatedParams can be handed
// to a Classifier; nothing re-checks ranges on access.
package classification

import (
	"errors"
	"fmt"
	"math"

	"github.com/uyplayer/tech-analysis/internal/kernel"
	"github.com/uyplayer/tech-analysis/internal/model"
)

// ConfigError reports the first parameter that failed validation.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Settings are the general classifier settings.
type Settings struct {
	Source          string `yaml:"source"`
	NeighborsCount  int    `yaml:"neighbors_count"`
	MaxBarsBack     int    `yaml:"max_bars_back"`
	ShowExits       bool   `yaml:"show_exits"`
	UseDynamicExits bool   `yaml:"use_dynamic_exits"`
	UseEMAFilter    bool   `yaml:"use_ema_filter"`
	EMAPeriod       int    `yaml:"ema_period"`
	UseSMAFilter    bool   `yaml:"use_sma_filter"`
	SMAPeriod       int    `yaml:"sma_period"`
}

// Filters toggle and tune the trade filters.
type Filters struct {
	UseVolatilityFilter bool    `yaml:"use_volatility_filter"`
	UseRegimeFilter     bool    `yaml:"use_regime_filter"`
	UseADXFilter        bool    `yaml:"use_adx_filter"`
	RegimeThreshold     float64 `yaml:"regime_threshold"`
	ADXThreshold        int     `yaml:"adx_threshold"`
}

// KernelFilter configures the kernel regression estimate used as a trend filter.
// RegressionLevel is the bar the regression starts at (the kernel's StartAtBar).
type KernelFilter struct {
	ShowKernelEstimate bool    `yaml:"show_kernel_estimate"`
	UseKernelSmoothing bool    `yaml:"use_kernel_smoothing"`
	LookBackWindow     int     `yaml:"look_back_window"`
	RelativeWeight     float64 `yaml:"relative_weight"`
	RegressionLevel    int     `yaml:"regression_level"`
	CrossoverLag       int     `yaml:"crossover_lag"`
}

// Params groups every classifier parameter.
type Params struct {
	Settings     Settings     `yaml:"settings"`
	Filters      Filters      `yaml:"filters"`
	KernelFilter KernelFilter `yaml:"kernel_filter"`
}

// DefaultParams mirrors the usual Lorentzian classification defaults.
func DefaultParams() Params {
	return Params{
		Settings: Settings{
			Source:         "close",
			NeighborsCount: 8,
			MaxBarsBack:    2000,
			ShowExits:      false,
			EMAPeriod:      200,
			SMAPeriod:      200,
		},
		Filters: Filters{
			UseVolatilityFilter: true,
			UseRegimeFilter:     true,
			RegimeThreshold:     -0.1,
			ADXThreshold:        20,
		},
		KernelFilter: KernelFilter{
			ShowKernelEstimate: true,
			LookBackWindow:     8,
			RelativeWeight:     8,
			RegressionLevel:    25,
			CrossoverLag:       2,
		},
	}
}

// ValidatedParams can only be obtained from Validate.
type ValidatedParams struct {
	settings Settings
	filters  Filters
	kernel   KernelFilter
	source   model.Source
}

func (v ValidatedParams) Settings() Settings         { return v.settings }
func (v ValidatedParams) Filters() Filters           { return v.filters }
func (v ValidatedParams) KernelFilter() KernelFilter { return v.kernel }
func (v ValidatedParams) Source() model.Source       { return v.source }

// Validate checks every range constraint and returns the validated parameters or a
// *ConfigError naming the first offending field.
func Validate(p Params) (ValidatedParams, error) {
	src, err := p.Settings.validate()
	if err != nil {
		return ValidatedParams{}, err
	}
	if err := p.Filters.validate(); err != nil {
		return ValidatedParams{}, err
	}
	if err := p.KernelFilter.validate(); err != nil {
		return ValidatedParams{}, err
	}
	return ValidatedParams{
		settings: p.Settings,
		filters:  p.Filters,
		kernel:   p.KernelFilter,
		source:   src,
	}, nil
}

var validSources = map[string]model.Source{
	"close":  model.SourceClose,
	"open":   model.SourceOpen,
	"high":   model.SourceHigh,
	"low":    model.SourceLow,
	"volume": model.SourceVolume,
	"vol":    model.SourceVolume,
}

func (s Settings) validate() (model.Source, error) {
	src, ok := validSources[s.Source]
	if !ok {
		return "", invalid("source", "must be one of close, open, high, low, volume, vol; got %q", s.Source)
	}
	switch {
	case s.NeighborsCount <= 0:
		return "", invalid("neighbors_count", "must be greater than zero, got %d", s.NeighborsCount)
	case s.MaxBarsBack <= 0:
		return "", invalid("max_bars_back", "must be greater than zero, got %d", s.MaxBarsBack)
	case s.EMAPeriod <= 1:
		return "", invalid("ema_period", "must be greater than one, got %d", s.EMAPeriod)
	case s.SMAPeriod <= 1:
		return "", invalid("sma_period", "must be greater than one, got %d", s.SMAPeriod)
	}
	return src, nil
}

func (f Filters) validate() error {
	if !(f.RegimeThreshold >= -10 && f.RegimeThreshold <= 10) {
		return invalid("regime_threshold", "must be within [-10, 10], got %v", f.RegimeThreshold)
	}
	if f.ADXThreshold < 0 || f.ADXThreshold > 100 {
		return invalid("adx_threshold", "must be within [0, 100], got %d", f.ADXThreshold)
	}
	return nil
}

func (k KernelFilter) validate() error {
	switch {
	case k.LookBackWindow <= 0:
		return invalid("look_back_window", "must be greater than zero, got %d", k.LookBackWindow)
	case !(k.RelativeWeight > 0) || math.IsInf(k.RelativeWeight, 0):
		return invalid("relative_weight", "must be positive and finite, got %v", k.RelativeWeight)
	case k.RegressionLevel < 0:
		return invalid("regression_level", "must not be negative, got %d", k.RegressionLevel)
	case k.CrossoverLag < 0:
		return invalid("crossover_lag", "must not be negative, got %d", k.CrossoverLag)
	}
	return nil
}

// Params returns the rational quadratic kernel parameters of the filter.
func (k KernelFilter) Params(strategy kernel.Strategy) kernel.Params {
	return kernel.Params{
		Family:         kernel.RationalQuadraticFamily,
		Strategy:       strategy,
		LookBack:       k.LookBackWindow,
		RelativeWeight: k.RelativeWeight,
		StartAtBar:     k.RegressionLevel,
	}
}

// SmoothingParams returns the Gaussian kernel parameters used for smoothing: the
// look-back window shortened by the crossover lag.
func (k KernelFilter) SmoothingParams(strategy kernel.Strategy) (kernel.Params, error) {
	lb := k.LookBackWindow - k.CrossoverLag
	if lb <= 0 {
		return kernel.Params{}, invalid("crossover_lag", "must be smaller than look_back_window (%d), got %d", k.LookBackWindow, k.CrossoverLag)
	}
	return kernel.Params{
		Family:     kernel.GaussianFamily,
		Strategy:   strategy,
		LookBack:   lb,
		StartAtBar: k.RegressionLevel,
	}, nil
}

// ErrNotImplemented is returned by Classifier.Classify.
var ErrNotImplemented = errors.New("classification: not implemented")
