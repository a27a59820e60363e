package indicator

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/uyplayer/tech-analysis/internal/kernel"
	"github.com/uyplayer/tech-analysis/internal/series"
)

// Indicator types understood by Config.
const (
	TypeRQ      = "RQ"      // rational quadratic kernel, batch
	TypeRQTV    = "RQTV"    // rational quadratic kernel, reference
	TypeGauss   = "GAUSS"   // Gaussian kernel, batch
	TypeGaussTV = "GAUSSTV" // Gaussian kernel, reference
	TypeRMA     = "RMA"
	TypeNorm    = "NORM"
	TypeRescale = "RESCALE"
)

// Config specifies a single indicator to compute. Only the fields relevant to Type
// are read.
type Config struct {
	Type string

	// kernels
	LookBack       int
	RelativeWeight float64
	StartAtBar     int

	// RMA
	Length int

	// NORM target range, RESCALE new range
	Min, Max float64

	// RESCALE source range
	OldMin, OldMax float64
}

// KernelParams returns the kernel parameters for a kernel Type.
func (c Config) KernelParams() (kernel.Params, bool) {
	p := kernel.Params{
		LookBack:       c.LookBack,
		RelativeWeight: c.RelativeWeight,
		StartAtBar:     c.StartAtBar,
	}
	switch c.Type {
	case TypeRQ:
		p.Family, p.Strategy = kernel.RationalQuadraticFamily, kernel.Batch
	case TypeRQTV:
		p.Family, p.Strategy = kernel.RationalQuadraticFamily, kernel.Reference
	case TypeGauss:
		p.Family, p.Strategy = kernel.GaussianFamily, kernel.Batch
	case TypeGaussTV:
		p.Family, p.Strategy = kernel.GaussianFamily, kernel.Reference
	default:
		return kernel.Params{}, false
	}
	return p, true
}

// Name returns the result name, e.g. "RQ_8_1_25", "GAUSSTV_16_25", "NORM_-1_1".
func (c Config) Name() string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	switch c.Type {
	case TypeRQ, TypeRQTV:
		return fmt.Sprintf("%s_%d_%s_%d", c.Type, c.LookBack, f(c.RelativeWeight), c.StartAtBar)
	case TypeGauss, TypeGaussTV:
		return fmt.Sprintf("%s_%d_%d", c.Type, c.LookBack, c.StartAtBar)
	case TypeRMA:
		return fmt.Sprintf("%s_%d", c.Type, c.Length)
	case TypeNorm:
		return fmt.Sprintf("%s_%s_%s", c.Type, f(c.Min), f(c.Max))
	case TypeRescale:
		return fmt.Sprintf("%s_%s_%s_%s_%s", c.Type, f(c.OldMin), f(c.OldMax), f(c.Min), f(c.Max))
	}
	return c.Type
}

// Build returns the Indicator described by c.
func (c Config) Build() (Indicator, error) {
	name := c.Name()
	if p, ok := c.KernelParams(); ok {
		return Func{Label: name, Fn: func(s series.Series) (series.Series, error) {
			return kernel.Regression(s, p)
		}}, nil
	}
	switch c.Type {
	case TypeRMA:
		length := c.Length
		return BarsFunc{Label: name, Fn: func(s series.Series) (series.Series, []int, error) {
			return RMABars(s, length)
		}}, nil
	case TypeNorm:
		lo, hi := c.Min, c.Max
		return Func{Label: name, Fn: func(s series.Series) (series.Series, error) {
			return Normalize(s, lo, hi)
		}}, nil
	case TypeRescale:
		oldLo, oldHi, lo, hi := c.OldMin, c.OldMax, c.Min, c.Max
		return Func{Label: name, Fn: func(s series.Series) (series.Series, error) {
			return Rescale(s, oldLo, oldHi, lo, hi)
		}}, nil
	}
	return nil, fmt.Errorf("unknown indicator type %q", c.Type)
}

// argCount is the number of ":"-separated arguments each type takes.
var argCount = map[string]int{
	TypeRQ:      3,
	TypeRQTV:    3,
	TypeGauss:   2,
	TypeGaussTV: 2,
	TypeRMA:     1,
	TypeNorm:    2,
	TypeRescale: 4,
}

// DefaultSpecs is used when no indicator specs are configured.
const DefaultSpecs = "RQ:8:1:25,GAUSS:16:25"

// ParseSpec parses one "TYPE:ARG:ARG..." spec:
//
//	RQ:lookBack:relativeWeight:startAtBar     (also RQTV)
//	GAUSS:lookBack:startAtBar                 (also GAUSSTV)
//	RMA:length
//	NORM:min:max
//	RESCALE:oldMin:oldMax:newMin:newMax
func ParseSpec(spec string) (Config, error) {
	parts := strings.Split(strings.TrimSpace(spec), ":")
	typ := strings.ToUpper(strings.TrimSpace(parts[0]))
	want, ok := argCount[typ]
	if !ok {
		return Config{}, fmt.Errorf("unknown indicator type %q", typ)
	}
	args := parts[1:]
	if len(args) != want {
		return Config{}, fmt.Errorf("%s expects %d arguments, got %d", typ, want, len(args))
	}

	nums := make([]float64, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(strings.TrimSpace(a), 64)
		if err != nil {
			return Config{}, fmt.Errorf("%s argument %d: %w", typ, i+1, err)
		}
		nums[i] = v
	}
	asInt := func(i int) (int, error) {
		if nums[i] != float64(int(nums[i])) {
			return 0, fmt.Errorf("%s argument %d must be an integer, got %v", typ, i+1, nums[i])
		}
		return int(nums[i]), nil
	}

	cfg := Config{Type: typ}
	var err error
	switch typ {
	case TypeRQ, TypeRQTV:
		if cfg.LookBack, err = asInt(0); err != nil {
			return Config{}, err
		}
		cfg.RelativeWeight = nums[1]
		if cfg.StartAtBar, err = asInt(2); err != nil {
			return Config{}, err
		}
	case TypeGauss, TypeGaussTV:
		if cfg.LookBack, err = asInt(0); err != nil {
			return Config{}, err
		}
		if cfg.StartAtBar, err = asInt(1); err != nil {
			return Config{}, err
		}
	case TypeRMA:
		if cfg.Length, err = asInt(0); err != nil {
			return Config{}, err
		}
	case TypeNorm:
		cfg.Min, cfg.Max = nums[0], nums[1]
	case TypeRescale:
		cfg.OldMin, cfg.OldMax, cfg.Min, cfg.Max = nums[0], nums[1], nums[2], nums[3]
	}
	return cfg, nil
}

// ParseSpecs parses "SPEC,SPEC,..." into []Config. Invalid specs are skipped with a
// warning. Returns the defaults if s is empty or nothing valid was parsed.
func ParseSpecs(s string) []Config {
	if strings.TrimSpace(s) == "" {
		return ParseSpecs(DefaultSpecs)
	}

	var configs []Config
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		cfg, err := ParseSpec(part)
		if err != nil {
			slog.Warn("skipping invalid indicator spec", "spec", part, "error", err)
			continue
		}
		configs = append(configs, cfg)
	}
	if len(configs) == 0 {
		slog.Warn("no valid indicator specs parsed, using defaults", "defaults", DefaultSpecs)
		return ParseSpecs(DefaultSpecs)
	}
	return configs
}

// WithStrategy returns the kernel configs switched to the given strategy. Non-kernel
// configs are returned unchanged.
func WithStrategy(configs []Config, strategy kernel.Strategy) []Config {
	out := make([]Config, len(configs))
	for i, c := range configs {
		switch {
		case strategy == kernel.Reference && c.Type == TypeRQ:
			c.Type = TypeRQTV
		case strategy == kernel.Reference && c.Type == TypeGauss:
			c.Type = TypeGaussTV
		case strategy == kernel.Batch && c.Type == TypeRQTV:
			c.Type = TypeRQ
		case strategy == kernel.Batch && c.Type == TypeGaussTV:
			c.Type = TypeGauss
		}
		out[i] = c
	}
	return out
}
