package model

import (
	"fmt"
	"strings"

	"github.com/uyplayer/tech-analysis/internal/series"
)

// Source names the candle field an indicator reads.
type Source string

const (
	SourceOpen   Source = "open"
	SourceHigh   Source = "high"
	SourceLow    Source = "low"
	SourceClose  Source = "close"
	SourceVolume Source = "volume"
)

// ParseSource accepts the field names above plus "vol" as an alias for volume.
func ParseSource(s string) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "open":
		return SourceOpen, nil
	case "high":
		return SourceHigh, nil
	case "low":
		return SourceLow, nil
	case "close", "":
		return SourceClose, nil
	case "volume", "vol":
		return SourceVolume, nil
	}
	return "", fmt.Errorf("unknown candle source %q", s)
}

// Value returns the field of c selected by src.
func (src Source) Value(c Candle) float64 {
	switch src {
	case SourceOpen:
		return c.Open
	case SourceHigh:
		return c.High
	case SourceLow:
		return c.Low
	case SourceVolume:
		return c.Volume
	default:
		return c.Close
	}
}

// Column extracts one field of every candle into a series named after the field.
func Column(candles []Candle, src Source) series.Series {
	b := series.NewBuilder(string(src), len(candles))
	for _, c := range candles {
		b.Append(src.Value(c))
	}
	return b.Series()
}
