// Package dataset loads historical OHLCV bars from CSV exports.
//
// The header must contain time, open, high, low, close and volume columns (case
// insensitive; "timestamp"/"date" and "vol" are accepted aliases). Any other numeric
// column is kept as a named series, which is how captured reference indicator values
// travel alongside the bars.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/uyplayer/tech-analysis/internal/model"
	"github.com/uyplayer/tech-analysis/internal/series"
)

// Options describe the bars being loaded.
type Options struct {
	Symbol string
	TF     int // timeframe in seconds
}

// Frame is a loaded CSV: the bars plus any extra numeric columns.
type Frame struct {
	Candles []model.Candle
	Extra   map[string]series.Series
}

// Len returns the number of bars.
func (f *Frame) Len() int { return len(f.Candles) }

// Column returns an OHLCV field or an extra column by name.
func (f *Frame) Column(name string) (series.Series, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if s, ok := f.Extra[key]; ok {
		return s, nil
	}
	src, err := model.ParseSource(key)
	if err != nil {
		return series.Series{}, fmt.Errorf("column %q not found", name)
	}
	return model.Column(f.Candles, src), nil
}

// LoadCSV opens and parses the CSV file at path.
func LoadCSV(path string, opts Options) (*Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	return ReadCSV(f, opts)
}

var columnAliases = map[string]string{
	"timestamp": "time",
	"date":      "time",
	"datetime":  "time",
	"vol":       "volume",
}

// ReadCSV parses bars from r.
func ReadCSV(r io.Reader, opts Options) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("read csv header: empty input")
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	idx := make(map[string]int, len(header))
	var extras []string
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		if alias, ok := columnAliases[name]; ok {
			name = alias
		}
		idx[name] = i
		switch name {
		case "time", "open", "high", "low", "close", "volume":
		default:
			extras = append(extras, name)
		}
	}
	for _, req := range []string{"time", "open", "high", "low", "close", "volume"} {
		if _, ok := idx[req]; !ok {
			return nil, fmt.Errorf("csv missing required column %q", req)
		}
	}

	frame := &Frame{Extra: make(map[string]series.Series, len(extras))}
	extraVals := make(map[string][]float64, len(extras))
	dropped := make(map[string]bool)

	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}

		ts, err := parseTime(rec[idx["time"]])
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		c := model.Candle{Symbol: opts.Symbol, TF: opts.TF, TS: ts}
		fields := []struct {
			name string
			dst  *float64
		}{
			{"open", &c.Open}, {"high", &c.High}, {"low", &c.Low},
			{"close", &c.Close}, {"volume", &c.Volume},
		}
		for _, fld := range fields {
			v, err := parseFloat(rec[idx[fld.name]])
			if err != nil {
				return nil, fmt.Errorf("csv line %d column %s: %w", line, fld.name, err)
			}
			*fld.dst = v
		}
		frame.Candles = append(frame.Candles, c)

		for _, name := range extras {
			if dropped[name] {
				continue
			}
			v, err := parseFloat(rec[idx[name]])
			if err != nil {
				// non-numeric columns (tickers, notes) are dropped entirely
				dropped[name] = true
				continue
			}
			extraVals[name] = append(extraVals[name], v)
		}
	}

	for _, name := range extras {
		if dropped[name] {
			continue
		}
		frame.Extra[name] = series.FromOwned(name, extraVals[name])
	}
	return frame, nil
}

func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty value")
	}
	return strconv.ParseFloat(s, 64)
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseTime accepts unix seconds, unix milliseconds or one of timeLayouts.
func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n > 1e11 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", s)
}
