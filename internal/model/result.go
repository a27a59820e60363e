package model

import (
	"encoding/json"

	"github.com/uyplayer/tech-analysis/internal/series"
)

// IndicatorResult holds one computed indicator series for an input series.
type IndicatorResult struct {
	Name   string        `json:"name"`   // e.g. "RQ_8_1_25", "RMA_10"
	Source string        `json:"source"` // input series label
	Series series.Series `json:"-"`
	Bars   []int         `json:"bars,omitempty"` // input bar of each value; nil aligns values to the latest bars
	Last   float64       `json:"last"`           // most recent value
	Ready  bool          `json:"ready"`          // true when the last bar carries an estimate
}

// BarIndex returns the input bar of value i, out of n input bars. It can be
// negative when the series has more values than n.
func (r *IndicatorResult) BarIndex(i, n int) int {
	if r.Bars != nil {
		return r.Bars[i]
	}
	return n - r.Series.Len() + i
}

// JSON returns the JSON-encoded result including the values.
func (r *IndicatorResult) JSON() []byte {
	b, _ := json.Marshal(struct {
		*IndicatorResult
		Values []float64 `json:"values"`
	}{r, r.Series.Values()})
	return b
}
