// Package chart renders bar series and indicator overlays as a standalone HTML line
// chart.
package chart

import (
	"fmt"
	"io"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/uyplayer/tech-analysis/internal/model"
	"github.com/uyplayer/tech-analysis/internal/series"
)

// Line is one plotted series. Value i is drawn at bar Bars[i]; with nil Bars a
// series shorter than the bar count is aligned to the most recent bars. The first
// Warmup values are left blank.
type Line struct {
	Series series.Series
	Bars   []int
	Warmup int
}

// Options configure the page.
type Options struct {
	Title  string
	Width  string // CSS width, default "1200px"
	Height string // CSS height, default "600px"
}

// Render writes an HTML page plotting price and every line against the candle
// timestamps.
func Render(w io.Writer, candles []model.Candle, price series.Series, lines []Line, o Options) error {
	if len(candles) == 0 {
		return fmt.Errorf("chart: no candles")
	}
	if o.Width == "" {
		o.Width = "1200px"
	}
	if o.Height == "" {
		o.Height = "600px"
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: o.Title, Width: o.Width, Height: o.Height}),
		charts.WithTitleOpts(opts.Title{Title: o.Title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "30"}),
		charts.WithYAxisOpts(opts.YAxis{Scale: opts.Bool(true)}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
	)

	xs := make([]string, len(candles))
	for i, c := range candles {
		xs[i] = c.TS.Format("2006-01-02 15:04")
	}
	line.SetXAxis(xs)

	all := append([]Line{{Series: price}}, lines...)
	for _, l := range all {
		data, err := points(l, len(candles))
		if err != nil {
			return err
		}
		line.AddSeries(l.Series.Name, data,
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		)
	}
	return line.Render(w)
}

// RenderFile is Render to a file at path.
func RenderFile(path string, candles []model.Candle, price series.Series, lines []Line, o Options) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("chart: %w", err)
	}
	if err := Render(f, candles, price, lines, o); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// points aligns l to n bars; blanks are "-", which echarts treats as missing.
func points(l Line, n int) ([]opts.LineData, error) {
	m := l.Series.Len()
	if m > n {
		return nil, fmt.Errorf("chart: %s has %d values for %d bars", l.Series.Name, m, n)
	}
	if l.Bars != nil && len(l.Bars) != m {
		return nil, fmt.Errorf("chart: %s has %d values for %d bar indices", l.Series.Name, m, len(l.Bars))
	}
	data := make([]opts.LineData, n)
	for i := range data {
		data[i] = opts.LineData{Value: "-"}
	}
	for j := l.Warmup; j < m; j++ {
		bar := n - m + j
		if l.Bars != nil {
			bar = l.Bars[j]
		}
		if bar < 0 || bar >= n {
			return nil, fmt.Errorf("chart: %s value %d maps to bar %d of %d", l.Series.Name, j, bar, n)
		}
		data[bar] = opts.LineData{Value: l.Series.At(j)}
	}
	return data, nil
}
