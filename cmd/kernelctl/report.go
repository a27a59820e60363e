package main

import (
	"io"
	"math"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gonum.org/v1/gonum/floats"

	"github.com/uyplayer/tech-analysis/internal/indicator"
	"github.com/uyplayer/tech-analysis/internal/model"
	"github.com/uyplayer/tech-analysis/internal/series"
)

func newResult(name, source string, s series.Series) model.IndicatorResult {
	return model.IndicatorResult{
		Name:   name,
		Source: source,
		Series: s.Rename(name),
		Last:   s.Last(),
		Ready:  s.Len() > 0,
	}
}

// printResults renders one row per indicator: last value and the range of the
// series.
func printResults(out io.Writer, title string, results []model.IndicatorResult) {
	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.SetStyle(table.StyleLight)
	tw.SetTitle(title)
	tw.AppendHeader(table.Row{"Indicator", "Source", "Values", "Min", "Max", "Last", "Ready"})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})
	for _, r := range results {
		lo, hi := math.NaN(), math.NaN()
		if r.Series.Len() > 0 {
			vals := r.Series.Values()
			lo, hi = floats.Min(vals), floats.Max(vals)
		}
		tw.AppendRow(table.Row{r.Name, r.Source, r.Series.Len(), fmtFloat(lo), fmtFloat(hi), fmtFloat(r.Last), r.Ready})
	}
	tw.Render()
}

// printParity renders the batch/reference comparison of each kernel indicator.
func printParity(out io.Writer, reports []indicator.ParityReport) {
	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.SetStyle(table.StyleLight)
	tw.SetTitle("Batch vs reference")
	tw.AppendHeader(table.Row{"Kernel", "Bars", "Max rel err", "Worst bar", "OK"})
	for _, r := range reports {
		tw.AppendRow(table.Row{r.Name, r.Bars, formatRelErr(r.MaxRelErr), r.WorstBar, r.OK()})
	}
	tw.AppendFooter(table.Row{"", "", "tolerance", formatRelErr(indicator.ParityTolerance), ""})
	tw.Render()
}

func fmtFloat(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func formatRelErr(v float64) string {
	return strconv.FormatFloat(v, 'e', 2, 64)
}
