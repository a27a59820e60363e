package indicator

import (
	"fmt"
	"math"

	"github.com/uyplayer/tech-analysis/internal/kernel"
	"github.com/uyplayer/tech-analysis/internal/series"
)

// ParityTolerance is the maximum relative error accepted between the batch and
// reference kernel strategies.
const ParityTolerance = 1e-9

// ParityReport compares the two strategies of one kernel config.
type ParityReport struct {
	Name      string
	Bars      int     // bars compared (the shared valid range)
	MaxRelErr float64 // largest relative error observed
	WorstBar  int     // bar index of MaxRelErr, -1 if Bars == 0
}

// OK reports whether the strategies agree within ParityTolerance.
func (r ParityReport) OK() bool { return r.MaxRelErr < ParityTolerance }

// Parity runs every kernel config in both strategies over src and reports the
// largest relative difference on the bars both define. Non-kernel configs are
// ignored.
func Parity(src series.Series, configs []Config) ([]ParityReport, error) {
	var reports []ParityReport
	for _, cfg := range configs {
		p, ok := cfg.KernelParams()
		if !ok {
			continue
		}
		p.Strategy = kernel.Batch
		b, err := kernel.Regression(src, p)
		if err != nil {
			return nil, fmt.Errorf("%s batch: %w", cfg.Name(), err)
		}
		p.Strategy = kernel.Reference
		r, err := kernel.Regression(src, p)
		if err != nil {
			return nil, fmt.Errorf("%s reference: %w", cfg.Name(), err)
		}

		rep := ParityReport{Name: p.Label(), WorstBar: -1}
		for i := kernel.ValidStart(p.StartAtBar); i < src.Len(); i++ {
			rep.Bars++
			if e := relativeError(b.At(i), r.At(i)); e > rep.MaxRelErr || rep.WorstBar < 0 {
				rep.MaxRelErr = e
				rep.WorstBar = i
			}
		}
		reports = append(reports, rep)
	}
	return reports, nil
}

func relativeError(a, b float64) float64 {
	scale := math.Max(math.Abs(a), math.Abs(b))
	if scale == 0 {
		return 0
	}
	return math.Abs(a-b) / scale
}
