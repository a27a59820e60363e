package classification

import (
	"fmt"

	"github.com/uyplayer/tech-analysis/internal/kernel"
	"github.com/uyplayer/tech-analysis/internal/model"
	"github.com/uyplayer/tech-analysis/internal/series"
)

// Classifier predicts a Direction per bar from validated parameters.
type Classifier struct {
	params ValidatedParams
}

// NewClassifier returns a classifier for p.
func NewClassifier(p ValidatedParams) *Classifier {
	return &Classifier{params: p}
}

// Classify returns one Direction per candle.
//
// TODO: implement the nearest-neighbour classification over Lorentzian distance.
func (c *Classifier) Classify(candles []model.Candle) ([]Direction, error) {
	return nil, ErrNotImplemented
}

// KernelEstimates computes the kernel filter's regression over the configured source
// column. The Gaussian smoothing estimate is only computed when UseKernelSmoothing is
// set; otherwise smoothed is empty.
func (c *Classifier) KernelEstimates(candles []model.Candle, strategy kernel.Strategy) (estimate, smoothed series.Series, err error) {
	kf := c.params.KernelFilter()
	src := model.Column(candles, c.params.Source())

	estimate, err = kernel.Regression(src, kf.Params(strategy))
	if err != nil {
		return series.Series{}, series.Series{}, fmt.Errorf("kernel estimate: %w", err)
	}
	if !kf.UseKernelSmoothing {
		return estimate, series.Series{}, nil
	}

	sp, err := kf.SmoothingParams(strategy)
	if err != nil {
		return series.Series{}, series.Series{}, err
	}
	smoothed, err = kernel.Regression(src, sp)
	if err != nil {
		return series.Series{}, series.Series{}, fmt.Errorf("kernel smoothing: %w", err)
	}
	return estimate, smoothed, nil
}
