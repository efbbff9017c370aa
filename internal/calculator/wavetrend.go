package calculator

import (
	"errors"
	"fmt"
	"math"

	"Delorian/internal/model"
)

// ErrInvalidParams is returned for non-positive or too-short periods.
var ErrInvalidParams = errors.New("invalid wave trend parameters")

// ciScale is the Lambert constant used by the channel index.
const ciScale = 0.015

// Params are the Wave Trend smoothing lengths.
type Params struct {
	ChannelLength int
	AverageLength int
	MALength      int
}

// DefaultParams returns channel 9, average 12, signal 3.
func DefaultParams() Params {
	return Params{ChannelLength: 9, AverageLength: 12, MALength: 3}
}

// Validate requires every period to be at least 2.
func (p Params) Validate() error {
	if p.ChannelLength < 2 || p.AverageLength < 2 || p.MALength < 2 {
		return fmt.Errorf("%w: channel=%d avg=%d ma=%d (each must be >= 2)",
			ErrInvalidParams, p.ChannelLength, p.AverageLength, p.MALength)
	}
	return nil
}

// Warmup is the index of the first defined wt2 point on gap-free data.
func (p Params) Warmup() int {
	return 2*(p.ChannelLength-1) + (p.AverageLength - 1) + (p.MALength - 1)
}

// MinBars is the shortest series on which an entry can fire: one defined
// wt2 pair for the crossover plus one bar of execution lag.
func (p Params) MinBars() int {
	return p.Warmup() + 3
}

// WaveTrend computes the (wt1, wt2) oscillator pair for closes.
func WaveTrend(closes []float64, p Params) (model.Oscillator, error) {
	if err := p.Validate(); err != nil {
		return model.Oscillator{}, err
	}
	src := model.SeriesOf(closes)

	esa := EMA(src, p.ChannelLength)
	diff := make(model.Series, len(src))
	deviation := make(model.Series, len(src))
	for i := range src {
		if !esa[i].OK {
			continue
		}
		diff[i] = model.Defined(src[i].V - esa[i].V)
		deviation[i] = model.Defined(math.Abs(diff[i].V))
	}

	de := EMA(deviation, p.ChannelLength)
	ci := make(model.Series, len(src))
	for i := range src {
		if !diff[i].OK || !de[i].OK || de[i].V == 0 {
			continue
		}
		ci[i] = model.Defined(diff[i].V / (ciScale * de[i].V))
	}

	wt1 := EMA(ci, p.AverageLength)
	wt2 := SMA(wt1, p.MALength)
	return model.Oscillator{WT1: wt1, WT2: wt2}, nil
}
