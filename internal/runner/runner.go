package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"Delorian/internal/calculator"
	"Delorian/internal/collector"
	"Delorian/internal/model"
	"Delorian/internal/optimizer"
	"Delorian/internal/strategy"
)

// ErrInsufficientData means the series is too short for the oscillator to
// produce a single tradable crossover.
var ErrInsufficientData = errors.New("insufficient data for this configuration")

// Runner executes one backtest: fetch, oscillator, signals, grid search.
type Runner struct {
	Collector *collector.Collector
	Params    calculator.Params
	Optimizer *optimizer.Optimizer
	logger    zerolog.Logger
}

// New creates a Runner.
func New(col *collector.Collector, params calculator.Params, opt *optimizer.Optimizer) *Runner {
	return &Runner{
		Collector: col,
		Params:    params,
		Optimizer: opt,
		logger:    log.With().Str("component", "runner").Logger(),
	}
}

// Run fetches the requested series and returns the best exit configuration.
func (r *Runner) Run(ctx context.Context, req model.Request) (*model.Report, error) {
	started := time.Now()
	if err := r.Params.Validate(); err != nil {
		return nil, err
	}

	series, err := r.Collector.Collect(ctx, req)
	if err != nil {
		return nil, err
	}
	return r.Backtest(req, series, started)
}

// Backtest runs the strategy over an already collected series.
func (r *Runner) Backtest(req model.Request, series *model.PriceSeries, started time.Time) (*model.Report, error) {
	if series.Len() < r.Params.MinBars() {
		return nil, fmt.Errorf("%w: %d bars, need at least %d", ErrInsufficientData, series.Len(), r.Params.MinBars())
	}

	osc, err := calculator.WaveTrend(series.Closes, r.Params)
	if err != nil {
		return nil, err
	}
	long, short := strategy.Entries(series.Closes, osc)
	r.logger.Debug().
		Str("symbol", req.Symbol).
		Int("long_entries", long.Count()).
		Int("short_entries", short.Count()).
		Msg("entry signals generated")

	result, err := r.Optimizer.Optimize(series, long, short)
	if err != nil {
		return nil, err
	}

	report := &model.Report{
		Request:      req,
		Bars:         series.Len(),
		LongSignals:  long.Count(),
		ShortSignals: short.Count(),
		Result:       result,
		Elapsed:      time.Since(started),
	}
	r.logger.Info().
		Str("request", req.String()).
		Int("bars", report.Bars).
		Str("best", result.Rule.String()).
		Float64("total_return", result.TotalReturn).
		Dur("elapsed", report.Elapsed).
		Msg("run finished")
	return report, nil
}
