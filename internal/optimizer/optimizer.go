package optimizer

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	lop "github.com/samber/lo/parallel"

	"Delorian/internal/model"
	"Delorian/internal/simulator"
	"Delorian/internal/strategy"
)

// ErrNoViableConfig means no grid cell produced a defined return.
var ErrNoViableConfig = errors.New("no viable configuration found")

// Simulator turns entry/exit signals into a portfolio.
type Simulator interface {
	Simulate(in model.SimulationInput) (*model.Portfolio, error)
}

// Optimizer brute-forces the exit grid and keeps the best total return.
type Optimizer struct {
	Grid        Grid
	Simulator   Simulator
	InitialCash float64
	Parallel    bool
	logger      zerolog.Logger
}

// New creates an Optimizer.
func New(grid Grid, sim Simulator, initialCash float64, parallel bool) *Optimizer {
	return &Optimizer{
		Grid:        grid,
		Simulator:   sim,
		InitialCash: initialCash,
		Parallel:    parallel,
		logger:      log.With().Str("component", "optimizer").Logger(),
	}
}

type evaluation struct {
	cell      model.GridCell
	portfolio *model.Portfolio
	err       error
}

// Optimize simulates every grid cell against the given entries and returns
// the cell with the highest total return. On equal returns the cell that
// comes first in grid order wins, whether or not cells ran in parallel.
func (o *Optimizer) Optimize(series *model.PriceSeries, long, short model.Signal) (*model.BacktestResult, error) {
	if err := o.Grid.Validate(); err != nil {
		return nil, err
	}
	started := time.Now()
	rules := o.Grid.Rules()

	evaluate := func(rule model.ExitRule, _ int) evaluation {
		return o.evaluate(series, long, short, rule)
	}
	var evals []evaluation
	if o.Parallel {
		evals = lop.Map(rules, evaluate)
	} else {
		evals = lo.Map(rules, evaluate)
	}

	for _, ev := range evals {
		if ev.err != nil {
			return nil, fmt.Errorf("evaluate %s: %w", ev.cell.Rule, ev.err)
		}
	}

	cells := lo.Map(evals, func(ev evaluation, _ int) model.GridCell { return ev.cell })
	defined := lo.Filter(evals, func(ev evaluation, _ int) bool { return ev.cell.Defined })
	if len(defined) == 0 {
		o.logger.Warn().Int("cells", len(evals)).Msg("no grid cell produced a defined return")
		return nil, ErrNoViableConfig
	}

	best := lo.MaxBy(defined, func(a, b evaluation) bool {
		return a.cell.TotalReturn > b.cell.TotalReturn
	})

	o.logger.Info().
		Int("cells", len(evals)).
		Int("defined", len(defined)).
		Float64("take_profit", best.cell.Rule.TakeProfitPct).
		Float64("stop_loss", best.cell.Rule.StopLossPct).
		Float64("total_return", best.cell.TotalReturn).
		Dur("elapsed", time.Since(started)).
		Msg("grid search finished")

	return &model.BacktestResult{
		Rule:        best.cell.Rule,
		TotalReturn: best.cell.TotalReturn,
		Portfolio:   best.portfolio,
		Cells:       cells,
	}, nil
}

func (o *Optimizer) evaluate(series *model.PriceSeries, long, short model.Signal, rule model.ExitRule) evaluation {
	closes := series.Closes
	in := model.SimulationInput{
		Times:        series.Times,
		Close:        closes,
		LongEntries:  long,
		LongExits:    strategy.Exits(closes, long, rule, model.Long),
		ShortEntries: short,
		ShortExits:   strategy.Exits(closes, short, rule, model.Short),
		InitialCash:  o.InitialCash,
		Frequency:    series.Interval.Duration(),
	}
	ev := evaluation{cell: model.GridCell{Rule: rule}}

	pf, err := o.Simulator.Simulate(in)
	switch {
	case errors.Is(err, simulator.ErrNoTrades):
		return ev
	case err != nil:
		ev.err = err
		return ev
	case pf == nil || math.IsNaN(pf.TotalReturn()) || math.IsInf(pf.TotalReturn(), 0):
		return ev
	}

	ev.portfolio = pf
	ev.cell.TotalReturn = pf.TotalReturn()
	ev.cell.Trades = len(pf.Trades)
	ev.cell.Defined = true
	return ev
}
