package simulator

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"Delorian/internal/model"
)

var (
	// ErrNoTrades means no entry was ever filled, so the run has no return.
	ErrNoTrades = errors.New("no trades executed")
	// ErrBadInput is returned when the input series are misaligned.
	ErrBadInput = errors.New("invalid simulation input")
)

// Engine simulates a single-position portfolio from entry/exit signals.
//
// Orders fill at the bar close with all available cash and no fees. A bar
// carrying both an entry and an exit for the same side, or both a long and
// a short entry, is ignored. An opposite entry while in a position reverses
// it. Positions still open at the end are marked to market.
type Engine struct {
	logger zerolog.Logger
}

// NewEngine creates a simulation engine.
func NewEngine() *Engine {
	return &Engine{logger: log.With().Str("component", "simulator").Logger()}
}

type position struct {
	side       model.Side
	size       float64
	entryIndex int
	entryPrice float64
}

func (p *position) open() bool { return p.side != "" }

// Simulate runs the portfolio over in and returns equity, trades, drawdowns
// and summary statistics.
func (e *Engine) Simulate(in model.SimulationInput) (*model.Portfolio, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	n := len(in.Close)
	cash := in.InitialCash
	equity := make([]float64, n)
	var trades []model.Trade
	var pos position
	barsInMarket := 0

	timeAt := func(i int) time.Time {
		if len(in.Times) == 0 {
			return time.Time{}
		}
		return in.Times[i]
	}

	openPos := func(side model.Side, i int) {
		// A short that lost more than the account leaves nothing to size with.
		if cash <= 0 {
			return
		}
		price := in.Close[i]
		pos = position{side: side, size: cash / price, entryIndex: i, entryPrice: price}
		if side == model.Short {
			cash += pos.size * price
		} else {
			cash = 0
		}
	}
	closePos := func(i int, status model.TradeStatus) {
		price := in.Close[i]
		var pnl float64
		if pos.side == model.Long {
			cash += pos.size * price
			pnl = pos.size * (price - pos.entryPrice)
		} else {
			cash -= pos.size * price
			pnl = pos.size * (pos.entryPrice - price)
		}
		trades = append(trades, model.Trade{
			ID:         len(trades),
			Side:       pos.side,
			Size:       pos.size,
			EntryIndex: pos.entryIndex,
			EntryTime:  timeAt(pos.entryIndex),
			EntryPrice: pos.entryPrice,
			ExitIndex:  i,
			ExitTime:   timeAt(i),
			ExitPrice:  price,
			PnL:        pnl,
			Return:     pnl / (pos.size * pos.entryPrice),
			Status:     status,
		})
		pos = position{}
	}

	for i := 0; i < n; i++ {
		longEntry, longExit := in.LongEntries[i], in.LongExits[i]
		shortEntry, shortExit := in.ShortEntries[i], in.ShortExits[i]
		if longEntry && longExit {
			longEntry, longExit = false, false
		}
		if shortEntry && shortExit {
			shortEntry, shortExit = false, false
		}
		if longEntry && shortEntry {
			longEntry, shortEntry = false, false
		}

		switch pos.side {
		case model.Long:
			if shortEntry {
				closePos(i, model.TradeClosed)
				openPos(model.Short, i)
			} else if longExit {
				closePos(i, model.TradeClosed)
			}
		case model.Short:
			if longEntry {
				closePos(i, model.TradeClosed)
				openPos(model.Long, i)
			} else if shortExit {
				closePos(i, model.TradeClosed)
			}
		default:
			if longEntry {
				openPos(model.Long, i)
			} else if shortEntry {
				openPos(model.Short, i)
			}
		}

		equity[i] = markToMarket(cash, pos, in.Close[i])
		if pos.open() {
			barsInMarket++
		}
	}

	if pos.open() {
		// report the open position at the last close without changing equity
		last := n - 1
		saved := cash
		closePos(last, model.TradeOpen)
		cash = saved
	}

	if len(trades) == 0 {
		return nil, ErrNoTrades
	}

	pf := &model.Portfolio{
		Equity:    equity,
		Trades:    trades,
		Drawdowns: drawdowns(equity, timeAt),
	}
	pf.Stats = computeStats(in, pf, barsInMarket, timeAt)

	e.logger.Debug().
		Int("bars", n).
		Int("trades", len(trades)).
		Float64("total_return", pf.Stats.TotalReturn).
		Msg("simulation finished")
	return pf, nil
}

func markToMarket(cash float64, pos position, price float64) float64 {
	switch pos.side {
	case model.Long:
		return cash + pos.size*price
	case model.Short:
		return cash - pos.size*price
	default:
		return cash
	}
}

func validate(in model.SimulationInput) error {
	n := len(in.Close)
	if n == 0 {
		return fmt.Errorf("%w: empty close series", ErrBadInput)
	}
	if in.InitialCash <= 0 {
		return fmt.Errorf("%w: initial cash must be positive, got %v", ErrBadInput, in.InitialCash)
	}
	if len(in.Times) != 0 && len(in.Times) != n {
		return fmt.Errorf("%w: %d timestamps for %d closes", ErrBadInput, len(in.Times), n)
	}
	for name, s := range map[string]model.Signal{
		"long entries":  in.LongEntries,
		"long exits":    in.LongExits,
		"short entries": in.ShortEntries,
		"short exits":   in.ShortExits,
	} {
		if len(s) != n {
			return fmt.Errorf("%w: %s has %d points, want %d", ErrBadInput, name, len(s), n)
		}
	}
	for i, c := range in.Close {
		if c <= 0 {
			return fmt.Errorf("%w: non-positive close %v at %d", ErrBadInput, c, i)
		}
	}
	return nil
}
