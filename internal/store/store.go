package store

import (
	"time"

	"Delorian/internal/model"
)

// Key identifies one cached bar stream.
type Key struct {
	Source   string
	Symbol   string
	Interval model.Interval
}

// BarStore caches downloaded price bars. It never holds backtest results.
type BarStore interface {
	// LoadBars returns the cached bars in [start, end) and whether the store
	// has a recorded fetch covering that whole range.
	LoadBars(key Key, start, end time.Time) ([]model.OHLCV, bool, error)
	// SaveBars writes bars and records [start, end) as covered.
	SaveBars(key Key, start, end time.Time, bars []model.OHLCV) error
	Close() error
}
