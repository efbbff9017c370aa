package collector

import (
	"context"
	"time"

	"Delorian/internal/model"
)

// Fetcher defines the interface for fetching historical bars.
type Fetcher interface {
	FetchBars(ctx context.Context, symbol string, interval model.Interval, start, end time.Time) ([]model.OHLCV, error)
	Name() string
}
