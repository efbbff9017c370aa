package collector

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"Delorian/internal/model"
	"Delorian/internal/store"
)

// CachingFetcher serves ranges from a BarStore when it covers them and
// writes fresh downloads through to it.
type CachingFetcher struct {
	Next   Fetcher
	Store  store.BarStore
	now    func() time.Time
	logger zerolog.Logger
}

// NewCachingFetcher wraps next with the given store.
func NewCachingFetcher(next Fetcher, st store.BarStore) *CachingFetcher {
	return &CachingFetcher{
		Next:   next,
		Store:  st,
		now:    time.Now,
		logger: log.With().Str("component", "cache").Logger(),
	}
}

func (f *CachingFetcher) Name() string { return f.Next.Name() }

func (f *CachingFetcher) FetchBars(ctx context.Context, symbol string, interval model.Interval, start, end time.Time) ([]model.OHLCV, error) {
	key := store.Key{Source: f.Next.Name(), Symbol: symbol, Interval: interval}

	bars, ok, err := f.Store.LoadBars(key, start, end)
	if err != nil {
		f.logger.Warn().Err(err).Msg("cache read failed, fetching")
	} else if ok {
		f.logger.Debug().Str("symbol", symbol).Int("bars", len(bars)).Msg("cache hit")
		return bars, nil
	}

	bars, err = f.Next.FetchBars(ctx, symbol, interval, start, end)
	if err != nil {
		return nil, err
	}

	// A range reaching into the future is still growing; don't mark it covered.
	if end.After(f.now()) {
		return bars, nil
	}
	// An empty answer is often a provider hiccup; retry upstream next time.
	if len(bars) == 0 {
		return bars, nil
	}
	if err := f.Store.SaveBars(key, start, end, bars); err != nil {
		f.logger.Warn().Err(err).Msg("cache write failed")
	}
	return bars, nil
}
