package collector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"Delorian/internal/model"
)

// ErrBadRequest is returned for a request that cannot be fetched.
var ErrBadRequest = errors.New("invalid run request")

// MockFetcher returns controllable synthetic data for development and testing.
type MockFetcher struct {
	Price float64
	Bars  []model.OHLCV // returned as-is when set
	Err   error
	Calls int

	mu sync.Mutex
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchBars(_ context.Context, _ string, interval model.Interval, start, end time.Time) ([]model.OHLCV, error) {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Bars != nil {
		return m.Bars, nil
	}
	return generateMockBars(m.Price, interval, start, end), nil
}

// generateMockBars produces a drifting sine wave so the oscillator has
// swings to cross on.
func generateMockBars(basePrice float64, interval model.Interval, start, end time.Time) []model.OHLCV {
	if basePrice <= 0 {
		basePrice = 100
	}
	step := interval.Duration()
	var bars []model.OHLCV
	for i, t := 0, start; t.Before(end); i, t = i+1, t.Add(step) {
		x := float64(i)
		p := basePrice * (1 + 0.08*math.Sin(x/7) + 0.03*math.Sin(x/2.3) + 0.0005*x)
		bars = append(bars, model.OHLCV{
			Time:   t,
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		})
	}
	return bars
}

// Collector turns fetched bars into a clean price series.
type Collector struct {
	Fetcher Fetcher
	logger  zerolog.Logger
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher) *Collector {
	return &Collector{
		Fetcher: fetcher,
		logger:  log.With().Str("component", "collector").Logger(),
	}
}

// Collect fetches the requested range and returns a series with positive
// closes and strictly increasing timestamps.
func (c *Collector) Collect(ctx context.Context, req model.Request) (*model.PriceSeries, error) {
	if req.Symbol == "" {
		return nil, fmt.Errorf("%w: empty symbol", ErrBadRequest)
	}
	if _, err := model.ParseInterval(string(req.Interval)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	if !req.Start.Before(req.End) {
		return nil, fmt.Errorf("%w: start %s is not before end %s", ErrBadRequest,
			req.Start.Format(model.DateLayout), req.End.Format(model.DateLayout))
	}

	start := time.Now()
	bars, err := c.Fetcher.FetchBars(ctx, req.Symbol, req.Interval, req.Start, req.End)
	if err != nil {
		return nil, fmt.Errorf("fetch %s from %s: %w", req.Symbol, c.Fetcher.Name(), err)
	}

	clean := cleanBars(bars)
	if dropped := len(bars) - len(clean); dropped > 0 {
		c.logger.Warn().Int("dropped", dropped).Str("symbol", req.Symbol).
			Msg("dropped bars with bad close or duplicate timestamp")
	}
	c.logger.Info().
		Str("symbol", req.Symbol).
		Str("interval", string(req.Interval)).
		Str("source", c.Fetcher.Name()).
		Int("bars", len(clean)).
		Dur("took", time.Since(start)).
		Msg("price series collected")

	return model.NewPriceSeries(req.Symbol, req.Interval, clean), nil
}

// cleanBars drops non-positive or non-finite closes, sorts by time and keeps
// the last bar for any repeated timestamp.
func cleanBars(bars []model.OHLCV) []model.OHLCV {
	out := make([]model.OHLCV, 0, len(bars))
	for _, b := range bars {
		if b.Close <= 0 || math.IsNaN(b.Close) || math.IsInf(b.Close, 0) {
			continue
		}
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })

	dedup := out[:0]
	for _, b := range out {
		if n := len(dedup); n > 0 && dedup[n-1].Time.Equal(b.Time) {
			dedup[n-1] = b
			continue
		}
		dedup = append(dedup, b)
	}
	return dedup
}
