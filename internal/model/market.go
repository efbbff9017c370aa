package model

import (
	"fmt"
	"time"
)

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Interval is a bar timeframe as understood by the data sources.
type Interval string

const (
	IntervalHour Interval = "1h"
	IntervalDay  Interval = "1d"
)

// Intervals lists the supported timeframes.
var Intervals = []Interval{IntervalHour, IntervalDay}

// ParseInterval validates a timeframe string.
func ParseInterval(s string) (Interval, error) {
	for _, iv := range Intervals {
		if string(iv) == s {
			return iv, nil
		}
	}
	return "", fmt.Errorf("unsupported interval %q (want one of %v)", s, Intervals)
}

// Duration returns the bar length, used as the simulation frequency.
func (i Interval) Duration() time.Duration {
	switch i {
	case IntervalHour:
		return time.Hour
	default:
		return 24 * time.Hour
	}
}

// Request describes what to fetch for one run.
type Request struct {
	Symbol   string
	Interval Interval
	Start    time.Time
	End      time.Time
}

func (r Request) String() string {
	return fmt.Sprintf("%s %s %s..%s", r.Symbol, r.Interval,
		r.Start.Format(DateLayout), r.End.Format(DateLayout))
}

// DateLayout is the date format used for run requests.
const DateLayout = "2006-01-02"

// PriceSeries holds the timestamped closes a run operates on. Timestamps are
// strictly increasing. It is not modified after the collector builds it.
type PriceSeries struct {
	Symbol    string
	Interval  Interval
	Times     []time.Time
	Closes    []float64
	FetchedAt time.Time
}

// NewPriceSeries builds a series from bars that are already sorted.
func NewPriceSeries(symbol string, interval Interval, bars []OHLCV) *PriceSeries {
	ps := &PriceSeries{
		Symbol:    symbol,
		Interval:  interval,
		Times:     make([]time.Time, len(bars)),
		Closes:    make([]float64, len(bars)),
		FetchedAt: time.Now(),
	}
	for i, b := range bars {
		ps.Times[i] = b.Time
		ps.Closes[i] = b.Close
	}
	return ps
}

// Len returns the number of bars.
func (p *PriceSeries) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Closes)
}
