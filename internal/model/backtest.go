package model

import "time"

// SimulationInput is everything the portfolio simulator needs for one grid cell.
type SimulationInput struct {
	Times        []time.Time
	Close        []float64
	LongEntries  Signal
	LongExits    Signal
	ShortEntries Signal
	ShortExits   Signal
	InitialCash  float64
	Frequency    time.Duration
}

// TradeStatus tells whether a trade was closed before the end of the data.
type TradeStatus string

const (
	TradeOpen   TradeStatus = "Open"
	TradeClosed TradeStatus = "Closed"
)

// Trade is one round trip (or an open position marked to market).
type Trade struct {
	ID         int
	Side       Side
	Size       float64
	EntryIndex int
	EntryTime  time.Time
	EntryPrice float64
	ExitIndex  int
	ExitTime   time.Time
	ExitPrice  float64
	PnL        float64
	Return     float64
	Status     TradeStatus
}

// DrawdownStatus tells whether equity got back to its previous peak.
type DrawdownStatus string

const (
	DrawdownActive    DrawdownStatus = "Active"
	DrawdownRecovered DrawdownStatus = "Recovered"
)

// Drawdown is a peak-to-valley-to-recovery episode of the equity curve.
type Drawdown struct {
	ID          int
	PeakIndex   int
	PeakTime    time.Time
	PeakValue   float64
	ValleyIndex int
	ValleyTime  time.Time
	ValleyValue float64
	EndIndex    int
	EndTime     time.Time
	EndValue    float64
	Depth       float64 // fraction, 0.12 means -12%
	Status      DrawdownStatus
}

// Stats is the summary a simulation produces.
type Stats struct {
	Start            time.Time
	End              time.Time
	Period           time.Duration
	StartValue       float64
	EndValue         float64
	TotalReturn      float64
	BenchmarkReturn  float64
	MaxDrawdown      float64
	MaxDrawdownTime  time.Duration
	TotalTrades      int
	ClosedTrades     int
	OpenTrades       int
	OpenTradePnL     float64
	WinRate          float64
	BestTrade        float64
	WorstTrade       float64
	AvgWinningTrade  float64
	AvgLosingTrade   float64
	ProfitFactor     float64
	Expectancy       float64
	SharpeRatio      float64
	SortinoRatio     float64
	ExposureFraction float64
}

// Portfolio is the simulator's output for one (entries, exits) set.
type Portfolio struct {
	Equity    []float64
	Trades    []Trade
	Drawdowns []Drawdown
	Stats     Stats
}

// TotalReturn is the fractional return over the whole series.
func (p *Portfolio) TotalReturn() float64 {
	return p.Stats.TotalReturn
}

// GridCell records the outcome of one take-profit/stop-loss pair.
type GridCell struct {
	Rule        ExitRule
	TotalReturn float64
	Trades      int
	Defined     bool
}

// BacktestResult is the winning configuration of a grid search.
type BacktestResult struct {
	Rule        ExitRule
	TotalReturn float64
	Portfolio   *Portfolio
	Cells       []GridCell
}

// Report is what a run hands to the display layer.
type Report struct {
	Request      Request
	Bars         int
	LongSignals  int
	ShortSignals int
	Result       *BacktestResult
	Elapsed      time.Duration
}
