package simulator

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"Delorian/internal/model"
)

const year = 365 * 24 * time.Hour

// drawdowns splits the equity curve into peak-valley-recovery episodes.
func drawdowns(equity []float64, timeAt func(int) time.Time) []model.Drawdown {
	var out []model.Drawdown
	if len(equity) == 0 {
		return out
	}
	peak := 0
	var cur *model.Drawdown

	for i := 1; i < len(equity); i++ {
		v := equity[i]
		if cur == nil {
			if v >= equity[peak] {
				peak = i
				continue
			}
			cur = &model.Drawdown{
				ID:          len(out),
				PeakIndex:   peak,
				PeakTime:    timeAt(peak),
				PeakValue:   equity[peak],
				ValleyIndex: i,
				ValleyValue: v,
			}
			continue
		}
		if v < cur.ValleyValue {
			cur.ValleyIndex = i
			cur.ValleyValue = v
		}
		if v >= cur.PeakValue {
			cur.EndIndex = i
			cur.Status = model.DrawdownRecovered
			out = append(out, finishDrawdown(*cur, equity, timeAt))
			cur = nil
			peak = i
		}
	}
	if cur != nil {
		cur.EndIndex = len(equity) - 1
		cur.Status = model.DrawdownActive
		out = append(out, finishDrawdown(*cur, equity, timeAt))
	}
	return out
}

func finishDrawdown(dd model.Drawdown, equity []float64, timeAt func(int) time.Time) model.Drawdown {
	dd.ValleyTime = timeAt(dd.ValleyIndex)
	dd.EndTime = timeAt(dd.EndIndex)
	dd.EndValue = equity[dd.EndIndex]
	if dd.PeakValue != 0 {
		dd.Depth = (dd.PeakValue - dd.ValleyValue) / dd.PeakValue
	}
	return dd
}

func computeStats(in model.SimulationInput, pf *model.Portfolio, barsInMarket int, timeAt func(int) time.Time) model.Stats {
	n := len(in.Close)
	s := model.Stats{
		Start:           timeAt(0),
		End:             timeAt(n - 1),
		Period:          time.Duration(n) * in.Frequency,
		StartValue:      in.InitialCash,
		EndValue:        pf.Equity[n-1],
		TotalReturn:     pf.Equity[n-1]/in.InitialCash - 1,
		BenchmarkReturn: in.Close[n-1]/in.Close[0] - 1,
	}
	s.ExposureFraction = float64(barsInMarket) / float64(n)

	for _, dd := range pf.Drawdowns {
		if dd.Depth > s.MaxDrawdown {
			s.MaxDrawdown = dd.Depth
		}
		if d := time.Duration(dd.EndIndex-dd.PeakIndex) * in.Frequency; d > s.MaxDrawdownTime {
			s.MaxDrawdownTime = d
		}
	}

	fillTradeStats(&s, pf.Trades)
	s.SharpeRatio, s.SortinoRatio = riskRatios(pf.Equity, in.InitialCash, in.Frequency)
	return s
}

func fillTradeStats(s *model.Stats, trades []model.Trade) {
	s.TotalTrades = len(trades)
	var winPnL, lossPnL, sumPnL, sumWinRet, sumLossRet float64
	var wins, losses int
	s.BestTrade = math.Inf(-1)
	s.WorstTrade = math.Inf(1)

	for _, t := range trades {
		if t.Status == model.TradeOpen {
			s.OpenTrades++
			s.OpenTradePnL += t.PnL
			continue
		}
		s.ClosedTrades++
		sumPnL += t.PnL
		if t.Return > s.BestTrade {
			s.BestTrade = t.Return
		}
		if t.Return < s.WorstTrade {
			s.WorstTrade = t.Return
		}
		if t.PnL > 0 {
			wins++
			winPnL += t.PnL
			sumWinRet += t.Return
		} else {
			losses++
			lossPnL -= t.PnL
			sumLossRet += t.Return
		}
	}

	if s.ClosedTrades == 0 {
		s.BestTrade, s.WorstTrade = math.NaN(), math.NaN()
		s.WinRate, s.ProfitFactor, s.Expectancy = math.NaN(), math.NaN(), math.NaN()
		s.AvgWinningTrade, s.AvgLosingTrade = math.NaN(), math.NaN()
		return
	}
	s.WinRate = float64(wins) / float64(s.ClosedTrades)
	s.Expectancy = sumPnL / float64(s.ClosedTrades)
	s.AvgWinningTrade, s.AvgLosingTrade = math.NaN(), math.NaN()
	if wins > 0 {
		s.AvgWinningTrade = sumWinRet / float64(wins)
	}
	if losses > 0 {
		s.AvgLosingTrade = sumLossRet / float64(losses)
	}
	switch {
	case lossPnL > 0:
		s.ProfitFactor = winPnL / lossPnL
	case winPnL > 0:
		s.ProfitFactor = math.Inf(1)
	default:
		s.ProfitFactor = math.NaN()
	}
}

// riskRatios returns the annualised Sharpe and Sortino ratios of per-bar
// equity returns, with a zero risk-free rate. Degenerate curves give 0.
func riskRatios(equity []float64, initial float64, freq time.Duration) (sharpe, sortino float64) {
	if len(equity) < 2 || freq <= 0 {
		return 0, 0
	}
	rets := make([]float64, len(equity))
	prev := initial
	for i, v := range equity {
		if prev != 0 {
			rets[i] = v/prev - 1
		}
		prev = v
	}
	ann := math.Sqrt(float64(year) / float64(freq))

	mean, std := stat.MeanStdDev(rets, nil)
	if std > 0 {
		sharpe = mean / std * ann
	}

	downside := make([]float64, len(rets))
	for i, r := range rets {
		if r < 0 {
			downside[i] = r * r
		}
	}
	if dd := math.Sqrt(stat.Mean(downside, nil)); dd > 0 {
		sortino = mean / dd * ann
	}
	return sharpe, sortino
}
