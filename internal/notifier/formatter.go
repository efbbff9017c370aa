package notifier

import (
	"fmt"
	"html"
	"math"
	"sort"
	"strings"
	"time"

	"Delorian/internal/model"
)

// Telegram rejects messages above 4096 characters.
const maxMessageLen = 4000

const (
	maxTradeRows    = 15
	maxDrawdownRows = 5
	timeLayout      = "2006-01-02 15:04"
)

// printer renders the same report as Telegram HTML or as plain text.
type printer struct {
	b    strings.Builder
	html bool
}

func (p *printer) printf(format string, args ...any) {
	fmt.Fprintf(&p.b, format, args...)
}

func (p *printer) bold(s string) string {
	if p.html {
		return "<b>" + html.EscapeString(s) + "</b>"
	}
	return s
}

func (p *printer) text(s string) string {
	if p.html {
		return html.EscapeString(s)
	}
	return s
}

func (p *printer) table(lines []string) {
	body := strings.Join(lines, "\n")
	if p.html {
		p.printf("<pre>%s</pre>\n", html.EscapeString(body))
		return
	}
	p.printf("%s\n", body)
}

func pct(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	if math.IsInf(v, 0) {
		return "inf"
	}
	return fmt.Sprintf("%+.2f%%", v*100)
}

func num(v float64) string {
	switch {
	case math.IsNaN(v):
		return "n/a"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return fmt.Sprintf("%.2f", v)
}

func duration(d time.Duration) string {
	if d >= 24*time.Hour && d%(24*time.Hour) == 0 {
		return fmt.Sprintf("%dd", d/(24*time.Hour))
	}
	return d.String()
}

// FormatReport formats a run report as a Telegram HTML message.
func FormatReport(r *model.Report) string {
	p := &printer{html: true}
	writeReport(p, r)
	return truncate(p.b.String())
}

// FormatReportText formats a run report for a terminal.
func FormatReportText(r *model.Report) string {
	p := &printer{}
	writeReport(p, r)
	return p.b.String()
}

func writeReport(p *printer, r *model.Report) {
	res := r.Result
	st := res.Portfolio.Stats

	p.printf("📊 %s | %s\n\n", p.bold("Delorian Wave Trend backtest"), p.text(r.Request.String()))
	p.printf("Bars: %d | Long entries: %d | Short entries: %d\n", r.Bars, r.LongSignals, r.ShortSignals)
	p.printf("🎯 %s %s\n", p.bold("Optimal exit:"), p.text(res.Rule.String()))
	p.printf("Total return: %s (benchmark %s)\n\n", pct(res.TotalReturn), pct(st.BenchmarkReturn))

	p.printf("📈 %s\n", p.bold("Portfolio stats"))
	p.table([]string{
		fmt.Sprintf("%-22s %s", "Start", st.Start.Format(timeLayout)),
		fmt.Sprintf("%-22s %s", "End", st.End.Format(timeLayout)),
		fmt.Sprintf("%-22s %s", "Period", duration(st.Period)),
		fmt.Sprintf("%-22s %s", "Start value", num(st.StartValue)),
		fmt.Sprintf("%-22s %s", "End value", num(st.EndValue)),
		fmt.Sprintf("%-22s %s", "Total return", pct(st.TotalReturn)),
		fmt.Sprintf("%-22s %s", "Benchmark return", pct(st.BenchmarkReturn)),
		fmt.Sprintf("%-22s %s", "Max drawdown", pct(-st.MaxDrawdown)),
		fmt.Sprintf("%-22s %s", "Max drawdown duration", duration(st.MaxDrawdownTime)),
		fmt.Sprintf("%-22s %s", "Exposure", pct(st.ExposureFraction)),
		fmt.Sprintf("%-22s %s", "Sharpe ratio", num(st.SharpeRatio)),
		fmt.Sprintf("%-22s %s", "Sortino ratio", num(st.SortinoRatio)),
	})

	p.printf("\n🧾 %s\n", p.bold("Trade stats"))
	p.table([]string{
		fmt.Sprintf("%-22s %d", "Total trades", st.TotalTrades),
		fmt.Sprintf("%-22s %d", "Closed trades", st.ClosedTrades),
		fmt.Sprintf("%-22s %d", "Open trades", st.OpenTrades),
		fmt.Sprintf("%-22s %s", "Open trade PnL", num(st.OpenTradePnL)),
		fmt.Sprintf("%-22s %s", "Win rate", pct(st.WinRate)),
		fmt.Sprintf("%-22s %s", "Best trade", pct(st.BestTrade)),
		fmt.Sprintf("%-22s %s", "Worst trade", pct(st.WorstTrade)),
		fmt.Sprintf("%-22s %s", "Avg winning trade", pct(st.AvgWinningTrade)),
		fmt.Sprintf("%-22s %s", "Avg losing trade", pct(st.AvgLosingTrade)),
		fmt.Sprintf("%-22s %s", "Profit factor", num(st.ProfitFactor)),
		fmt.Sprintf("%-22s %s", "Expectancy", num(st.Expectancy)),
	})

	writeTrades(p, res.Portfolio.Trades)
	writePositions(p, res.Portfolio.Trades)
	writeDrawdowns(p, res.Portfolio.Drawdowns)

	p.printf("\n⏱ %s\n", duration(r.Elapsed.Round(time.Millisecond)))
}

func writeTrades(p *printer, trades []model.Trade) {
	p.printf("\n🔁 %s\n", p.bold(fmt.Sprintf("Trades (%d)", len(trades))))
	if len(trades) == 0 {
		p.printf("none\n")
		return
	}
	lines := []string{fmt.Sprintf("%-3s %-5s %-16s %10s %-16s %10s %9s %-6s",
		"#", "side", "entry", "price", "exit", "price", "return", "status")}
	for i, t := range trades {
		if i == maxTradeRows {
			lines = append(lines, fmt.Sprintf("... %d more", len(trades)-maxTradeRows))
			break
		}
		lines = append(lines, fmt.Sprintf("%-3d %-5s %-16s %10.2f %-16s %10.2f %9s %-6s",
			t.ID, t.Side, t.EntryTime.Format(timeLayout), t.EntryPrice,
			t.ExitTime.Format(timeLayout), t.ExitPrice, pct(t.Return), t.Status))
	}
	p.table(lines)
}

// writePositions lists positions still held at the end of the data.
func writePositions(p *printer, trades []model.Trade) {
	var lines []string
	for _, t := range trades {
		if t.Status != model.TradeOpen {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s %.6f @ %.2f since %s, marked %.2f (%s)",
			t.Side, t.Size, t.EntryPrice, t.EntryTime.Format(timeLayout), t.ExitPrice, pct(t.Return)))
	}
	p.printf("\n📌 %s\n", p.bold("Open positions"))
	if len(lines) == 0 {
		p.printf("none\n")
		return
	}
	p.table(lines)
}

func writeDrawdowns(p *printer, dds []model.Drawdown) {
	p.printf("\n📉 %s\n", p.bold(fmt.Sprintf("Drawdowns (%d)", len(dds))))
	if len(dds) == 0 {
		p.printf("none\n")
		return
	}
	worst := make([]model.Drawdown, len(dds))
	copy(worst, dds)
	sort.SliceStable(worst, func(i, j int) bool { return worst[i].Depth > worst[j].Depth })
	lines := []string{fmt.Sprintf("%-3s %-16s %-16s %-16s %8s %-9s", "#", "peak", "valley", "end", "depth", "status")}
	for i, dd := range worst {
		if i == maxDrawdownRows {
			break
		}
		lines = append(lines, fmt.Sprintf("%-3d %-16s %-16s %-16s %8s %-9s",
			dd.ID, dd.PeakTime.Format(timeLayout), dd.ValleyTime.Format(timeLayout),
			dd.EndTime.Format(timeLayout), pct(-dd.Depth), dd.Status))
	}
	p.table(lines)
}

// FormatGrid lists every evaluated cell in grid order, marking the winner.
func FormatGrid(r *model.Report) string {
	p := &printer{html: true}
	writeGrid(p, r)
	return truncate(p.b.String())
}

// FormatGridText is FormatGrid for a terminal.
func FormatGridText(r *model.Report) string {
	p := &printer{}
	writeGrid(p, r)
	return p.b.String()
}

func writeGrid(p *printer, r *model.Report) {
	p.printf("🧮 %s | %s\n", p.bold("Exit grid"), p.text(r.Request.String()))
	lines := []string{fmt.Sprintf("%6s %6s %10s %7s", "TP%", "SL%", "return", "trades")}
	for _, c := range r.Result.Cells {
		ret := "n/a"
		if c.Defined {
			ret = pct(c.TotalReturn)
		}
		mark := ""
		if c.Defined && c.Rule == r.Result.Rule {
			mark = " *"
		}
		lines = append(lines, fmt.Sprintf("%6.2f %6.2f %10s %7d%s",
			c.Rule.TakeProfitPct, c.Rule.StopLossPct, ret, c.Trades, mark))
	}
	p.table(lines)
}

// FormatError formats a failed run for Telegram.
func FormatError(req model.Request, err error) string {
	return fmt.Sprintf("❌ <b>Run failed</b> | %s\n\n%s",
		html.EscapeString(req.String()), html.EscapeString(err.Error()))
}

func truncate(s string) string {
	if len(s) <= maxMessageLen {
		return s
	}
	cut := s[:maxMessageLen]
	if i := strings.LastIndex(cut, "\n"); i > 0 {
		cut = cut[:i]
	}
	// don't leave an unclosed <pre>
	if strings.Count(cut, "<pre>") > strings.Count(cut, "</pre>") {
		cut += "</pre>"
	}
	return cut + "\n…"
}
