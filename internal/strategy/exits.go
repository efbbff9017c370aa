package strategy

import "Delorian/internal/model"

// ReferencePrices holds the close of the most recent entry bar at every
// index, undefined until the first entry.
func ReferencePrices(closes []float64, entries model.Signal) model.Series {
	ref := make(model.Series, len(closes))
	last := model.Undefined
	for t := range closes {
		if entries[t] {
			last = model.Defined(closes[t])
		}
		ref[t] = last
	}
	return ref
}

// Exits marks the bars where the take-profit or stop-loss threshold of rule
// is crossed relative to the latest entry price.
//
// An exit can only fire on a bar whose previous bar was an entry bar, so a
// position never opens and closes on the same bar. Every candidate bar is
// tested against the most recent entry price; no per-trade state is kept.
func Exits(closes []float64, entries model.Signal, rule model.ExitRule, side model.Side) model.Signal {
	ref := ReferencePrices(closes, entries)
	guard := entries.Shift(1)
	tp := rule.TakeProfitPct / 100
	sl := rule.StopLossPct / 100

	out := make(model.Signal, len(closes))
	for t := range closes {
		if !guard[t] || !ref[t].OK {
			continue
		}
		p, c := ref[t].V, closes[t]
		switch side {
		case model.Long:
			out[t] = c >= p*(1+tp) || c <= p*(1-sl)
		case model.Short:
			out[t] = c <= p*(1-tp) || c >= p*(1+sl)
		}
	}
	return out
}
