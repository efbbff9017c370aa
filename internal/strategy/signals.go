package strategy

import "Delorian/internal/model"

// Entries derives long and short entry signals from Wave Trend crossovers
// filtered by one-bar price divergence.
//
// A raw long condition at bar t is an upward wt1/wt2 crossover with wt1 below
// zero and a rising close; the short condition mirrors it. Entries are the raw
// conditions delayed by one bar, so a signal seen at the close of t-1 trades
// at t. Comparisons touching an undefined point are false.
func Entries(closes []float64, osc model.Oscillator) (long, short model.Signal) {
	n := len(closes)
	rawLong := make(model.Signal, n)
	rawShort := make(model.Signal, n)
	up, down := Crossovers(osc)

	for t := 1; t < n; t++ {
		w1 := osc.WT1[t]
		bullishDiv := less(w1, zero) && closes[t] > closes[t-1]
		bearishDiv := greater(w1, zero) && closes[t] < closes[t-1]

		rawLong[t] = up[t] && bullishDiv
		rawShort[t] = down[t] && bearishDiv
	}
	return rawLong.Shift(1), rawShort.Shift(1)
}

// Crossovers returns the bare upward and downward crossover signals. They are
// mutually exclusive at every bar.
func Crossovers(osc model.Oscillator) (up, down model.Signal) {
	n := len(osc.WT1)
	up = make(model.Signal, n)
	down = make(model.Signal, n)
	for t := 1; t < n; t++ {
		up[t] = greater(osc.WT1[t], osc.WT2[t]) && lessOrEqual(osc.WT1[t-1], osc.WT2[t-1])
		down[t] = less(osc.WT1[t], osc.WT2[t]) && greaterOrEqual(osc.WT1[t-1], osc.WT2[t-1])
	}
	return up, down
}

var zero = model.Defined(0)

func greater(a, b model.Value) bool        { return a.OK && b.OK && a.V > b.V }
func less(a, b model.Value) bool           { return a.OK && b.OK && a.V < b.V }
func greaterOrEqual(a, b model.Value) bool { return a.OK && b.OK && a.V >= b.V }
func lessOrEqual(a, b model.Value) bool    { return a.OK && b.OK && a.V <= b.V }
