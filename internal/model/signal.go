package model

import "fmt"

// Signal is a boolean sequence aligned to a PriceSeries.
type Signal []bool

// Count returns the number of true points.
func (s Signal) Count() int {
	n := 0
	for _, v := range s {
		if v {
			n++
		}
	}
	return n
}

// Shift moves every point forward by n bars, filling the head with false.
func (s Signal) Shift(n int) Signal {
	out := make(Signal, len(s))
	for i := n; i < len(s); i++ {
		out[i] = s[i-n]
	}
	return out
}

// Side is the direction of a position.
type Side string

const (
	Long  Side = "Long"
	Short Side = "Short"
)

// ExitRule is a take-profit/stop-loss pair in percent. Both are positive.
type ExitRule struct {
	TakeProfitPct float64
	StopLossPct   float64
}

// Validate checks both percentages are strictly positive.
func (r ExitRule) Validate() error {
	if r.TakeProfitPct <= 0 {
		return fmt.Errorf("take profit must be positive, got %v", r.TakeProfitPct)
	}
	if r.StopLossPct <= 0 {
		return fmt.Errorf("stop loss must be positive, got %v", r.StopLossPct)
	}
	return nil
}

func (r ExitRule) String() string {
	return fmt.Sprintf("TP %.2f%% / SL %.2f%%", r.TakeProfitPct, r.StopLossPct)
}
