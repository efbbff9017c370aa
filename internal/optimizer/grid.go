package optimizer

import (
	"fmt"

	"github.com/samber/lo"

	"Delorian/internal/model"
)

// Grid is the set of take-profit and stop-loss percentages to search.
type Grid struct {
	TakeProfit []float64
	StopLoss   []float64
}

// DefaultGrid returns TP {1.5, 2, 2.5, 3} x SL {1, 1.5, 2, 2.5}.
func DefaultGrid() Grid {
	return Grid{
		TakeProfit: []float64{1.5, 2.0, 2.5, 3.0},
		StopLoss:   []float64{1.0, 1.5, 2.0, 2.5},
	}
}

// Validate rejects empty axes and non-positive percentages.
func (g Grid) Validate() error {
	if len(g.TakeProfit) == 0 || len(g.StopLoss) == 0 {
		return fmt.Errorf("grid needs at least one take profit and one stop loss")
	}
	for _, r := range g.Rules() {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("grid: %w", err)
		}
	}
	return nil
}

// Rules enumerates the grid with take profit in the outer loop and stop loss
// in the inner loop, each in the order given.
func (g Grid) Rules() []model.ExitRule {
	return lo.CrossJoinBy2(g.TakeProfit, g.StopLoss, func(tp, sl float64) model.ExitRule {
		return model.ExitRule{TakeProfitPct: tp, StopLossPct: sl}
	})
}

// Size is the number of cells.
func (g Grid) Size() int {
	return len(g.TakeProfit) * len(g.StopLoss)
}
