package simulator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Delorian/internal/model"
)

func noTime(int) time.Time { return time.Time{} }

func TestDrawdowns(t *testing.T) {
	dds := drawdowns([]float64{100, 120, 90, 130, 110}, noTime)
	require.Len(t, dds, 2)

	first := dds[0]
	assert.Equal(t, 1, first.PeakIndex)
	assert.Equal(t, 2, first.ValleyIndex)
	assert.Equal(t, 3, first.EndIndex)
	assert.Equal(t, model.DrawdownRecovered, first.Status)
	assert.InDelta(t, 0.25, first.Depth, 1e-9)

	second := dds[1]
	assert.Equal(t, 3, second.PeakIndex)
	assert.Equal(t, 4, second.ValleyIndex)
	assert.Equal(t, model.DrawdownActive, second.Status)
	assert.InDelta(t, 20.0/130.0, second.Depth, 1e-9)
}

func TestDrawdowns_MonotoneCurve(t *testing.T) {
	assert.Empty(t, drawdowns([]float64{1, 2, 3, 3, 4}, noTime))
	assert.Empty(t, drawdowns(nil, noTime))
}

func TestRiskRatios(t *testing.T) {
	sharpe, sortino := riskRatios([]float64{1000, 1000, 1000}, 1000, 24*time.Hour)
	assert.Zero(t, sharpe)
	assert.Zero(t, sortino)

	sharpe, sortino = riskRatios([]float64{1000, 1010, 1005, 1020, 1030}, 1000, 24*time.Hour)
	assert.Greater(t, sharpe, 0.0)
	assert.Greater(t, sortino, 0.0)
}

func TestStats_MaxDrawdown(t *testing.T) {
	in := input([]float64{10, 10, 8, 12, 11})
	in.LongEntries = sig(5, 1)
	in.LongExits = sig(5, 3)

	pf, err := NewEngine().Simulate(in)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, pf.Stats.MaxDrawdown, 1e-9)
	assert.Equal(t, 2*24*time.Hour, pf.Stats.MaxDrawdownTime)
	assert.InDelta(t, 0.2, pf.TotalReturn(), 1e-9)
}
