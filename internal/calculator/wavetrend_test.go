package calculator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// zigzag produces a non-constant series with enough movement for the
// channel index to stay defined.
func zigzag(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + 10*math.Sin(float64(i)/3) + float64(i%4)
	}
	return out
}

func TestWaveTrend_LengthsMatch(t *testing.T) {
	for _, n := range []int{0, 1, 5, 29, 30, 120} {
		osc, err := WaveTrend(zigzag(n), DefaultParams())
		require.NoError(t, err)
		assert.Len(t, osc.WT1, n)
		assert.Len(t, osc.WT2, n)
	}
}

func TestWaveTrend_WarmupUndefined(t *testing.T) {
	p := DefaultParams()
	require.Equal(t, 29, p.Warmup())
	require.Equal(t, 32, p.MinBars())

	osc, err := WaveTrend(zigzag(80), p)
	require.NoError(t, err)

	// esa from 8, de from 16, wt1 from 27, wt2 from 29
	assert.Equal(t, 27, osc.WT1.FirstDefined())
	assert.Equal(t, p.Warmup(), osc.WT2.FirstDefined())
	for i := 0; i < p.Warmup(); i++ {
		assert.False(t, osc.WT2[i].OK, "wt2[%d] should be undefined", i)
	}
	for i := p.Warmup(); i < 80; i++ {
		assert.True(t, osc.WT2[i].OK, "wt2[%d] should be defined", i)
	}
}

func TestWaveTrend_SignalLineIsMeanOfWT1(t *testing.T) {
	p := DefaultParams()
	osc, err := WaveTrend(zigzag(60), p)
	require.NoError(t, err)
	for i := p.Warmup(); i < 60; i++ {
		mean := (osc.WT1[i].V + osc.WT1[i-1].V + osc.WT1[i-2].V) / 3
		assert.InDelta(t, mean, osc.WT2[i].V, 1e-9)
	}
}

func TestWaveTrend_FlatPricesStayUndefined(t *testing.T) {
	flat := make([]float64, 50)
	for i := range flat {
		flat[i] = 42
	}
	osc, err := WaveTrend(flat, DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, -1, osc.WT1.FirstDefined())
	assert.Equal(t, -1, osc.WT2.FirstDefined())
}

func TestWaveTrend_InvalidParams(t *testing.T) {
	tests := []Params{
		{ChannelLength: 0, AverageLength: 12, MALength: 3},
		{ChannelLength: 9, AverageLength: 1, MALength: 3},
		{ChannelLength: 9, AverageLength: 12, MALength: -1},
	}
	for _, p := range tests {
		_, err := WaveTrend(zigzag(40), p)
		assert.ErrorIs(t, err, ErrInvalidParams)
	}
}
