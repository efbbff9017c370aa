package strategy

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Delorian/internal/calculator"
	"Delorian/internal/model"
)

var u = model.Undefined

func d(v float64) model.Value { return model.Defined(v) }

func TestEntries_LongCrossoverWithBullishDivergence(t *testing.T) {
	closes := []float64{10, 11, 12, 11, 10, 9}
	osc := model.Oscillator{
		WT1: model.Series{u, d(-5), d(-3), d(-2), d(-1), d(-2)},
		WT2: model.Series{u, d(-4), d(-4), d(-3), d(-2), d(-1)},
	}
	long, short := Entries(closes, osc)
	assert.Equal(t, model.Signal{false, false, false, true, false, false}, long)
	assert.Equal(t, 0, short.Count(), "sell crossover at 5 has wt1 < 0, no bearish divergence")
}

func TestEntries_ShortCrossoverWithBearishDivergence(t *testing.T) {
	closes := []float64{10, 11, 10, 11, 12}
	osc := model.Oscillator{
		WT1: model.Series{u, d(5), d(3), d(2), d(1)},
		WT2: model.Series{u, d(4), d(4), d(3), d(2)},
	}
	long, short := Entries(closes, osc)
	assert.Equal(t, model.Signal{false, false, false, true, false}, short)
	assert.Equal(t, 0, long.Count())
}

func TestEntries_CrossoverWithoutDivergenceIsIgnored(t *testing.T) {
	// upward crossover at 2 but close falls
	closes := []float64{10, 11, 10, 10}
	osc := model.Oscillator{
		WT1: model.Series{u, d(-5), d(-3), d(-3)},
		WT2: model.Series{u, d(-4), d(-4), d(-4)},
	}
	long, _ := Entries(closes, osc)
	assert.Equal(t, 0, long.Count())
}

func TestEntries_UndefinedComparisonsAreFalse(t *testing.T) {
	closes := []float64{10, 11, 12, 13}
	osc := model.Oscillator{
		// previous wt2 undefined at the would-be crossover
		WT1: model.Series{u, d(-5), d(-3), d(-3)},
		WT2: model.Series{u, u, d(-4), d(-4)},
	}
	long, short := Entries(closes, osc)
	assert.Equal(t, 0, long.Count())
	assert.Equal(t, 0, short.Count())
}

func TestEntries_PropertiesOnRandomWalk(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	closes := make([]float64, 400)
	price := 100.0
	for i := range closes {
		price *= 1 + (rng.Float64()-0.5)*0.04
		closes[i] = price
	}
	osc, err := calculator.WaveTrend(closes, calculator.DefaultParams())
	require.NoError(t, err)

	long, short := Entries(closes, osc)
	require.Len(t, long, len(closes))
	require.Len(t, short, len(closes))
	assert.False(t, long[0])
	assert.False(t, short[0])

	up, down := Crossovers(osc)
	for i := range up {
		assert.False(t, up[i] && down[i], "crossovers overlap at %d", i)
	}
	for i := range long {
		if long[i] {
			assert.True(t, up[i-1], "long entry at %d without crossover at %d", i, i-1)
		}
		if short[i] {
			assert.True(t, down[i-1], "short entry at %d without crossover at %d", i, i-1)
		}
	}
	// nothing can fire before the oscillator has a defined crossover
	for i := 0; i <= calculator.DefaultParams().Warmup()+1; i++ {
		assert.False(t, long[i] || short[i], "entry inside warm-up at %d", i)
	}
}
