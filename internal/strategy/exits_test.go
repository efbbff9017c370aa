package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"Delorian/internal/model"
)

func TestExits_TakeProfitAfterEntry(t *testing.T) {
	closes := []float64{100, 101, 99, 102, 98, 103}
	entries := model.Signal{false, false, true, false, false, false}
	rule := model.ExitRule{TakeProfitPct: 2.0, StopLossPct: 1.5}

	ref := ReferencePrices(closes, entries)
	assert.False(t, ref[0].OK)
	assert.False(t, ref[1].OK)
	for i := 2; i < len(closes); i++ {
		assert.Equal(t, d(99), ref[i])
	}

	exits := Exits(closes, entries, rule, model.Long)
	assert.Equal(t, model.Signal{false, false, false, true, false, false}, exits)
}

func TestExits_Thresholds(t *testing.T) {
	rule := model.ExitRule{TakeProfitPct: 2.0, StopLossPct: 1.5}
	entries := model.Signal{false, true, false}
	tests := []struct {
		name  string
		side  model.Side
		last  float64
		fires bool
	}{
		{"long take profit", model.Long, 102.1, true},
		{"long stop loss", model.Long, 98.4, true},
		{"long inside band", model.Long, 100.5, false},
		{"short take profit", model.Short, 97.9, true},
		{"short stop loss", model.Short, 101.6, true},
		{"short inside band", model.Short, 99.5, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exits := Exits([]float64{100, 100, tt.last}, entries, rule, tt.side)
			assert.Equal(t, tt.fires, exits[2])
			assert.False(t, exits[0])
			assert.False(t, exits[1])
		})
	}
}

func TestExits_NeverOnEntryBar(t *testing.T) {
	// huge moves on every bar, entry on every other bar
	closes := []float64{100, 150, 50, 150, 50, 150, 50}
	entries := model.Signal{true, false, true, false, true, false, true}
	rule := model.ExitRule{TakeProfitPct: 1, StopLossPct: 1}
	for _, side := range []model.Side{model.Long, model.Short} {
		exits := Exits(closes, entries, rule, side)
		for i := range exits {
			if exits[i] {
				assert.True(t, i > 0 && entries[i-1], "%s exit at %d without entry at %d", side, i, i-1)
				assert.False(t, entries[i], "%s exit on entry bar %d", side, i)
			}
		}
	}
}

func TestExits_OnlyTheBarAfterEntryIsTested(t *testing.T) {
	// the stop is hit two bars after entry, where the one-bar guard is off
	closes := []float64{100, 100, 99.9, 90}
	entries := model.Signal{false, true, false, false}
	exits := Exits(closes, entries, model.ExitRule{TakeProfitPct: 2, StopLossPct: 1.5}, model.Long)
	assert.Equal(t, 0, exits.Count())
}

func TestExits_ReentryMovesReferencePrice(t *testing.T) {
	closes := []float64{100, 100, 103, 103.5}
	entries := model.Signal{false, true, true, false}
	exits := Exits(closes, entries, model.ExitRule{TakeProfitPct: 2, StopLossPct: 1.5}, model.Long)
	// bar 2 would be a take profit against 100, but re-entry moved the reference to 103
	assert.Equal(t, 0, exits.Count())
	assert.Equal(t, d(103), ReferencePrices(closes, entries)[3])
}

func TestExits_NoEntries(t *testing.T) {
	closes := []float64{100, 120, 80}
	exits := Exits(closes, make(model.Signal, 3), model.ExitRule{TakeProfitPct: 1, StopLossPct: 1}, model.Long)
	assert.Equal(t, 0, exits.Count())
}
