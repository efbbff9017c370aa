package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Delorian/internal/model"
)

func day(d int) time.Time {
	return time.Date(2022, 1, d, 0, 0, 0, 0, time.UTC)
}

func openStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "bars.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLStore_RoundTrip(t *testing.T) {
	s := openStore(t)
	key := Key{Source: "yahoo", Symbol: "BTC-USD", Interval: model.IntervalDay}

	bars := []model.OHLCV{
		{Time: day(3), Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10},
		{Time: day(1), Open: 1, High: 2, Low: 0.5, Close: 1.1, Volume: 10},
		{Time: day(2), Open: 1, High: 2, Low: 0.5, Close: 1.2, Volume: 10},
	}
	require.NoError(t, s.SaveBars(key, day(1), day(4), bars))

	got, ok, err := s.LoadBars(key, day(1), day(4))
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 3)
	assert.Equal(t, day(1), got[0].Time)
	assert.Equal(t, 1.2, got[1].Close)
	assert.Equal(t, day(3), got[2].Time)
}

func TestSQLStore_CoveredSubrange(t *testing.T) {
	s := openStore(t)
	key := Key{Source: "yahoo", Symbol: "BTC-USD", Interval: model.IntervalDay}
	bars := []model.OHLCV{{Time: day(1), Close: 1}, {Time: day(2), Close: 2}, {Time: day(3), Close: 3}}
	require.NoError(t, s.SaveBars(key, day(1), day(10), bars))

	got, ok, err := s.LoadBars(key, day(2), day(3))
	require.NoError(t, err)
	assert.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, 2.0, got[0].Close)
}

func TestSQLStore_Miss(t *testing.T) {
	s := openStore(t)
	key := Key{Source: "yahoo", Symbol: "BTC-USD", Interval: model.IntervalDay}
	require.NoError(t, s.SaveBars(key, day(1), day(5), []model.OHLCV{{Time: day(1), Close: 1}}))

	tests := []struct {
		name       string
		key        Key
		start, end time.Time
	}{
		{"range extends past coverage", key, day(1), day(6)},
		{"other interval", Key{Source: "yahoo", Symbol: "BTC-USD", Interval: model.IntervalHour}, day(1), day(5)},
		{"other symbol", Key{Source: "yahoo", Symbol: "ETH-USD", Interval: model.IntervalDay}, day(1), day(5)},
		{"other source", Key{Source: "rest", Symbol: "BTC-USD", Interval: model.IntervalDay}, day(1), day(5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := s.LoadBars(tt.key, tt.start, tt.end)
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Empty(t, got)
		})
	}
}

func TestSQLStore_OverwritesBars(t *testing.T) {
	s := openStore(t)
	key := Key{Source: "yahoo", Symbol: "BTC-USD", Interval: model.IntervalDay}
	require.NoError(t, s.SaveBars(key, day(1), day(2), []model.OHLCV{{Time: day(1), Close: 1}}))
	require.NoError(t, s.SaveBars(key, day(1), day(2), []model.OHLCV{{Time: day(1), Close: 9}}))

	got, ok, err := s.LoadBars(key, day(1), day(2))
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, 9.0, got[0].Close)
}

func TestNoopStore(t *testing.T) {
	var s BarStore = NewNoopStore()
	key := Key{Source: "mock", Symbol: "X", Interval: model.IntervalDay}
	require.NoError(t, s.SaveBars(key, day(1), day(2), []model.OHLCV{{Time: day(1), Close: 1}}))
	got, ok, err := s.LoadBars(key, day(1), day(2))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
	assert.NoError(t, s.Close())
}

func TestRebind(t *testing.T) {
	pg := &SQLStore{dialect: dialectPostgres}
	assert.Equal(t, "a = $1 AND b IN ($2,$3)", pg.rebind("a = ? AND b IN (?,?)"))
	lite := &SQLStore{dialect: dialectSQLite}
	assert.Equal(t, "a = ?", lite.rebind("a = ?"))
}

func TestMigrationError(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "bad.db"))
	require.NoError(t, err)
	defer db.Close()

	for _, stmt := range []string{"BOGUS", "CREATE TABLE broken (" + strings.Repeat("x ", 40)} {
		_, err := newSQLStore(db, dialectSQLite, []string{stmt})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "migrate: exec")
	}
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	s, err := NewPostgresStore(dsn)
	require.NoError(t, err)
	defer s.Close()

	key := Key{Source: "test", Symbol: fmt.Sprintf("T%d", time.Now().UnixNano()), Interval: model.IntervalDay}
	require.NoError(t, s.SaveBars(key, day(1), day(3), []model.OHLCV{{Time: day(1), Close: 1}, {Time: day(2), Close: 2}}))
	got, ok, err := s.LoadBars(key, day(1), day(3))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, got, 2)
}
