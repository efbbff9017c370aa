package store

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"Delorian/internal/model"
)

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// SQLStore caches price bars in a SQL database (SQLite or PostgreSQL).
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	mu      sync.Mutex
	logger  zerolog.Logger
}

func newSQLStore(db *sql.DB, d dialect, migrations []string) (*SQLStore, error) {
	s := &SQLStore{db: db, dialect: d, logger: log.With().Str("component", "store").Logger()}
	for _, stmt := range migrations {
		if _, err := s.db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("migrate: exec %q: %w", snippet(stmt, 40), err)
		}
	}
	return s, nil
}

func snippet(s string, n int) string {
	return s[:min(n, len(s))]
}

// rebind rewrites ? placeholders as $1, $2, ... for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) LoadBars(key Key, start, end time.Time) ([]model.OHLCV, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var covered int
	err := s.db.QueryRow(s.rebind(`SELECT COUNT(*) FROM fetch_ranges
		WHERE source = ? AND symbol = ? AND bar_interval = ? AND start_ts <= ? AND end_ts >= ?`),
		key.Source, key.Symbol, string(key.Interval), start.Unix(), end.Unix(),
	).Scan(&covered)
	if err != nil {
		return nil, false, fmt.Errorf("query coverage: %w", err)
	}
	if covered == 0 {
		return nil, false, nil
	}

	rows, err := s.db.Query(s.rebind(`SELECT ts, open, high, low, close, volume FROM bars
		WHERE source = ? AND symbol = ? AND bar_interval = ? AND ts >= ? AND ts < ?
		ORDER BY ts`),
		key.Source, key.Symbol, string(key.Interval), start.Unix(), end.Unix(),
	)
	if err != nil {
		return nil, false, fmt.Errorf("query bars: %w", err)
	}
	defer rows.Close()

	var bars []model.OHLCV
	for rows.Next() {
		var ts int64
		var b model.OHLCV
		if err := rows.Scan(&ts, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, false, fmt.Errorf("scan bar: %w", err)
		}
		b.Time = time.Unix(ts, 0).UTC()
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate bars: %w", err)
	}
	return bars, true, nil
}

func (s *SQLStore) SaveBars(key Key, start, end time.Time, bars []model.OHLCV) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(s.rebind(`INSERT INTO bars
		(source, symbol, bar_interval, ts, open, high, low, close, volume)
		VALUES (?,?,?,?,?,?,?,?,?)
		ON CONFLICT (source, symbol, bar_interval, ts) DO UPDATE SET
			open = excluded.open, high = excluded.high, low = excluded.low,
			close = excluded.close, volume = excluded.volume`))
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.Exec(key.Source, key.Symbol, string(key.Interval), b.Time.Unix(),
			b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			return fmt.Errorf("insert bar: %w", err)
		}
	}

	if _, err := tx.Exec(s.rebind(`INSERT INTO fetch_ranges
		(source, symbol, bar_interval, start_ts, end_ts, fetched_at)
		VALUES (?,?,?,?,?,?)`),
		key.Source, key.Symbol, string(key.Interval), start.Unix(), end.Unix(), time.Now().Unix(),
	); err != nil {
		return fmt.Errorf("insert range: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.Debug().Str("symbol", key.Symbol).Str("interval", string(key.Interval)).
		Int("bars", len(bars)).Msg("bars cached")
	return nil
}

func (s *SQLStore) Close() error {
	s.logger.Info().Msg("closing bar cache")
	return s.db.Close()
}
