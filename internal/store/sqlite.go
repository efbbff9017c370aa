package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

var sqliteMigrations = []string{
	`CREATE TABLE IF NOT EXISTS bars (
		source       TEXT    NOT NULL,
		symbol       TEXT    NOT NULL,
		bar_interval TEXT    NOT NULL,
		ts           INTEGER NOT NULL,
		open         REAL,
		high         REAL,
		low          REAL,
		close        REAL    NOT NULL,
		volume       REAL,
		PRIMARY KEY (source, symbol, bar_interval, ts)
	)`,

	`CREATE TABLE IF NOT EXISTS fetch_ranges (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		source       TEXT    NOT NULL,
		symbol       TEXT    NOT NULL,
		bar_interval TEXT    NOT NULL,
		start_ts     INTEGER NOT NULL,
		end_ts       INTEGER NOT NULL,
		fetched_at   INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ranges_key ON fetch_ranges(source, symbol, bar_interval)`,
}

// NewSQLiteStore opens (or creates) the SQLite database and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s, err := newSQLStore(db, dialectSQLite, sqliteMigrations)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.logger.Info().Str("path", dbPath).Msg("sqlite bar cache opened")
	return s, nil
}
