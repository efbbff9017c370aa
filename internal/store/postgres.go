package store

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

var postgresMigrations = []string{
	`CREATE TABLE IF NOT EXISTS bars (
		source       TEXT             NOT NULL,
		symbol       TEXT             NOT NULL,
		bar_interval TEXT             NOT NULL,
		ts           BIGINT           NOT NULL,
		open         DOUBLE PRECISION,
		high         DOUBLE PRECISION,
		low          DOUBLE PRECISION,
		close        DOUBLE PRECISION NOT NULL,
		volume       DOUBLE PRECISION,
		PRIMARY KEY (source, symbol, bar_interval, ts)
	)`,

	`CREATE TABLE IF NOT EXISTS fetch_ranges (
		id           BIGSERIAL PRIMARY KEY,
		source       TEXT   NOT NULL,
		symbol       TEXT   NOT NULL,
		bar_interval TEXT   NOT NULL,
		start_ts     BIGINT NOT NULL,
		end_ts       BIGINT NOT NULL,
		fetched_at   BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ranges_key ON fetch_ranges(source, symbol, bar_interval)`,
}

// NewPostgresStore connects to PostgreSQL and runs migrations.
func NewPostgresStore(dsn string) (*SQLStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s, err := newSQLStore(db, dialectPostgres, postgresMigrations)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.logger.Info().Msg("postgres bar cache opened")
	return s, nil
}
