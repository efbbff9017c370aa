package store

import (
	"time"

	"Delorian/internal/model"
)

// NoopStore is a no-op implementation used when SQLite is not configured.
type NoopStore struct{}

func NewNoopStore() *NoopStore { return &NoopStore{} }

func (n *NoopStore) LoadBars(_ Key, _, _ time.Time) ([]model.OHLCV, bool, error) {
	return nil, false, nil
}
func (n *NoopStore) SaveBars(_ Key, _, _ time.Time, _ []model.OHLCV) error { return nil }
func (n *NoopStore) Close() error                                          { return nil }
