// Package store persists run history. Each executed query produces one
// RunRecord; listings themselves live in the run directory and the cache.
package store

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/navigator/internal/config"
	"github.com/sells-group/navigator/internal/model"
)

const (
	// DefaultListLimit is used when a caller asks for a non-positive limit.
	DefaultListLimit = 20
	// MaxListLimit caps how many records a single listing returns.
	MaxListLimit = 200
)

// Store defines the persistence interface for run history.
type Store interface {
	// SaveRun inserts rec, assigning an ID and timestamp when missing.
	SaveRun(ctx context.Context, rec model.RunRecord) (model.RunRecord, error)
	// ListRuns returns up to limit records, newest first.
	ListRuns(ctx context.Context, limit int) ([]model.RunRecord, error)
	// ClearRuns deletes all history and returns how many records were removed.
	ClearRuns(ctx context.Context) (int, error)

	Migrate(ctx context.Context) error
	Close() error
}

// ClampLimit maps limit into [1, MaxListLimit], treating non-positive
// values as DefaultListLimit.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}

// Open returns a migrated store for the configured driver. dsn is a file
// path for sqlite and a connection string for postgres.
func Open(ctx context.Context, cfg config.StoreConfig, dsn string) (Store, error) {
	var (
		s   Store
		err error
	)
	switch strings.ToLower(cfg.Driver) {
	case "", "sqlite":
		s, err = NewSQLite(dsn)
	case "postgres", "postgresql":
		s, err = NewPostgres(ctx, dsn, &cfg.Pool)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close() //nolint:errcheck
		return nil, err
	}
	return s, nil
}
