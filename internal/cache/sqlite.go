package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sells-group/navigator/internal/model"
)

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS listing_cache (
	key_hash    TEXT PRIMARY KEY,
	fingerprint TEXT NOT NULL,
	payload     TEXT NOT NULL,
	cached_at   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_listing_cache_cached_at ON listing_cache(cached_at);
`

// SQLiteCache stores entries in a single SQLite table.
type SQLiteCache struct {
	db      *sql.DB
	ttl     time.Duration
	nowFunc func() time.Time
}

// NewSQLiteCache opens the database at dsn in WAL mode and creates the table.
func NewSQLiteCache(ctx context.Context, dsn string, ttl time.Duration) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "cache: sqlite open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "cache: sqlite exec %s", pragma)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteMigration); err != nil {
		db.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "cache: sqlite migrate")
	}
	if ttl < MinTTL {
		ttl = MinTTL
	}
	return &SQLiteCache{db: db, ttl: ttl, nowFunc: time.Now}, nil
}

// Close releases the database handle.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}

// Get returns the payload for fp if present and fresh.
func (c *SQLiteCache) Get(ctx context.Context, fp string) ([]model.Listing, bool) {
	var payload string
	var cachedAt int64
	err := c.db.QueryRowContext(ctx,
		`SELECT payload, cached_at FROM listing_cache WHERE key_hash = ?`,
		KeyHash(fp),
	).Scan(&payload, &cachedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false
	}
	if err != nil {
		zap.L().Warn("cache: sqlite read failed", zap.String("key", KeyHash(fp)), zap.Error(err))
		return nil, false
	}

	if c.nowFunc().Unix()-cachedAt > int64(c.ttl.Seconds()) {
		return nil, false
	}

	var out []model.Listing
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		zap.L().Warn("cache: sqlite corrupt payload", zap.String("key", KeyHash(fp)), zap.Error(err))
		return nil, false
	}
	return out, true
}

// Set upserts payload under fp. It reports whether the write succeeded.
func (c *SQLiteCache) Set(ctx context.Context, fp string, payload []model.Listing) bool {
	if payload == nil {
		payload = []model.Listing{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		zap.L().Warn("cache: sqlite marshal failed", zap.Error(err))
		return false
	}

	_, err = c.db.ExecContext(ctx,
		`INSERT INTO listing_cache (key_hash, fingerprint, payload, cached_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key_hash) DO UPDATE SET payload = excluded.payload, cached_at = excluded.cached_at`,
		KeyHash(fp), fp, string(data), c.nowFunc().Unix(),
	)
	if err != nil {
		zap.L().Warn("cache: sqlite write failed", zap.String("key", KeyHash(fp)), zap.Error(err))
		return false
	}
	return true
}

// Purge deletes expired rows and returns how many were removed.
func (c *SQLiteCache) Purge(ctx context.Context) (int, error) {
	cutoff := c.nowFunc().Unix() - int64(c.ttl.Seconds())
	res, err := c.db.ExecContext(ctx, `DELETE FROM listing_cache WHERE cached_at < ?`, cutoff)
	if err != nil {
		return 0, eris.Wrap(err, "cache: sqlite purge")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "cache: rows affected")
}
