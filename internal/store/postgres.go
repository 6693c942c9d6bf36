package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/navigator/internal/config"
	"github.com/sells-group/navigator/internal/model"
)

// Pool is the subset of *pgxpool.Pool the store uses. pgxmock pools
// satisfy it too.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	nowFunc func() time.Time
}

const (
	pgInsertRun = `INSERT INTO runs (id, created_at, query, site, max_results, min_price, max_price, count, ok, error, run_dir, last_url, steps) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	pgListRuns  = `SELECT id, created_at, query, site, max_results, min_price, max_price, count, ok, error, run_dir, last_url, steps FROM runs ORDER BY created_at DESC LIMIT $1`
	pgClearRuns = `DELETE FROM runs`
)

// preparedStatements are prepared on each new connection.
var preparedStatements = map[string]string{
	"insert_run": pgInsertRun,
	"list_runs":  pgListRuns,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *config.PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, nowFunc: time.Now}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	query       TEXT NOT NULL,
	site        TEXT NOT NULL DEFAULT '',
	max_results INTEGER NOT NULL DEFAULT 0,
	min_price   BIGINT,
	max_price   BIGINT,
	count       INTEGER NOT NULL DEFAULT 0,
	ok          BOOLEAN NOT NULL DEFAULT false,
	error       TEXT NOT NULL DEFAULT '',
	run_dir     TEXT NOT NULL DEFAULT '',
	last_url    TEXT NOT NULL DEFAULT '',
	steps       JSONB NOT NULL DEFAULT '[]'::jsonb
);

CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);
`

// Migrate creates the runs table.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// SaveRun inserts a history record.
func (s *PostgresStore) SaveRun(ctx context.Context, rec model.RunRecord) (model.RunRecord, error) {
	now := s.nowFunc
	if now == nil {
		now = time.Now
	}
	rec = prepareRecord(rec, now)
	steps, err := json.Marshal(rec.Steps)
	if err != nil {
		return rec, eris.Wrap(err, "postgres: marshal steps")
	}

	_, err = s.pool.Exec(ctx, pgInsertRun,
		rec.ID, rec.CreatedAt, rec.Query, rec.Site, rec.MaxResults,
		rec.MinPrice, rec.MaxPrice, rec.Count, rec.OK,
		rec.Error, rec.RunDir, rec.LastURL, steps,
	)
	if err != nil {
		return rec, eris.Wrap(err, "postgres: save run")
	}
	return rec, nil
}

// ListRuns returns up to limit records, newest first.
func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]model.RunRecord, error) {
	rows, err := s.pool.Query(ctx, pgListRuns, ClampLimit(limit))
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	out := []model.RunRecord{}
	for rows.Next() {
		var (
			rec   model.RunRecord
			steps []byte
		)
		if err := rows.Scan(&rec.ID, &rec.CreatedAt, &rec.Query, &rec.Site, &rec.MaxResults,
			&rec.MinPrice, &rec.MaxPrice, &rec.Count, &rec.OK, &rec.Error, &rec.RunDir, &rec.LastURL, &steps); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		if len(steps) > 0 {
			if err := json.Unmarshal(steps, &rec.Steps); err != nil {
				return nil, eris.Wrapf(err, "postgres: decode steps for run %s", rec.ID)
			}
		}
		if rec.Steps == nil {
			rec.Steps = []model.StepReport{}
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate runs")
}

// ClearRuns deletes every record.
func (s *PostgresStore) ClearRuns(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, pgClearRuns)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: clear runs")
	}
	return int(tag.RowsAffected()), nil
}
