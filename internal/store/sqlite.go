package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/navigator/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db      *sql.DB
	nowFunc func() time.Time
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, nowFunc: time.Now}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	created_at  INTEGER NOT NULL,
	query       TEXT NOT NULL,
	site        TEXT NOT NULL DEFAULT '',
	max_results INTEGER NOT NULL DEFAULT 0,
	min_price   INTEGER,
	max_price   INTEGER,
	count       INTEGER NOT NULL DEFAULT 0,
	ok          INTEGER NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT '',
	run_dir     TEXT NOT NULL DEFAULT '',
	last_url    TEXT NOT NULL DEFAULT '',
	steps       TEXT NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

// Migrate creates the runs table.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun inserts a history record.
func (s *SQLiteStore) SaveRun(ctx context.Context, rec model.RunRecord) (model.RunRecord, error) {
	rec = prepareRecord(rec, s.nowFunc)
	steps, err := json.Marshal(rec.Steps)
	if err != nil {
		return rec, eris.Wrap(err, "sqlite: marshal steps")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, query, site, max_results, min_price, max_price, count, ok, error, run_dir, last_url, steps)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.CreatedAt.UnixNano(), rec.Query, rec.Site, rec.MaxResults,
		nullInt(rec.MinPrice), nullInt(rec.MaxPrice), rec.Count, rec.OK,
		rec.Error, rec.RunDir, rec.LastURL, string(steps),
	)
	if err != nil {
		return rec, eris.Wrap(err, "sqlite: save run")
	}
	return rec, nil
}

// ListRuns returns up to limit records, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.RunRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, query, site, max_results, min_price, max_price, count, ok, error, run_dir, last_url, steps
		 FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		ClampLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	out := []model.RunRecord{}
	for rows.Next() {
		var (
			rec       model.RunRecord
			createdAt int64
			minPrice  sql.NullInt64
			maxPrice  sql.NullInt64
			steps     string
		)
		if err := rows.Scan(&rec.ID, &createdAt, &rec.Query, &rec.Site, &rec.MaxResults,
			&minPrice, &maxPrice, &rec.Count, &rec.OK, &rec.Error, &rec.RunDir, &rec.LastURL, &steps); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		rec.CreatedAt = time.Unix(0, createdAt).UTC()
		rec.MinPrice = intFromNull(minPrice)
		rec.MaxPrice = intFromNull(maxPrice)
		if err := json.Unmarshal([]byte(steps), &rec.Steps); err != nil {
			return nil, eris.Wrapf(err, "sqlite: decode steps for run %s", rec.ID)
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}

// ClearRuns deletes every record.
func (s *SQLiteStore) ClearRuns(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: clear runs")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

// prepareRecord fills the ID, timestamp and steps of a record about to be
// written.
func prepareRecord(rec model.RunRecord, now func() time.Time) model.RunRecord {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now()
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	if rec.Steps == nil {
		rec.Steps = []model.StepReport{}
	}
	return rec
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intFromNull(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	return model.IntPtr(int(v.Int64))
}
