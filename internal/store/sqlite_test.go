package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/navigator/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	return s
}

func TestSQLiteStore_SaveAndList(t *testing.T) {
	t.Parallel()

	s := newTestSQLite(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	tick := 0
	s.nowFunc = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	first, err := s.SaveRun(ctx, model.RunRecord{
		Query:      "laptops under 50000",
		Site:       "flipkart",
		MaxResults: 5,
		MaxPrice:   model.IntPtr(50000),
		Count:      3,
		OK:         true,
		RunDir:     "runs/20260301-100100",
		Steps: []model.StepReport{
			{Index: 0, Action: model.ActionExtractProducts, Site: "flipkart", Status: model.StepStatusOK, Count: 3, Attempts: 1},
		},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, base.Add(time.Minute), first.CreatedAt)

	second, err := s.SaveRun(ctx, model.RunRecord{Query: "gaming laptops", Site: "amazon", Error: "timed out after 90s"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	runs, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, second.ID, runs[0].ID)
	assert.Equal(t, "timed out after 90s", runs[0].Error)
	assert.False(t, runs[0].OK)
	assert.Nil(t, runs[0].MaxPrice)
	assert.NotNil(t, runs[0].Steps)
	assert.Empty(t, runs[0].Steps)

	got := runs[1]
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, first.CreatedAt, got.CreatedAt)
	assert.True(t, got.OK)
	assert.Equal(t, 3, got.Count)
	require.NotNil(t, got.MaxPrice)
	assert.Equal(t, 50000, *got.MaxPrice)
	assert.Nil(t, got.MinPrice)
	require.Len(t, got.Steps, 1)
	assert.Equal(t, model.StepStatusOK, got.Steps[0].Status)
}

func TestSQLiteStore_ListLimit(t *testing.T) {
	t.Parallel()

	s := newTestSQLite(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := s.SaveRun(ctx, model.RunRecord{Query: "laptops"})
		require.NoError(t, err)
	}

	runs, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	runs, err = s.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 5)
}

func TestSQLiteStore_Clear(t *testing.T) {
	t.Parallel()

	s := newTestSQLite(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.SaveRun(ctx, model.RunRecord{Query: "laptops"})
		require.NoError(t, err)
	}

	n, err := s.ClearRuns(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	runs, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestSQLiteStore_MigrateIdempotent(t *testing.T) {
	t.Parallel()

	s := newTestSQLite(t)
	assert.NoError(t, s.Migrate(context.Background()))
}
