package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/navigator/internal/executor"
	"github.com/sells-group/navigator/internal/extract"
	"github.com/sells-group/navigator/internal/model"
	"github.com/sells-group/navigator/internal/resilience"
	"github.com/sells-group/navigator/internal/scorer"
	"github.com/sells-group/navigator/internal/store"
)

func sampleRecords() []model.ListingRecord {
	return []model.ListingRecord{
		{Title: "HP 15s Intel Core i5 12th Gen (16 GB/512 GB SSD/Windows 11 Home) 15.6 inch Laptop", Price: "₹52,990", Link: "https://example.test/hp"},
		{Title: "Lenovo IdeaPad Slim 3 AMD Ryzen 5 (8 GB/512 GB SSD/Windows 11) 15.6 inch", Price: "₹45,990", Link: "https://example.test/lenovo"},
		{Title: "ASUS ROG Strix G16 Core i7 RTX 4060 (16 GB/1 TB SSD)", Price: "₹1,24,990", Link: "https://example.test/asus"},
	}
}

// newTestEnv wires an offline environment whose flipkart extractor returns
// records. History is backed by SQLite in a temp dir.
func newTestEnv(t *testing.T, records []model.ListingRecord) *appEnv {
	t.Helper()
	dir := t.TempDir()

	reg := extract.NewRegistry()
	reg.Register("flipkart", extract.Func(func(context.Context, extract.Session, extract.Request) ([]model.ListingRecord, error) {
		return records, nil
	}), resilience.ExtractRetryConfig{Retries: 1})

	st, err := store.NewSQLite(filepath.Join(dir, "_history.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))

	sc := scorer.New(scorer.DefaultScoringConfig())
	exec := executor.New(executor.Options{Registry: reg, Scorer: sc, RunsDir: dir})

	env := &appEnv{
		Runner:  executor.NewRunner(exec, 10*time.Second),
		Scorer:  sc,
		Store:   st,
		RunsDir: dir,
		closers: []func() error{st.Close},
	}
	t.Cleanup(env.Close)
	return env
}
