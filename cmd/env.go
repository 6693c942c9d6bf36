package main

import (
	"context"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/navigator/internal/cache"
	"github.com/sells-group/navigator/internal/executor"
	"github.com/sells-group/navigator/internal/extract"
	"github.com/sells-group/navigator/internal/scorer"
	"github.com/sells-group/navigator/internal/store"
)

// appEnv holds everything the run, export and serve paths need.
type appEnv struct {
	Runner  *executor.Runner
	Scorer  *scorer.Scorer
	Store   store.Store // nil when history is disabled
	RunsDir string

	closers []func() error
}

// Close releases the cache and store.
func (e *appEnv) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			zap.L().Warn("close resource", zap.Error(err))
		}
	}
}

// initEnv validates cfg for mode and wires the executor. History failures
// are logged and leave Store nil; the run path never depends on it.
func initEnv(ctx context.Context, mode string, withHistory bool) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	scoring := scorer.WithDefaults(cfg.Scoring)
	if err := scorer.ValidateConfig(scoring); err != nil {
		return nil, eris.Wrap(err, "scoring config")
	}
	sc := scorer.New(scoring)

	reg, err := extract.FromConfig(cfg.Extract)
	if err != nil {
		return nil, eris.Wrap(err, "extractors")
	}

	if err := os.MkdirAll(cfg.RunsDir, 0o755); err != nil {
		zap.L().Warn("runs dir not writable, runs will fall back to temp", zap.String("dir", cfg.RunsDir), zap.Error(err))
	}

	env := &appEnv{Scorer: sc, RunsDir: cfg.RunsDir}

	c, closeCache, err := initCache(ctx)
	if err != nil {
		zap.L().Warn("cache unavailable, running uncached", zap.Error(err))
		c = cache.Nop{}
	} else if closeCache != nil {
		env.closers = append(env.closers, closeCache)
	}

	exec := executor.New(executor.Options{
		Registry: reg,
		Cache:    c,
		CacheTTL: cache.TTLFromSeconds(cfg.Cache.TTLSec),
		Scorer:   sc,
		RunsDir:  cfg.RunsDir,
	})
	env.Runner = executor.NewRunner(exec, time.Duration(cfg.Run.TimeoutSec)*time.Second)

	if withHistory {
		st, err := initStore(ctx)
		if err != nil {
			zap.L().Warn("run history unavailable", zap.Error(err))
		} else {
			env.Store = st
			env.closers = append(env.closers, st.Close)
		}
	}

	zap.L().Debug("environment ready",
		zap.Strings("sites", reg.Sites()),
		zap.String("cache", cfg.Cache.Backend),
		zap.Bool("history", env.Store != nil),
	)
	return env, nil
}

// initCache opens the configured cache backend. The returned closer may be
// nil.
func initCache(ctx context.Context) (cache.Cache, func() error, error) {
	ttl := cache.TTLFromSeconds(cfg.Cache.TTLSec)
	switch cfg.Cache.Backend {
	case "sqlite":
		c, err := cache.NewSQLiteCache(ctx, cfg.CacheDSN(), ttl)
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	default:
		c, err := cache.NewFileCache(cfg.CacheDir(), ttl)
		if err != nil {
			return nil, nil, err
		}
		return c, nil, nil
	}
}

// initStore opens and migrates the run history store.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store, cfg.HistoryDSN())
	if err != nil {
		return nil, eris.Wrap(err, "open run history")
	}
	return st, nil
}
