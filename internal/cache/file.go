package cache

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/navigator/internal/model"
)

// entry is the on-disk format: {"ts": <epoch seconds>, "value": <payload>}.
type entry struct {
	TS    float64         `json:"ts"`
	Value json.RawMessage `json:"value"`
}

// FileCache keeps one JSON file per fingerprint under a directory. Writes go
// through a temp file and a rename, so readers never see a torn entry.
// Concurrent writers to the same key race and the last rename wins.
type FileCache struct {
	dir     string
	ttl     time.Duration
	nowFunc func() time.Time
}

// NewFileCache creates dir if needed and returns a cache with the given TTL.
func NewFileCache(dir string, ttl time.Duration) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "cache: create dir %s", dir)
	}
	if ttl < MinTTL {
		ttl = MinTTL
	}
	return &FileCache{dir: dir, ttl: ttl, nowFunc: time.Now}, nil
}

// Dir returns the cache directory.
func (c *FileCache) Dir() string { return c.dir }

// TTL returns the effective entry lifetime.
func (c *FileCache) TTL() time.Duration { return c.ttl }

func (c *FileCache) path(fp string) string {
	return filepath.Join(c.dir, KeyHash(fp)+".json")
}

// Get returns the payload for fp if present and fresh.
func (c *FileCache) Get(_ context.Context, fp string) ([]model.Listing, bool) {
	data, err := os.ReadFile(c.path(fp))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			zap.L().Warn("cache: read failed", zap.String("key", KeyHash(fp)), zap.Error(err))
		}
		return nil, false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		zap.L().Warn("cache: corrupt entry", zap.String("key", KeyHash(fp)), zap.Error(err))
		return nil, false
	}
	if c.expired(e.TS) {
		return nil, false
	}

	var payload []model.Listing
	if err := json.Unmarshal(e.Value, &payload); err != nil {
		zap.L().Warn("cache: corrupt payload", zap.String("key", KeyHash(fp)), zap.Error(err))
		return nil, false
	}
	return payload, true
}

// Set stores payload under fp. It reports whether the write succeeded.
func (c *FileCache) Set(_ context.Context, fp string, payload []model.Listing) bool {
	if err := c.write(fp, payload); err != nil {
		zap.L().Warn("cache: write failed", zap.String("key", KeyHash(fp)), zap.Error(err))
		return false
	}
	return true
}

func (c *FileCache) write(fp string, payload []model.Listing) error {
	if payload == nil {
		payload = []model.Listing{}
	}
	value, err := json.Marshal(payload)
	if err != nil {
		return eris.Wrap(err, "cache: marshal payload")
	}
	data, err := json.Marshal(entry{TS: epochSeconds(c.nowFunc()), Value: value})
	if err != nil {
		return eris.Wrap(err, "cache: marshal entry")
	}

	tmp, err := os.CreateTemp(c.dir, ".entry-*.tmp")
	if err != nil {
		return eris.Wrap(err, "cache: create temp file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck
		return eris.Wrap(err, "cache: write temp file")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "cache: close temp file")
	}
	return eris.Wrap(os.Rename(tmpName, c.path(fp)), "cache: rename entry")
}

// Purge removes expired and unreadable entries and returns how many were
// deleted.
func (c *FileCache) Purge(ctx context.Context) (int, error) {
	ents, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, eris.Wrapf(err, "cache: read dir %s", c.dir)
	}

	removed := 0
	for _, de := range ents {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".json") {
			continue
		}
		p := filepath.Join(c.dir, de.Name())
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		var e entry
		if json.Unmarshal(data, &e) == nil && !c.expired(e.TS) {
			continue
		}
		if err := os.Remove(p); err != nil {
			return removed, eris.Wrapf(err, "cache: remove %s", p)
		}
		removed++
	}
	return removed, nil
}

func (c *FileCache) expired(ts float64) bool {
	age := epochSeconds(c.nowFunc()) - ts
	return age > c.ttl.Seconds()
}

func epochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
