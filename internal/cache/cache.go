// Package cache stores processed extraction results keyed by a canonical
// fingerprint of the step that produced them. Caches are best-effort: read
// failures look like misses and write failures are logged and reported as
// false, never returned as errors.
package cache

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"

	"github.com/sells-group/navigator/internal/model"
)

const (
	// DefaultTTL is how long an entry stays fresh when no TTL is configured.
	DefaultTTL = 12 * time.Hour
	// MinTTL is the shortest TTL a cache accepts.
	MinTTL = time.Minute
)

// Cache maps a fingerprint to a processed listing payload.
type Cache interface {
	Get(ctx context.Context, fp string) ([]model.Listing, bool)
	Set(ctx context.Context, fp string, payload []model.Listing) bool
}

// Purger deletes expired entries.
type Purger interface {
	Purge(ctx context.Context) (int, error)
}

// TTLFromSeconds converts a configured TTL, applying the default and floor.
func TTLFromSeconds(sec int) time.Duration {
	if sec <= 0 {
		return DefaultTTL
	}
	ttl := time.Duration(sec) * time.Second
	if ttl < MinTTL {
		return MinTTL
	}
	return ttl
}

// Fingerprint returns the canonical JSON for a step resolved to site. Keys
// are sorted, keyword lists are lowercased, trimmed, sorted and never null,
// so steps that differ only in casing or keyword order share a fingerprint.
func Fingerprint(step model.PlanStep, site string) string {
	n := step.Normalize()

	include := sortedKeywords(n.Include)
	exclude := sortedKeywords(n.Exclude)

	var maxPrice, minPrice any
	if n.MaxPrice != nil {
		maxPrice = *n.MaxPrice
	}
	if n.MinPrice != nil {
		minPrice = *n.MinPrice
	}

	fields := map[string]any{
		"site":        site,
		"query":       n.Query,
		"max_results": n.MaxResults,
		"max_price":   maxPrice,
		"min_price":   minPrice,
		"include":     include,
		"exclude":     exclude,
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Maps encode with sorted keys; encoding these values cannot fail.
	_ = enc.Encode(fields)
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}

// KeyHash is the hex sha1 of a fingerprint, used for file names and logs.
func KeyHash(fp string) string {
	sum := sha1.Sum([]byte(fp))
	return hex.EncodeToString(sum[:])
}

func sortedKeywords(in model.Keywords) []string {
	out := []string(model.NormalizeKeywords(in))
	sort.Strings(out)
	return out
}

// Nop never stores anything.
type Nop struct{}

// Get always misses.
func (Nop) Get(context.Context, string) ([]model.Listing, bool) { return nil, false }

// Set always reports failure.
func (Nop) Set(context.Context, string, []model.Listing) bool { return false }
