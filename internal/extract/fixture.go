package extract

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/sells-group/navigator/internal/model"
)

// FixtureExtractor serves listings saved as <dir>/<site>.json, a JSON list
// of listing records. It lets plans run offline.
type FixtureExtractor struct {
	dir  string
	site string
}

// NewFixtureExtractor returns an extractor reading dir/site.json.
func NewFixtureExtractor(dir, site string) *FixtureExtractor {
	return &FixtureExtractor{dir: dir, site: normalizeSite(site)}
}

// Path returns the fixture file location.
func (f *FixtureExtractor) Path() string {
	return filepath.Join(f.dir, f.site+".json")
}

// Extract reads the fixture on every call, so edits show up on retry. The
// whole file is returned; filtering and truncation happen downstream.
func (f *FixtureExtractor) Extract(ctx context.Context, _ Session, _ Request) ([]model.ListingRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.Path())
	if err != nil {
		return nil, eris.Wrapf(err, "extract: read fixture %s", f.Path())
	}
	var recs []model.ListingRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, eris.Wrapf(err, "extract: decode fixture %s", f.Path())
	}
	for i := range recs {
		if recs[i].Source == "" {
			recs[i].Source = f.site
		}
	}
	return recs, nil
}
