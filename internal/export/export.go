// Package export writes ranked listings to CSV, JSON and XLSX files with a
// fixed, spreadsheet-friendly column order.
package export

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/navigator/internal/model"
	"github.com/sells-group/navigator/internal/money"
	"github.com/sells-group/navigator/internal/scorer"
)

// Supported formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatXLSX = "xlsx"
)

// Columns is the header order shared by every format.
var Columns = []string{
	"title", "price", "price_value", "why_choose", "score", "pros", "cons",
	"brand", "cpu", "ram_gb", "storage_ssd_gb", "storage_hdd_gb", "gpu", "os",
	"screen_inches", "source", "link", "image",
}

// Row is one exported listing.
type Row struct {
	Title        string   `json:"title"`
	Price        string   `json:"price"`
	PriceValue   *int     `json:"price_value"`
	WhyChoose    string   `json:"why_choose"`
	Score        float64  `json:"score"`
	Pros         []string `json:"pros"`
	Cons         []string `json:"cons"`
	Brand        string   `json:"brand"`
	CPU          string   `json:"cpu"`
	RAMGB        *int     `json:"ram_gb"`
	StorageSSDGB *int     `json:"storage_ssd_gb"`
	StorageHDDGB *int     `json:"storage_hdd_gb"`
	GPU          string   `json:"gpu"`
	OS           string   `json:"os"`
	ScreenInches *float64 `json:"screen_inches"`
	Source       string   `json:"source"`
	Link         string   `json:"link"`
	Image        string   `json:"image"`
}

// Rows normalizes listings for export. Listings that were never scored are
// scored with sc, without a budget. Rows come back best score first, ties
// broken by title in reverse order.
func Rows(in []model.Listing, sc *scorer.Scorer) []Row {
	out := make([]Row, 0, len(in))
	for _, l := range in {
		if l.PriceValue == nil {
			if v, ok := money.ParsePriceText(string(l.Price)); ok {
				l.PriceValue = &v
			}
		}
		if sc != nil && l.WhyChoose == "" && l.Score == 0 {
			l = sc.Enrich(l, nil)
		}
		out = append(out, newRow(l))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Title > out[j].Title
	})
	return out
}

func newRow(l model.Listing) Row {
	r := Row{
		Title:        strings.TrimSpace(l.Title),
		Price:        strings.TrimSpace(string(l.Price)),
		PriceValue:   l.PriceValue,
		WhyChoose:    l.WhyChoose,
		Score:        l.Score,
		Pros:         nonNil(l.Pros),
		Cons:         nonNil(l.Cons),
		Brand:        strings.TrimSpace(l.Brand),
		CPU:          strings.TrimSpace(l.CPU),
		RAMGB:        l.RAMGB,
		StorageSSDGB: l.StorageSSDGB,
		StorageHDDGB: l.StorageHDDGB,
		GPU:          strings.TrimSpace(l.GPU),
		OS:           strings.TrimSpace(l.OS),
		ScreenInches: l.ScreenInches,
		Source:       strings.TrimSpace(l.Source),
		Link:         strings.TrimSpace(l.Link),
		Image:        strings.TrimSpace(l.Image),
	}
	if r.Source == "" {
		r.Source = "web"
	}
	return r
}

// Record renders r as strings in Columns order. Absent values are empty and
// pros/cons are joined with the tag separator.
func (r Row) Record() []string {
	return []string{
		r.Title,
		r.Price,
		intString(r.PriceValue),
		r.WhyChoose,
		strconv.FormatFloat(r.Score, 'f', -1, 64),
		strings.Join(r.Pros, scorer.TagSeparator),
		strings.Join(r.Cons, scorer.TagSeparator),
		r.Brand,
		r.CPU,
		intString(r.RAMGB),
		intString(r.StorageSSDGB),
		intString(r.StorageHDDGB),
		r.GPU,
		r.OS,
		floatString(r.ScreenInches),
		r.Source,
		r.Link,
		r.Image,
	}
}

// Save writes rows for listings into dir, one file per format, and returns
// the written paths keyed by format. No formats means csv and json.
func Save(dir string, listings []model.Listing, sc *scorer.Scorer, formats ...string) (map[string]string, error) {
	if len(formats) == 0 {
		formats = []string{FormatCSV, FormatJSON}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "export: create dir %s", dir)
	}

	rows := Rows(listings, sc)
	paths := make(map[string]string, len(formats))
	for _, f := range formats {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" {
			continue
		}
		if _, done := paths[f]; done {
			continue
		}
		path := filepath.Join(dir, "results."+f)

		var err error
		switch f {
		case FormatCSV:
			err = writeFile(path, func(w *os.File) error { return WriteCSV(w, rows) })
		case FormatJSON:
			err = writeFile(path, func(w *os.File) error { return WriteJSON(w, rows) })
		case FormatXLSX:
			err = WriteXLSX(path, rows)
		default:
			return paths, eris.Errorf("export: unknown format %q", f)
		}
		if err != nil {
			return paths, err
		}
		paths[f] = path
	}
	return paths, nil
}

// ParseFormats splits a comma-joined format list.
func ParseFormats(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func writeFile(path string, fn func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	if err := fn(f); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	return eris.Wrapf(f.Close(), "export: close %s", path)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func intString(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func floatString(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
