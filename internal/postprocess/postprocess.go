// Package postprocess turns raw extractor output into a clean, ordered,
// de-duplicated listing set. Every stage returns a new slice and leaves its
// input untouched.
package postprocess

import (
	"sort"
	"strconv"
	"strings"

	"github.com/sells-group/navigator/internal/model"
	"github.com/sells-group/navigator/internal/money"
	"github.com/sells-group/navigator/internal/specs"
)

// Options carries the step parameters that drive filtering and truncation.
type Options struct {
	Source     string
	MinPrice   *int
	MaxPrice   *int
	Include    []string
	Exclude    []string
	MaxResults int
}

// OptionsFromStep builds Options for a normalized plan step resolved to site.
func OptionsFromStep(step model.PlanStep, site string) Options {
	return Options{
		Source:     site,
		MinPrice:   step.MinPrice,
		MaxPrice:   step.MaxPrice,
		Include:    step.Include,
		Exclude:    step.Exclude,
		MaxResults: step.MaxResults,
	}
}

// Run applies all stages in their fixed order.
func Run(in []model.Listing, opts Options) []model.Listing {
	out := AttachSource(in, opts.Source)
	out = EnsurePriceValue(out)
	out = EnrichSpecs(out)
	out = FilterPriceRange(out, opts.MinPrice, opts.MaxPrice)
	out = FilterKeywords(out, opts.Include, opts.Exclude)
	out = Dedupe(out)
	out = Sort(out)
	return Truncate(out, opts.MaxResults)
}

// AttachSource tags untagged listings with source.
func AttachSource(in []model.Listing, source string) []model.Listing {
	out := make([]model.Listing, 0, len(in))
	for _, l := range in {
		if l.Source == "" {
			l.Source = source
		}
		out = append(out, l)
	}
	return out
}

// EnsurePriceValue parses the price text of listings without a numeric price.
func EnsurePriceValue(in []model.Listing) []model.Listing {
	out := make([]model.Listing, 0, len(in))
	for _, l := range in {
		if l.PriceValue == nil {
			if v, ok := money.ParsePriceText(string(l.Price)); ok {
				l.PriceValue = &v
			}
		}
		out = append(out, l)
	}
	return out
}

// EnrichSpecs fills missing spec fields from each title.
func EnrichSpecs(in []model.Listing) []model.Listing {
	out := make([]model.Listing, 0, len(in))
	for _, l := range in {
		out = append(out, specs.Enrich(l))
	}
	return out
}

// FilterPriceRange drops listings priced outside [minPrice, maxPrice].
// Listings with an unknown price are kept.
func FilterPriceRange(in []model.Listing, minPrice, maxPrice *int) []model.Listing {
	out := make([]model.Listing, 0, len(in))
	for _, l := range in {
		if l.PriceValue != nil {
			pv := *l.PriceValue
			if minPrice != nil && pv < *minPrice {
				continue
			}
			if maxPrice != nil && pv > *maxPrice {
				continue
			}
		}
		out = append(out, l)
	}
	return out
}

// FilterKeywords keeps listings whose title contains every include keyword
// and none of the exclude keywords, case-insensitively.
func FilterKeywords(in []model.Listing, include, exclude []string) []model.Listing {
	inc := model.NormalizeKeywords(include)
	exc := model.NormalizeKeywords(exclude)

	out := make([]model.Listing, 0, len(in))
	for _, l := range in {
		if keywordsMatch(strings.ToLower(l.Title), inc, exc) {
			out = append(out, l)
		}
	}
	return out
}

func keywordsMatch(title string, include, exclude []string) bool {
	for _, w := range include {
		if !strings.Contains(title, w) {
			return false
		}
	}
	for _, w := range exclude {
		if strings.Contains(title, w) {
			return false
		}
	}
	return true
}

// DedupeKey identifies a listing by link and price.
func DedupeKey(l model.Listing) string {
	pv := ""
	if l.PriceValue != nil {
		pv = strconv.Itoa(*l.PriceValue)
	}
	return l.Link + "|" + pv
}

// Dedupe keeps the first listing for each DedupeKey.
func Dedupe(in []model.Listing) []model.Listing {
	seen := make(map[string]struct{}, len(in))
	out := make([]model.Listing, 0, len(in))
	for _, l := range in {
		k := DedupeKey(l)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, l)
	}
	return out
}

// Sort orders by price ascending with unpriced listings last, then by title
// case-insensitively. The sort is stable.
func Sort(in []model.Listing) []model.Listing {
	out := make([]model.Listing, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.PriceValue == nil && b.PriceValue != nil:
			return false
		case a.PriceValue != nil && b.PriceValue == nil:
			return true
		case a.PriceValue != nil && *a.PriceValue != *b.PriceValue:
			return *a.PriceValue < *b.PriceValue
		}
		return strings.ToLower(a.Title) < strings.ToLower(b.Title)
	})
	return out
}

// Truncate keeps the first n listings. A non-positive n keeps everything.
func Truncate(in []model.Listing, n int) []model.Listing {
	if n <= 0 || len(in) <= n {
		out := make([]model.Listing, len(in))
		copy(out, in)
		return out
	}
	out := make([]model.Listing, n)
	copy(out, in[:n])
	return out
}
