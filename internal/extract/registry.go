package extract

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/navigator/internal/config"
	"github.com/sells-group/navigator/internal/resilience"
)

// DefaultAliases maps sites without an extractor of their own to one that
// serves the same catalogue.
var DefaultAliases = map[string]string{
	"amazon":           "flipkart",
	"croma":            "flipkart",
	"reliance":         "flipkart",
	"reliance digital": "flipkart",
}

type siteEntry struct {
	extractor Extractor
	retry     resilience.ExtractRetryConfig
}

// Registry resolves a site name to its extractor and retry settings.
type Registry struct {
	sites   map[string]siteEntry
	aliases map[string]string
}

// NewRegistry returns an empty registry with the default aliases.
func NewRegistry() *Registry {
	r := &Registry{sites: make(map[string]siteEntry), aliases: make(map[string]string)}
	for k, v := range DefaultAliases {
		r.aliases[k] = v
	}
	return r
}

// Register adds or replaces the extractor for site.
func (r *Registry) Register(site string, ex Extractor, retry resilience.ExtractRetryConfig) {
	site = normalizeSite(site)
	if retry.Label == "" {
		retry.Label = site
	}
	r.sites[site] = siteEntry{extractor: ex, retry: retry}
}

// Alias routes requests for from to the extractor registered for to.
func (r *Registry) Alias(from, to string) {
	r.aliases[normalizeSite(from)] = normalizeSite(to)
}

// Canonical applies the alias table to site.
func (r *Registry) Canonical(site string) string {
	site = normalizeSite(site)
	if to, ok := r.aliases[site]; ok {
		return to
	}
	return site
}

// Lookup returns the extractor and retry settings for site after alias
// resolution. ok is false when no extractor serves it.
func (r *Registry) Lookup(site string) (canonical string, ex Extractor, retry resilience.ExtractRetryConfig, ok bool) {
	canonical = r.Canonical(site)
	e, found := r.sites[canonical]
	if !found {
		return canonical, nil, resilience.ExtractRetryConfig{}, false
	}
	return canonical, e.extractor, e.retry, true
}

// Sites lists registered site names in order.
func (r *Registry) Sites() []string {
	out := make([]string, 0, len(r.sites))
	for s := range r.sites {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// FromConfig builds a registry from the extract section of cfg.
func FromConfig(cfg config.ExtractConfig) (*Registry, error) {
	r := NewRegistry()
	for from, to := range cfg.Aliases {
		r.Alias(from, to)
	}

	for name, sc := range cfg.Sites {
		retry := resilience.FromSiteConfig(normalizeSite(name), sc, cfg)
		switch sc.Kind {
		case "", "fixture":
			r.Register(name, NewFixtureExtractor(cfg.FixturesDir, name), retry)
		case "http":
			if sc.BaseURL == "" {
				return nil, eris.Errorf("extract: site %s: base_url is required", name)
			}
			timeout := 30 * time.Second
			if sc.TimeoutSec > 0 {
				timeout = time.Duration(sc.TimeoutSec) * time.Second
			}
			r.Register(name, NewHTTPJSONExtractor(HTTPJSONOptions{
				Site:       name,
				BaseURL:    sc.BaseURL,
				RatePerSec: sc.RatePerSec,
				Client:     &http.Client{Timeout: timeout},
			}), retry)
		default:
			return nil, eris.Errorf("extract: site %s: unknown kind %q", name, sc.Kind)
		}
	}
	return r, nil
}

func normalizeSite(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
