package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/navigator/internal/model"
	"github.com/sells-group/navigator/internal/resilience"
)

const maxResponseBytes = 8 << 20

// HTTPJSONOptions configures an HTTPJSONExtractor.
type HTTPJSONOptions struct {
	Site       string
	BaseURL    string
	RatePerSec float64
	UserAgent  string
	Client     *http.Client
}

// HTTPJSONExtractor queries a listing search API:
//
//	GET {base}/search?q=<query>&limit=<n>&max_price=<p>
//
// The response is either {"listings": [...]} or a bare list of records.
type HTTPJSONExtractor struct {
	site      string
	base      string
	userAgent string
	client    *http.Client
	limiter   *rate.Limiter
	breaker   *resilience.CircuitBreaker
	retry     resilience.RetryConfig
}

// NewHTTPJSONExtractor builds an extractor from opts. A RatePerSec of zero
// means 2 requests per second.
func NewHTTPJSONExtractor(opts HTTPJSONOptions) *HTTPJSONExtractor {
	site := normalizeSite(opts.Site)
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = 2
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "navigator/1.0"
	}
	burst := max(int(opts.RatePerSec), 1)
	return &HTTPJSONExtractor{
		site:      site,
		base:      strings.TrimRight(opts.BaseURL, "/"),
		userAgent: opts.UserAgent,
		client:    opts.Client,
		limiter:   rate.NewLimiter(rate.Limit(opts.RatePerSec), burst),
		breaker:   resilience.NewCircuitBreaker(resilience.CircuitConfigFor(site)),
		retry:     resilience.RequestRetryConfig(site),
	}
}

// SearchURL returns the request URL for req.
func (h *HTTPJSONExtractor) SearchURL(req Request) string {
	q := url.Values{}
	q.Set("q", req.Query)
	if req.MaxResults > 0 {
		q.Set("limit", strconv.Itoa(req.MaxResults))
	}
	if req.MaxPrice != nil {
		q.Set("max_price", strconv.Itoa(*req.MaxPrice))
	}
	return h.base + "/search?" + q.Encode()
}

// Extract fetches one page of results.
func (h *HTTPJSONExtractor) Extract(ctx context.Context, _ Session, req Request) ([]model.ListingRecord, error) {
	target := h.SearchURL(req)
	return resilience.ExecuteVal(ctx, h.breaker, func(ctx context.Context) ([]model.ListingRecord, error) {
		return resilience.DoVal(ctx, h.retry, func(ctx context.Context) ([]model.ListingRecord, error) {
			return h.fetch(ctx, target)
		})
	})
}

func (h *HTTPJSONExtractor) fetch(ctx context.Context, target string) ([]model.ListingRecord, error) {
	if err := h.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "extract: rate limiter wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, eris.Wrap(err, "extract: build request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", h.userAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "extract: GET %s", target)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, eris.Wrap(err, "extract: read body")
	}

	if resp.StatusCode != http.StatusOK {
		herr := eris.Errorf("extract: %s returned http %d", h.site, resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(herr, resp.StatusCode)
		}
		return nil, herr
	}

	recs, err := DecodeListings(body)
	if err != nil {
		return nil, err
	}
	for i := range recs {
		if recs[i].Source == "" {
			recs[i].Source = h.site
		}
	}
	zap.L().Debug("extract: search response",
		zap.String("site", h.site),
		zap.Int("count", len(recs)),
	)
	return recs, nil
}

// DecodeListings accepts {"listings": [...]} or a bare JSON list.
func DecodeListings(body []byte) ([]model.ListingRecord, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, eris.New("extract: empty response body")
	}

	if trimmed[0] == '[' {
		var recs []model.ListingRecord
		if err := json.Unmarshal(trimmed, &recs); err != nil {
			return nil, eris.Wrap(err, "extract: decode listing list")
		}
		return recs, nil
	}

	var env struct {
		Listings []model.ListingRecord `json:"listings"`
	}
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, eris.Wrap(err, "extract: decode listing envelope")
	}
	if env.Listings == nil {
		return []model.ListingRecord{}, nil
	}
	return env.Listings, nil
}
