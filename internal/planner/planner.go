// Package planner turns a free-text shopping request into an executable
// plan. Planning is rule based: the site comes from the words used, the
// budget from the first amount found.
package planner

import (
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/navigator/internal/model"
	"github.com/sells-group/navigator/internal/money"
)

var (
	amountPhrase  = regexp.MustCompile(`(?i)\b(under|below|less than)\s+\d[\d,]*k?\b`)
	amountSuffix  = regexp.MustCompile(`(?i)\b\d[\d,]*k?\s*(budget|max|price)\b`)
	onSite        = regexp.MustCompile(`(?i)\bon\s+(amazon|flipkart|croma|reliance digital|reliance)\b`)
	siteWord      = regexp.MustCompile(`(?i)\b(reliance digital|amazon|flipkart|croma|reliance)\b`)
	countPhrase   = regexp.MustCompile(`(?i)\btop\s+\d+\b|\bfind\s+\d+\b|^\s*\d+\s+`)
	fillerWord    = regexp.MustCompile(`(?i)\b(find|show|best|top|buy)\b`)
	relianceWord  = regexp.MustCompile(`\breliance\b`)
	whitespaceRun = regexp.MustCompile(`\s+`)
)

// ChooseSite picks the store named in q. Reliance wins over Flipkart, which
// wins over Amazon, then Croma; anything else goes to the default site.
func ChooseSite(q string) string {
	q = strings.ToLower(q)
	switch {
	case strings.Contains(q, "reliance digital") || relianceWord.MatchString(q):
		return "reliance"
	case strings.Contains(q, "flipkart"):
		return "flipkart"
	case strings.Contains(q, "amazon"):
		return "amazon"
	case strings.Contains(q, "croma"):
		return "croma"
	default:
		return model.DefaultSite
	}
}

// SanitizeQuery lowercases q and removes amounts, store names, result
// counts and filler verbs. An empty result becomes "laptops".
func SanitizeQuery(q string) string {
	q = strings.ToLower(strings.TrimSpace(q))
	q = amountPhrase.ReplaceAllString(q, " ")
	q = amountSuffix.ReplaceAllString(q, " ")
	q = onSite.ReplaceAllString(q, " ")
	q = siteWord.ReplaceAllString(q, " ")
	q = countPhrase.ReplaceAllString(q, " ")
	q = fillerWord.ReplaceAllString(q, " ")
	q = strings.TrimSpace(whitespaceRun.ReplaceAllString(q, " "))
	if q == "" {
		return "laptops"
	}
	return q
}

// FromQuery builds a single-step extraction plan for query.
func FromQuery(query string, maxResults int) model.Plan {
	if maxResults <= 0 {
		maxResults = model.DefaultMaxResults
	}

	cleaned, budget := money.CleanQuery(query)
	if cleaned == "" {
		cleaned = query
	}

	plan := model.Plan{Steps: []model.PlanStep{{
		Action:     model.ActionExtractProducts,
		Site:       ChooseSite(query),
		Query:      SanitizeQuery(cleaned),
		MaxResults: maxResults,
		MaxPrice:   budget,
	}}}

	zap.L().Info("planned query",
		zap.String("query", query),
		zap.String("site", plan.Steps[0].Site),
		zap.String("search", plan.Steps[0].Query),
		zap.Intp("max_price", budget),
	)
	return plan
}

// Overrides are caller-supplied values that replace what the planner
// inferred. Zero values leave the plan alone.
type Overrides struct {
	Site     string
	Budget   *int
	MinPrice *int
	Include  model.Keywords
	Exclude  model.Keywords
}

// Apply returns a copy of plan with o applied to its first step. A budget
// also appends "under N" to the query when it has no "under" yet.
func Apply(plan model.Plan, o Overrides) model.Plan {
	out := model.Plan{Steps: append([]model.PlanStep(nil), plan.Steps...)}
	if len(out.Steps) == 0 {
		return out
	}

	step := out.Steps[0]
	if s := strings.TrimSpace(o.Site); s != "" {
		step.Site = s
	}
	if o.Budget != nil {
		b := *o.Budget
		step.MaxPrice = &b
		q := step.Query
		if q == "" {
			q = "laptops"
		}
		if !strings.Contains(strings.ToLower(q), "under") {
			q = q + " under " + strconv.Itoa(b)
		}
		step.Query = q
	}
	if o.MinPrice != nil {
		m := *o.MinPrice
		step.MinPrice = &m
	}
	if len(o.Include) > 0 {
		step.Include = append(model.Keywords(nil), o.Include...)
	}
	if len(o.Exclude) > 0 {
		step.Exclude = append(model.Keywords(nil), o.Exclude...)
	}
	out.Steps[0] = step
	return out
}
