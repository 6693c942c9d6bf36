package money

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	budgetK      = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*k\b`)
	budgetAmount = regexp.MustCompile(`(?i)(\d[\d,]{3,})`)
	spaces       = regexp.MustCompile(`\s+`)

	queryFiller = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bon\s+(flipkart|amazon)\b`),
		regexp.MustCompile(`(?i)\bfind\b`),
		regexp.MustCompile(`(?i)\bbest\b`),
		regexp.MustCompile(`(?i)\btop\s*\d+\b`),
		regexp.MustCompile(`(?i)\bunder\s*(?:₹|rs\.?)?\s*\d[\d,]*\s*k?\b`),
		regexp.MustCompile(`(?i)\bbelow\s*(?:₹|rs\.?)?\s*\d[\d,]*\s*k?\b`),
		regexp.MustCompile(`(?i)\bless\s*than\s*(?:₹|rs\.?)?\s*\d[\d,]*\s*k?\b`),
		regexp.MustCompile(`(?i)<=\s*(?:₹|rs\.?)?\s*\d[\d,]*\s*k?\b`),
	}
)

// ExtractBudget finds a spending cap in a query. A k-suffixed amount
// ("50k", "50.5k") wins over a plain amount of four or more digits
// ("₹50,000").
func ExtractBudget(q string) (int, bool) {
	if m := budgetK.FindStringSubmatch(q); m != nil {
		if f, err := strconv.ParseFloat(m[1], 64); err == nil {
			return int(f * 1000), true
		}
	}
	if m := budgetAmount.FindStringSubmatch(q); m != nil {
		if n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", "")); err == nil {
			return n, true
		}
	}
	return 0, false
}

// CleanQuery strips site names, filler words and budget phrases from a
// free-text query, makes sure it mentions laptops, and re-appends a
// normalized "under N" when a budget was found.
func CleanQuery(q string) (string, *int) {
	q = strings.TrimSpace(q)
	if q == "" {
		return "laptops", nil
	}

	var budget *int
	if b, ok := ExtractBudget(q); ok && b > 0 {
		budget = &b
	}

	cleaned := q
	for _, re := range queryFiller {
		cleaned = re.ReplaceAllString(cleaned, "")
	}
	cleaned = collapse(cleaned)

	if !strings.Contains(strings.ToLower(cleaned), "laptop") {
		cleaned = strings.TrimSpace("laptops " + cleaned)
	}
	if budget != nil {
		cleaned = cleaned + " under " + strconv.Itoa(*budget)
	}
	return collapse(cleaned), budget
}

func collapse(s string) string {
	return strings.TrimSpace(spaces.ReplaceAllString(s, " "))
}
