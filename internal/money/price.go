// Package money parses prices and budgets out of free text.
package money

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var digitRun = regexp.MustCompile(`\d[\d,]*`)

// ParsePrice converts an integer, float, or text price into a non-negative
// integer. The second return is false when no price can be read.
func ParsePrice(v any) (int, bool) {
	switch p := v.(type) {
	case nil:
		return 0, false
	case int:
		return nonNegative(int64(p))
	case int32:
		return nonNegative(int64(p))
	case int64:
		return nonNegative(p)
	case float32:
		return fromFloat(float64(p))
	case float64:
		return fromFloat(p)
	case string:
		return ParsePriceText(p)
	case []byte:
		return ParsePriceText(string(p))
	default:
		return 0, false
	}
}

// ParsePriceText returns the first run of digits in s, with thousands
// separators removed. "₹49,990" reads as 49990, "63,989.00" as 63989.
func ParsePriceText(s string) (int, bool) {
	m := digitRun.FindString(s)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m, ",", ""))
	if err != nil {
		return 0, false
	}
	return n, true
}

func nonNegative(n int64) (int, bool) {
	if n < 0 || n > math.MaxInt {
		return 0, false
	}
	return int(n), true
}

func fromFloat(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f > math.MaxInt64/2 {
		return 0, false
	}
	return int(f), true
}
