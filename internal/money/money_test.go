package money

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   any
		want int
		ok   bool
	}{
		{"rupee text", "₹49,990", 49990, true},
		{"decimal text", "63,989.00", 63989, true},
		{"no digits", "N/A", 0, false},
		{"empty", "", 0, false},
		{"nil", nil, 0, false},
		{"int", 45000, 45000, true},
		{"negative int", -5, 0, false},
		{"float truncates", 45999.9, 45999, true},
		{"nan", math.NaN(), 0, false},
		{"first run wins", "Rs 1,299 (was 2,499)", 1299, true},
		{"bytes", []byte("₹ 999"), 999, true},
		{"unsupported type", struct{}{}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := ParsePrice(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractBudget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"laptops under 50k", 50000, true},
		{"laptops under 50.5K", 50500, true},
		{"laptops under ₹60,000", 60000, true},
		{"laptops below 75000", 75000, true},
		{"top 5 laptops", 0, false},
		{"i5 laptops with 512 ssd", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, ok := ExtractBudget(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCleanQuery(t *testing.T) {
	t.Parallel()

	q, b := CleanQuery("Find top 5 laptops under 50k on Flipkart")
	require.NotNil(t, b)
	assert.Equal(t, 50000, *b)
	assert.Equal(t, "laptops under 50000", q)

	q, b = CleanQuery("gaming rtx")
	assert.Nil(t, b)
	assert.Equal(t, "laptops gaming rtx", q)

	q, b = CleanQuery("   ")
	assert.Nil(t, b)
	assert.Equal(t, "laptops", q)
}
