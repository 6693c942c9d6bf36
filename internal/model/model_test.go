package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestStepStatusValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status StepStatus
		want   string
	}{
		{StepStatusOK, "ok"},
		{StepStatusPartial, "partial"},
		{StepStatusCached, "cached"},
		{StepStatusSkipped, "skipped"},
		{StepStatusUnsupported, "unsupported"},
		{StepStatusError, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, string(tt.status))
		})
	}
}

func TestPriceText_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	var rec ListingRecord
	require.NoError(t, json.Unmarshal([]byte(`{"title":"x","price":"₹49,990"}`), &rec))
	assert.Equal(t, PriceText("₹49,990"), rec.Price)

	require.NoError(t, json.Unmarshal([]byte(`{"title":"x","price":49990}`), &rec))
	assert.Equal(t, PriceText("49990"), rec.Price)

	require.NoError(t, json.Unmarshal([]byte(`{"title":"x","price":null}`), &rec))
	assert.Equal(t, PriceText(""), rec.Price)
}

func TestKeywords_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	var step PlanStep
	require.NoError(t, json.Unmarshal([]byte(`{"include":"RTX, ,  i7","exclude":["Refurbished"," "]}`), &step))
	assert.Equal(t, Keywords{"rtx", "i7"}, step.Include)
	assert.Equal(t, Keywords{"refurbished"}, step.Exclude)
}

func TestKeywords_UnmarshalYAML(t *testing.T) {
	t.Parallel()

	var plan Plan
	src := `
plan:
  - action: extract_products
    site: Flipkart
    query: laptops
    include: "rtx,16gb"
    exclude: [Renewed]
`
	require.NoError(t, yaml.Unmarshal([]byte(src), &plan))
	require.Len(t, plan.Steps, 1)
	assert.Equal(t, Keywords{"rtx", "16gb"}, plan.Steps[0].Include)
	assert.Equal(t, Keywords{"renewed"}, plan.Steps[0].Exclude)
}

func TestPlanStep_Normalize(t *testing.T) {
	t.Parallel()

	in := PlanStep{Action: " extract_products ", Site: "  ", Query: " laptops ", Include: Keywords{" A ", ""}}
	out := in.Normalize()

	assert.Equal(t, ActionExtractProducts, out.Action)
	assert.Equal(t, DefaultSite, out.Site)
	assert.Equal(t, "laptops", out.Query)
	assert.Equal(t, DefaultMaxResults, out.MaxResults)
	assert.Equal(t, Keywords{"a"}, out.Include)
	assert.Empty(t, out.Exclude)
	// Input untouched.
	assert.Equal(t, "  ", in.Site)
}

func TestSpecs_Fill(t *testing.T) {
	t.Parallel()

	have := Specs{RAMGB: IntPtr(16), Brand: "hp"}
	inferred := Specs{RAMGB: IntPtr(8), Brand: "dell", CPU: "I5", ScreenInches: FloatPtr(15.6)}

	got := have.Fill(inferred)
	assert.Equal(t, 16, *got.RAMGB)
	assert.Equal(t, "hp", got.Brand)
	assert.Equal(t, "I5", got.CPU)
	assert.InDelta(t, 15.6, *got.ScreenInches, 0.001)
	assert.Empty(t, have.CPU)
}

func TestListing_JSONShape(t *testing.T) {
	t.Parallel()

	l := Listing{
		ListingRecord: ListingRecord{Title: "Dell", Price: "₹40,000", PriceValue: IntPtr(40000), Link: "u", Source: "flipkart"},
		Score:         0.5,
		Pros:          []string{},
		Cons:          []string{"SSD unknown"},
	}
	data, err := json.Marshal(l)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	for _, k := range []string{"title", "price", "price_value", "why_choose", "score", "pros", "cons",
		"brand", "cpu", "ram_gb", "storage_ssd_gb", "storage_hdd_gb", "gpu", "os", "screen_inches", "source", "link"} {
		assert.Contains(t, m, k)
	}
	assert.Nil(t, m["ram_gb"])
	assert.NotContains(t, m, "cpu_brand")
}

func TestNewRunRecord(t *testing.T) {
	t.Parallel()

	res := RunResult{
		OK:      true,
		Plan:    Plan{Steps: []PlanStep{{Site: "flipkart", MaxResults: 5, MaxPrice: IntPtr(50000)}}},
		Results: []Listing{{}, {}},
		Artifacts: Artifacts{
			RunDir: "/tmp/run",
			Steps:  []StepReport{{Action: ActionExtractProducts, Status: StepStatusOK}},
		},
	}
	rec := NewRunRecord("laptops under 50k", res)
	assert.Equal(t, "flipkart", rec.Site)
	assert.Equal(t, 2, rec.Count)
	assert.Equal(t, 50000, *rec.MaxPrice)
	assert.Equal(t, "/tmp/run", rec.RunDir)
	assert.Len(t, rec.Steps, 1)
}
