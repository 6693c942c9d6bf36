package planner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/navigator/internal/model"
)

func TestChooseSite(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"laptops on Reliance Digital", "reliance"},
		{"reliance or flipkart laptops", "reliance"},
		{"flipkart vs amazon", "flipkart"},
		{"amazon laptops", "amazon"},
		{"Croma deals", "croma"},
		{"cheap laptops", "flipkart"},
		{"reliances", "flipkart"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ChooseSite(tt.in), tt.in)
	}
}

func TestSanitizeQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"laptops under 50000", "laptops"},
		{"Find 3 gaming laptops on Amazon", "gaming laptops"},
		{"5 laptops 40k budget", "laptops"},
		{"show best ultrabooks below 80,000", "ultrabooks"},
		{"top 10", "laptops"},
		{"", "laptops"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeQuery(tt.in), tt.in)
	}
}

func TestFromQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		query      string
		maxResults int
		want       model.PlanStep
	}{
		{
			name:       "k budget on flipkart",
			query:      "find best laptops under 50k on flipkart",
			maxResults: 5,
			want: model.PlanStep{Action: "extract_products", Site: "flipkart", Query: "laptops",
				MaxResults: 5, MaxPrice: model.IntPtr(50000)},
		},
		{
			name:       "rupee budget on amazon",
			query:      "Top 5 gaming laptops on Amazon below ₹70,000",
			maxResults: 8,
			want: model.PlanStep{Action: "extract_products", Site: "amazon", Query: "gaming laptops",
				MaxResults: 8, MaxPrice: model.IntPtr(70000)},
		},
		{
			name:  "reliance digital without budget",
			query: "laptops on reliance digital",
			want: model.PlanStep{Action: "extract_products", Site: "reliance", Query: "laptops",
				MaxResults: 5},
		},
		{
			name:  "specs kept",
			query: "dell i5 16gb",
			want: model.PlanStep{Action: "extract_products", Site: "flipkart", Query: "laptops dell i5 16gb",
				MaxResults: 5},
		},
		{
			name:  "empty",
			query: "",
			want:  model.PlanStep{Action: "extract_products", Site: "flipkart", Query: "laptops", MaxResults: 5},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			plan := FromQuery(tt.query, tt.maxResults)
			require.Len(t, plan.Steps, 1)
			assert.Equal(t, tt.want, plan.Steps[0])
		})
	}
}

func TestApply(t *testing.T) {
	t.Parallel()

	base := FromQuery("laptops", 5)
	got := Apply(base, Overrides{
		Site:     "Croma",
		Budget:   model.IntPtr(60000),
		MinPrice: model.IntPtr(30000),
		Include:  model.ParseKeywords("SSD, 16gb"),
		Exclude:  model.ParseKeywords("refurbished"),
	})

	step := got.Steps[0]
	assert.Equal(t, "Croma", step.Site)
	assert.Equal(t, "laptops under 60000", step.Query)
	assert.Equal(t, 60000, *step.MaxPrice)
	assert.Equal(t, 30000, *step.MinPrice)
	assert.Equal(t, model.Keywords{"ssd", "16gb"}, step.Include)
	assert.Equal(t, model.Keywords{"refurbished"}, step.Exclude)

	assert.Nil(t, base.Steps[0].MaxPrice)
	assert.Equal(t, "laptops", base.Steps[0].Query)
}

func TestApply_BudgetKeepsExistingUnder(t *testing.T) {
	t.Parallel()

	plan := model.Plan{Steps: []model.PlanStep{{Action: "extract_products", Query: "laptops under 50000"}}}
	got := Apply(plan, Overrides{Budget: model.IntPtr(40000)})
	assert.Equal(t, "laptops under 50000", got.Steps[0].Query)
	assert.Equal(t, 40000, *got.Steps[0].MaxPrice)

	assert.Empty(t, Apply(model.Plan{}, Overrides{Site: "x"}).Steps)
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "plan.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`plan:
  - action: extract_products
    site: flipkart
    query: laptops
    max_results: 3
    max_price: 50000
    include: "SSD, i5"
    exclude: [refurbished]
`), 0o644))
	plan, err := LoadFile(yamlPath)
	require.NoError(t, err)
	require.Len(t, plan.Steps, 1)
	assert.Equal(t, 3, plan.Steps[0].MaxResults)
	assert.Equal(t, 50000, *plan.Steps[0].MaxPrice)
	assert.Equal(t, model.Keywords{"ssd", "i5"}, plan.Steps[0].Include)
	assert.Equal(t, model.Keywords{"refurbished"}, plan.Steps[0].Exclude)

	jsonPath := filepath.Join(dir, "plan.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"plan":[{"action":"extract_products","query":"laptops","max_price":null,"include":"ssd"}]}`), 0o644))
	plan, err = LoadFile(jsonPath)
	require.NoError(t, err)
	assert.Nil(t, plan.Steps[0].MaxPrice)
	assert.Equal(t, model.Keywords{"ssd"}, plan.Steps[0].Include)
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte(`{"plan":[]}`), true)
	assert.ErrorContains(t, err, "no steps")

	_, err = Parse([]byte(`{"plan":[{"action":"extract_products","bogus":1}]}`), true)
	assert.Error(t, err)

	_, err = Parse([]byte("plan:\n  - query: laptops\n"), false)
	assert.ErrorContains(t, err, "step 1 has no action")

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
