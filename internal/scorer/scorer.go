package scorer

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/sells-group/navigator/internal/config"
	"github.com/sells-group/navigator/internal/model"
)

// TagSeparator joins why-choose tags and exported pros/cons.
const TagSeparator = " • "

const maxTags = 6

// cpuFamilies are the labels shown in why-choose, checked in order.
var cpuFamilies = []string{"i9", "i7", "i5", "i3", "Ryzen 9", "Ryzen 7", "Ryzen 5", "Ryzen 3", "M3", "M2", "M1"}

// Scorer computes scores, explanations, and pros/cons for listings.
type Scorer struct {
	cfg config.ScoringConfig
}

// New creates a Scorer. Zero fields in cfg use the defaults.
func New(cfg config.ScoringConfig) *Scorer {
	return &Scorer{cfg: WithDefaults(cfg)}
}

// Config returns the effective configuration.
func (s *Scorer) Config() config.ScoringConfig { return s.cfg }

// Score returns a weighted score in [0,1] rounded to 3 decimals. budget may
// be nil.
func (s *Scorer) Score(l model.Listing, budget *int) float64 {
	c := s.cfg
	total := c.PriceWeight*s.priceScore(l.PriceValue, budget) +
		c.RAMWeight*ramScore(l.RAMGB) +
		c.CPUWeight*float64(CPUTier(l.CPU))/5.0 +
		c.SSDWeight*ssdScore(l.StorageSSDGB) +
		c.GPUWeight*gpuScore(l.GPU) +
		c.ScreenWeight*screenScore(l.ScreenInches) +
		c.OSWeight*osScore(l.OS)
	return math.Round(clamp01(total)*1000) / 1000
}

func (s *Scorer) priceScore(price, budget *int) float64 {
	if price == nil {
		return 0
	}
	p := float64(*price)
	if budget != nil && *budget > 0 {
		b := float64(*budget)
		if p <= b {
			return clamp01(1 - p/b + s.cfg.UnderBudgetBonus)
		}
		return math.Max(0, s.cfg.OverBudgetBase-(p-b)/(2*b))
	}
	refMax := float64(s.cfg.PriceRefMax)
	refMin := float64(s.cfg.PriceRefMin)
	return clamp01((refMax - p) / (refMax - refMin))
}

func ramScore(ram *int) float64 {
	switch {
	case ram == nil:
		return 0
	case *ram >= 32:
		return 1.0
	case *ram >= 16:
		return 0.8
	case *ram >= 8:
		return 0.5
	default:
		return 0.2
	}
}

func ssdScore(ssd *int) float64 {
	switch {
	case ssd == nil:
		return 0
	case *ssd >= 1024:
		return 1.0
	case *ssd >= 512:
		return 0.8
	case *ssd >= 256:
		return 0.5
	default:
		return 0.2
	}
}

func gpuScore(gpu string) float64 {
	if HasDiscreteGPU(gpu) {
		return 1.0
	}
	return 0.3
}

func screenScore(in *float64) float64 {
	switch {
	case in == nil:
		return 0.6
	case *in >= 15 && *in <= 16:
		return 1.0
	case *in >= 13 && *in < 15:
		return 0.8
	default:
		return 0.5
	}
}

func osScore(os string) float64 {
	switch {
	case isModernOS(os):
		return 1.0
	case strings.Contains(strings.ToLower(os), "windows"):
		return 0.8
	default:
		return 0.5
	}
}

func isModernOS(os string) bool {
	o := strings.ToLower(os)
	return strings.Contains(o, "windows 11") || strings.Contains(o, "mac")
}

// CPUTier ranks a CPU string from 0 (unknown) to 5 (top end).
func CPUTier(cpu string) int {
	c := strings.ToLower(strings.TrimSpace(cpu))
	has := func(subs ...string) bool {
		for _, s := range subs {
			if strings.Contains(c, s) {
				return true
			}
		}
		return false
	}
	switch {
	case c == "":
		return 0
	case has("i9", "ryzen 9", "m3 max", "m3 pro"):
		return 5
	case has("i7", "ryzen 7", "m3", "m2 pro"):
		return 4
	case has("i5", "ryzen 5", "m2", "m1 pro"):
		return 3
	case has("i3", "ryzen 3", "m1"):
		return 2
	default:
		return 1
	}
}

// HasDiscreteGPU reports whether gpu names a dedicated graphics part.
func HasDiscreteGPU(gpu string) bool {
	g := strings.ToLower(gpu)
	return strings.Contains(g, "rtx") || strings.Contains(g, "gtx") || strings.Contains(g, "radeon")
}

// WhyChoose builds a short explanation of what makes the listing stand out.
func (s *Scorer) WhyChoose(l model.Listing) string {
	var tags []string

	if l.PriceValue != nil {
		switch p := *l.PriceValue; {
		case p < s.cfg.GreatValueBelow:
			tags = append(tags, "great value")
		case p < s.cfg.GoodPriceBelow:
			tags = append(tags, "good price")
		default:
			tags = append(tags, "premium tier")
		}
	}

	if l.RAMGB != nil && *l.RAMGB >= 8 {
		tags = append(tags, fmt.Sprintf("%dGB RAM", *l.RAMGB))
	}

	if cpu := strings.TrimSpace(l.CPU); cpu != "" {
		tags = append(tags, cpuLabel(cpu))
	}

	if l.StorageSSDGB != nil {
		switch {
		case *l.StorageSSDGB >= 512:
			tags = append(tags, "512GB+ SSD")
		case *l.StorageSSDGB >= 256:
			tags = append(tags, "256GB SSD")
		}
	}

	if HasDiscreteGPU(l.GPU) {
		tags = append(tags, "discrete GPU")
	}

	if os := strings.TrimSpace(l.OS); os != "" {
		tags = append(tags, strings.ToUpper(os))
	}

	if l.ScreenInches != nil {
		if *l.ScreenInches >= 15 {
			tags = append(tags, `15"+ screen`)
		} else {
			tags = append(tags, `~14" screen`)
		}
	}

	if brand := strings.TrimSpace(l.Brand); brand != "" {
		tags = append(tags, brand)
	}

	return strings.Join(dedupeCap(tags, maxTags), TagSeparator)
}

func cpuLabel(cpu string) string {
	lower := strings.ToLower(cpu)
	for _, f := range cpuFamilies {
		if strings.Contains(lower, strings.ToLower(f)) {
			return f
		}
	}
	return strings.Fields(cpu)[0]
}

// ProsCons applies independent threshold rules per field.
func (s *Scorer) ProsCons(l model.Listing) (pros, cons []string) {
	pros, cons = []string{}, []string{}

	if l.PriceValue != nil {
		switch p := *l.PriceValue; {
		case p < s.cfg.GreatValueBelow:
			pros = append(pros, "Low price")
		case p > s.cfg.ExpensiveAbove:
			cons = append(cons, "Expensive")
		}
	}

	if l.RAMGB != nil {
		switch {
		case *l.RAMGB >= 16:
			pros = append(pros, "16GB+ RAM")
		case *l.RAMGB < 8:
			cons = append(cons, "Under 8GB RAM")
		}
	}

	switch {
	case l.StorageSSDGB == nil:
		cons = append(cons, "SSD unknown")
	case *l.StorageSSDGB >= 512:
		pros = append(pros, "512GB+ SSD")
	case *l.StorageSSDGB < 256:
		cons = append(cons, "Small SSD (<256GB)")
	}

	cpu := strings.TrimSpace(l.CPU)
	switch tier := CPUTier(cpu); {
	case tier >= 4:
		pros = append(pros, "High-tier CPU")
	case tier <= 1 && cpu != "":
		cons = append(cons, "Entry-level CPU")
	}

	gpu := strings.TrimSpace(l.GPU)
	switch {
	case HasDiscreteGPU(gpu):
		pros = append(pros, "Discrete GPU")
	case gpu != "":
		cons = append(cons, "Integrated graphics")
	}

	os := strings.TrimSpace(l.OS)
	switch {
	case isModernOS(os):
		pros = append(pros, "Modern OS")
	case os != "":
		cons = append(cons, "Older OS")
	}

	if l.ScreenInches != nil {
		switch in := *l.ScreenInches; {
		case in >= 15 && in <= 16:
			pros = append(pros, `Comfortable 15–16" screen`)
		case in < 14:
			pros = append(pros, `Portable ~14"`)
		case in > 16:
			cons = append(cons, "Large & less portable")
		}
	}

	return dedupeCap(pros, maxTags), dedupeCap(cons, maxTags)
}

// Enrich returns a copy of l with score, why-choose, and pros/cons set.
func (s *Scorer) Enrich(l model.Listing, budget *int) model.Listing {
	l.WhyChoose = s.WhyChoose(l)
	l.Score = s.Score(l, budget)
	l.Pros, l.Cons = s.ProsCons(l)
	return l
}

// EnrichAll scores every listing, keeping the input order.
func (s *Scorer) EnrichAll(in []model.Listing, budget *int) []model.Listing {
	out := make([]model.Listing, 0, len(in))
	for _, l := range in {
		out = append(out, s.Enrich(l, budget))
	}
	return out
}

// Rank returns a copy of in ordered by score, best first. Ties keep their
// input order.
func Rank(in []model.Listing) []model.Listing {
	out := make([]model.Listing, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

func dedupeCap(items []string, n int) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		k := strings.ToLower(it)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, it)
		if len(out) >= n {
			break
		}
	}
	return out
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
