// Package scorer ranks listings with an explainable weighted model.
package scorer

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/navigator/internal/config"
)

// DefaultScoringConfig returns the stock weights and price thresholds.
// Weights sum to 1.
func DefaultScoringConfig() config.ScoringConfig {
	return config.ScoringConfig{
		// Weights (sum = 1).
		PriceWeight:  0.35,
		RAMWeight:    0.20,
		CPUWeight:    0.20,
		SSDWeight:    0.12,
		GPUWeight:    0.08,
		ScreenWeight: 0.03,
		OSWeight:     0.02,

		// Price buckets, in rupees.
		GreatValueBelow: 35_000,
		GoodPriceBelow:  50_000,
		ExpensiveAbove:  80_000,

		// Reference range used when no budget is given.
		PriceRefMin: 20_000,
		PriceRefMax: 150_000,

		UnderBudgetBonus: 0.05,
		OverBudgetBase:   0.15,
	}
}

// WithDefaults fills unset fields of c from DefaultScoringConfig.
// Weights are taken as a group: the stock weights apply only when every
// weight is zero, so a single weight set to 0 drops that factor.
func WithDefaults(c config.ScoringConfig) config.ScoringConfig {
	d := DefaultScoringConfig()
	if WeightSum(c) == 0 && !anyNegativeWeight(c) {
		c.PriceWeight = d.PriceWeight
		c.RAMWeight = d.RAMWeight
		c.CPUWeight = d.CPUWeight
		c.SSDWeight = d.SSDWeight
		c.GPUWeight = d.GPUWeight
		c.ScreenWeight = d.ScreenWeight
		c.OSWeight = d.OSWeight
	}
	setF := func(v *float64, def float64) {
		if *v == 0 {
			*v = def
		}
	}
	setI := func(v *int, def int) {
		if *v == 0 {
			*v = def
		}
	}
	setI(&c.GreatValueBelow, d.GreatValueBelow)
	setI(&c.GoodPriceBelow, d.GoodPriceBelow)
	setI(&c.ExpensiveAbove, d.ExpensiveAbove)
	setI(&c.PriceRefMin, d.PriceRefMin)
	setI(&c.PriceRefMax, d.PriceRefMax)
	setF(&c.UnderBudgetBonus, d.UnderBudgetBonus)
	setF(&c.OverBudgetBase, d.OverBudgetBase)
	return c
}

type namedWeight struct {
	name  string
	value float64
}

// weightList returns the component weights in a fixed order.
func weightList(c config.ScoringConfig) []namedWeight {
	return []namedWeight{
		{"price_weight", c.PriceWeight},
		{"ram_weight", c.RAMWeight},
		{"cpu_weight", c.CPUWeight},
		{"ssd_weight", c.SSDWeight},
		{"gpu_weight", c.GPUWeight},
		{"screen_weight", c.ScreenWeight},
		{"os_weight", c.OSWeight},
	}
}

func anyNegativeWeight(c config.ScoringConfig) bool {
	for _, w := range weightList(c) {
		if w.value < 0 {
			return true
		}
	}
	return false
}

// WeightSum returns the sum of all component weights.
func WeightSum(c config.ScoringConfig) float64 {
	return c.PriceWeight + c.RAMWeight + c.CPUWeight + c.SSDWeight +
		c.GPUWeight + c.ScreenWeight + c.OSWeight
}

// ValidateConfig checks that a ScoringConfig is internally consistent.
func ValidateConfig(c config.ScoringConfig) error {
	var errs []string

	for _, w := range weightList(c) {
		if w.value < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0", w.name))
		}
	}

	// Weights should be close to 1 (allow tolerance for floating-point).
	if sum := WeightSum(c); math.Abs(sum-1) > 0.01 {
		errs = append(errs, fmt.Sprintf("weights should sum to 1, got %.3f", sum))
	}

	if c.GoodPriceBelow < c.GreatValueBelow {
		errs = append(errs, "good_price_below must be >= great_value_below")
	}
	if c.PriceRefMax <= c.PriceRefMin {
		errs = append(errs, "price_ref_max must be > price_ref_min")
	}
	if c.UnderBudgetBonus < 0 || c.OverBudgetBase < 0 {
		errs = append(errs, "budget adjustments must be >= 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("scorer: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
