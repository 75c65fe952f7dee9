package churn

import (
	"fmt"
	"math"

	"github.com/andresuchdata/premium-allocation/internal/domain"
)

// Defaults used by the workshop deployment.
const (
	DefaultSeed                = 123
	DefaultSensitivity         = 1.6
	DefaultBurdenFocus         = 0.8
	DefaultBaseChurn           = 0.12
	DefaultIncomeThreshold     = 0.05
	DefaultValueThreshold      = 0.01
	DefaultValueFallbackFactor = 0.1
	DefaultMaxProbability      = 0.95
	DefaultBurdenCap           = 3.0
	DefaultIncomeWeight        = 0.35
	DefaultValueWeight         = 0.25
)

// DefaultParams returns the locked workshop parameters.
func DefaultParams() domain.ChurnParams {
	return domain.ChurnParams{
		Sensitivity:         DefaultSensitivity,
		BurdenFocus:         DefaultBurdenFocus,
		BaseChurn:           DefaultBaseChurn,
		IncomeThreshold:     DefaultIncomeThreshold,
		ValueThreshold:      DefaultValueThreshold,
		ValueFallbackFactor: DefaultValueFallbackFactor,
		MaxProbability:      DefaultMaxProbability,
		BurdenCap:           DefaultBurdenCap,
		IncomeWeight:        DefaultIncomeWeight,
		ValueWeight:         DefaultValueWeight,
	}
}

// Validate checks parameter ranges.
func Validate(p domain.ChurnParams) error {
	checks := []struct {
		name     string
		value    float64
		min, max float64
		openMin  bool
	}{
		{"churn_sensitivity", p.Sensitivity, 0, math.Inf(1), false},
		{"burden_focus", p.BurdenFocus, 0, 1, false},
		{"base_churn", p.BaseChurn, 0, 1, false},
		{"income_threshold", p.IncomeThreshold, 0, math.Inf(1), true},
		{"value_threshold", p.ValueThreshold, 0, math.Inf(1), true},
		{"value_fallback_factor", p.ValueFallbackFactor, 0, math.Inf(1), false},
		{"max_probability", p.MaxProbability, 0, 1, false},
		{"burden_cap", p.BurdenCap, 0, math.Inf(1), false},
		{"income_weight", p.IncomeWeight, 0, math.Inf(1), false},
		{"value_weight", p.ValueWeight, 0, math.Inf(1), false},
	}

	for _, c := range checks {
		if math.IsNaN(c.value) || math.IsInf(c.value, 0) {
			return fmt.Errorf("%w: %s must be finite", domain.ErrInvalidInput, c.name)
		}
		if c.openMin && c.value <= c.min {
			return fmt.Errorf("%w: %s must be > %g, got %g", domain.ErrInvalidInput, c.name, c.min, c.value)
		}
		if c.value < c.min || c.value > c.max {
			return fmt.Errorf("%w: %s must be within [%g, %g], got %g", domain.ErrInvalidInput, c.name, c.min, c.max, c.value)
		}
	}
	return nil
}
