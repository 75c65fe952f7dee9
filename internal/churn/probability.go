package churn

import "github.com/andresuchdata/premium-allocation/internal/domain"

// Burden holds the ratios that drive a customer's churn probability
type Burden struct {
	IncomeRatio float64
	ValueRatio  float64
}

// ComputeBurden derives income and value ratios for a new premium.
// referenceIncome must already carry the portfolio fallback; when it is
// still not positive the ratio uses newPremium / (regionIncome + 1).
func ComputeBurden(p domain.ChurnParams, newPremium, referenceIncome, regionIncome, insuredValue float64) Burden {
	var b Burden
	if referenceIncome > 0 {
		b.IncomeRatio = newPremium / referenceIncome
	} else {
		b.IncomeRatio = safeDiv(newPremium, regionIncome+1)
	}

	if insuredValue != 0 {
		b.ValueRatio = newPremium / insuredValue
	} else {
		b.ValueRatio = b.IncomeRatio * p.ValueFallbackFactor
	}
	return b
}

// Probability maps a burden to a churn probability in [0, MaxProbability].
func Probability(p domain.ChurnParams, b Burden) float64 {
	burdenIncome := clamp(b.IncomeRatio/p.IncomeThreshold, 0, p.BurdenCap)
	burdenValue := clamp(b.ValueRatio/p.ValueThreshold, 0, p.BurdenCap)

	raw := p.BaseChurn +
		p.BurdenFocus*p.IncomeWeight*burdenIncome +
		(1-p.BurdenFocus)*p.ValueWeight*burdenValue

	return clamp(raw*p.Sensitivity, 0, p.MaxProbability)
}

func clamp(v, lo, hi float64) float64 {
	// NaN compares false everywhere, map it to the lower bound
	if !(v >= lo) {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func safeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
