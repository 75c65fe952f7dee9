package churn

import (
	"errors"
	"math"
	"testing"

	"github.com/andresuchdata/premium-allocation/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbability_Defaults(t *testing.T) {
	p := DefaultParams()

	tests := []struct {
		name      string
		premium   float64
		income    float64
		insured   float64
		wantRatio [2]float64
		want      float64
	}{
		{
			name:      "moderate burden",
			premium:   100,
			income:    20000,
			insured:   10000,
			wantRatio: [2]float64{0.005, 0.01},
			want:      (0.12 + 0.8*0.35*0.1 + 0.2*0.25*1) * 1.6,
		},
		{
			name:      "caps at max probability",
			premium:   50000,
			income:    20000,
			insured:   1000,
			wantRatio: [2]float64{2.5, 50},
			want:      0.95,
		},
		{
			name:      "zero premium keeps base churn",
			premium:   0,
			income:    20000,
			insured:   10000,
			wantRatio: [2]float64{0, 0},
			want:      0.12 * 1.6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := ComputeBurden(p, tt.premium, tt.income, tt.income, tt.insured)
			assert.InDelta(t, tt.wantRatio[0], b.IncomeRatio, 1e-12)
			assert.InDelta(t, tt.wantRatio[1], b.ValueRatio, 1e-12)
			assert.InDelta(t, tt.want, Probability(p, b), 1e-12)
		})
	}
}

func TestComputeBurden_Fallbacks(t *testing.T) {
	p := DefaultParams()

	b := ComputeBurden(p, 100, 0, 99, 0)
	assert.InDelta(t, 1.0, b.IncomeRatio, 1e-12, "uses premium / (income + 1)")
	assert.InDelta(t, 0.1, b.ValueRatio, 1e-12, "value ratio falls back to income ratio * factor")

	b = ComputeBurden(p, 100, 0, -1, 0)
	assert.Equal(t, 0.0, b.IncomeRatio)
}

func TestProbability_StaysInBounds(t *testing.T) {
	p := DefaultParams()
	inputs := []Burden{
		{IncomeRatio: -5, ValueRatio: -5},
		{IncomeRatio: math.NaN(), ValueRatio: 0.3},
		{IncomeRatio: math.Inf(1), ValueRatio: math.Inf(1)},
		{IncomeRatio: 0.01, ValueRatio: 0.001},
	}
	for _, b := range inputs {
		prob := Probability(p, b)
		assert.GreaterOrEqual(t, prob, 0.0)
		assert.LessOrEqual(t, prob, p.MaxProbability)
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(DefaultParams()))

	bad := []func(*domain.ChurnParams){
		func(p *domain.ChurnParams) { p.BurdenFocus = 1.2 },
		func(p *domain.ChurnParams) { p.IncomeThreshold = 0 },
		func(p *domain.ChurnParams) { p.MaxProbability = -0.1 },
		func(p *domain.ChurnParams) { p.Sensitivity = math.NaN() },
		func(p *domain.ChurnParams) { p.ValueWeight = math.Inf(1) },
	}
	for _, mutate := range bad {
		p := DefaultParams()
		mutate(&p)
		err := Validate(p)
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	}
}
