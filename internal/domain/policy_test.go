package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePolicy(t *testing.T) {
	tests := map[string]Policy{
		"manual":                   PolicyManual,
		"Manual Entry":             PolicyManual,
		"EQUAL":                    PolicyEqual,
		" Equal Distribution ":     PolicyEqual,
		"exposure":                 PolicyExposure,
		"Proportional to Exposure": PolicyExposure,
		"proportional_to_risk":     PolicyRisk,
		"risk":                     PolicyRisk,
	}
	for in, want := range tests {
		got, err := ParsePolicy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParsePolicy("lottery")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestPolicy_Label(t *testing.T) {
	for _, p := range Policies() {
		assert.True(t, p.Valid())
		assert.NotEqual(t, string(p), p.Label())
	}
	assert.Equal(t, "other", Policy("other").Label())
	assert.False(t, Policy("other").Valid())
}

func TestWarning_String(t *testing.T) {
	w := DataWarning(CodeRegionNoIncome, "75104", "no income row")
	assert.Equal(t, "data_integrity[region_without_income] 75104: no income row", w.String())

	m := MismatchWarning(Allocation{Target: 10, Amounts: map[string]float64{"A": 4}})
	assert.Equal(t, WarningAllocationMismatch, m.Kind)
	assert.Contains(t, m.String(), "difference 6.00")
}
