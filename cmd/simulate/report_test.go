package main

import (
	"bytes"
	"testing"

	"github.com/andresuchdata/premium-allocation/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoney(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0.00"},
		{12.345, "12.35"},
		{999.999, "1,000.00"},
		{2000000, "2,000,000.00"},
		{-1234.5, "-1,234.50"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, money(tt.in))
	}
}

func TestParseAmounts(t *testing.T) {
	edits, err := parseAmounts([]string{"75101=100", " 75102 = 2.5"})
	require.NoError(t, err)
	assert.Equal(t, []domain.AllocationEdit{{RegionID: "75101", Amount: 100}, {RegionID: "75102", Amount: 2.5}}, edits)

	_, err = parseAmounts([]string{"75101"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = parseAmounts([]string{"75101=abc"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestWriteAllocation(t *testing.T) {
	ds := &domain.Dataset{Regions: []domain.Region{{ID: "75101", Name: "Paris 1er"}, {ID: "75102", Name: "Paris 2e"}}}
	alloc := domain.Allocation{Target: 1000, Amounts: map[string]float64{"75101": 400, "75102": 500}}
	view := domain.NewAllocationView(domain.PolicyManual, alloc, []domain.Warning{domain.MismatchWarning(alloc)})

	var buf bytes.Buffer
	require.NoError(t, writeAllocation(&buf, ds, view))

	out := buf.String()
	assert.Contains(t, out, "Manual Entry")
	assert.Contains(t, out, "Paris 2e")
	assert.Contains(t, out, "900.00")
	assert.Contains(t, out, "warning: allocation_mismatch")
}

func TestWriteBatch(t *testing.T) {
	batch := domain.BatchResult{
		Runs: []domain.PortfolioOutcome{
			{Seed: 123, Staying: 8, StayRate: 80, RealizedProfit: 1500},
			{Seed: 124, Staying: 9, StayRate: 90, RealizedProfit: 1700},
		},
		StayRate:       domain.BatchStat{Mean: 85, StdDev: 7.07, Min: 80, Max: 90},
		RealizedProfit: domain.BatchStat{Mean: 1600, StdDev: 141.42, Min: 1500, Max: 1700},
	}

	var buf bytes.Buffer
	require.NoError(t, writeBatch(&buf, batch))
	assert.Contains(t, buf.String(), "1,600.00")
	assert.Contains(t, buf.String(), "85.00%")
}
