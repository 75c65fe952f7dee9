package metrics

import (
	"testing"

	"github.com/andresuchdata/premium-allocation/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() *domain.Dataset {
	return &domain.Dataset{
		Customers: []domain.Customer{
			{RegionID: "A", InsuredValue: 1000, LossProbability: 0.02, CurrentPremium: 50},
			{RegionID: "A", InsuredValue: 2000, LossProbability: 0.01, CurrentPremium: 80},
			{RegionID: "B", InsuredValue: 500, LossProbability: 0.05, CurrentPremium: 40},
		},
		Regions: []domain.Region{
			{ID: "A", Name: "Alpha", CensusCount: 100},
			{ID: "B", Name: "Beta", CensusCount: 50},
			{ID: "C", Name: "Gamma", CensusCount: 10},
		},
	}
}

func TestCompute_PerRegion(t *testing.T) {
	alloc := domain.Allocation{Target: 300, Amounts: map[string]float64{"A": 200, "B": 60, "C": 40}}

	report := Compute(sampleDataset(), alloc)
	require.Len(t, report.Regions, 3)

	a := report.Regions[0]
	assert.Equal(t, "A", a.RegionID)
	assert.Equal(t, 2, a.Customers)
	assert.InDelta(t, 130, a.CurrentPremium, 1e-9)
	assert.InDelta(t, 65, a.AvgCurrentPremium, 1e-9)
	assert.InDelta(t, 330, a.NewPremium, 1e-9)
	assert.InDelta(t, 165, a.AvgNewPremium, 1e-9)
	assert.InDelta(t, 40, a.ExpectedLoss, 1e-9)
	assert.InDelta(t, 290, a.Profit, 1e-9)
	assert.InDelta(t, 290.0/330.0*100, a.ProfitMargin, 1e-9)

	b := report.Regions[1]
	assert.InDelta(t, 100, b.NewPremium, 1e-9)
	assert.InDelta(t, 25, b.ExpectedLoss, 1e-9)
	assert.InDelta(t, 75, b.Profit, 1e-9)
}

func TestCompute_ZeroCustomerRegionListed(t *testing.T) {
	alloc := domain.Allocation{Target: 300, Amounts: map[string]float64{"A": 200, "B": 60, "C": 40}}

	report := Compute(sampleDataset(), alloc)

	c := report.Regions[2]
	assert.Equal(t, "C", c.RegionID)
	assert.Equal(t, 0, c.Customers)
	assert.Equal(t, 0.0, c.AvgCurrentPremium)
	assert.Equal(t, 0.0, c.AvgNewPremium)
	assert.InDelta(t, 40, c.NewPremium, 1e-9)
	assert.InDelta(t, 100, c.ProfitMargin, 1e-9)
}

func TestCompute_Portfolio(t *testing.T) {
	alloc := domain.Allocation{Target: 300, Amounts: map[string]float64{"A": 200, "B": 60, "C": 40}}

	p := Compute(sampleDataset(), alloc).Portfolio
	assert.True(t, p.Valid)
	assert.Equal(t, 3, p.Customers)
	assert.InDelta(t, 170, p.TotalCurrentPremium, 1e-9)
	assert.InDelta(t, 470, p.TotalNewPremium, 1e-9)
	assert.InDelta(t, 65, p.TotalExpectedLoss, 1e-9)
	assert.InDelta(t, 405, p.TotalProfit, 1e-9)
	assert.InDelta(t, 405.0/470.0*100, p.TotalProfitMargin, 1e-9)
	assert.InDelta(t, 300, p.PremiumIncrease, 1e-9)
	assert.InDelta(t, 300.0/170.0*100, p.PremiumIncreasePct, 1e-9)
	// region C has no customers, so its 40 does not reach the customer-weighted average
	assert.InDelta(t, (330.0+100)/3, p.AvgNewPremium, 1e-9)
}

func TestCompute_ZeroDenominators(t *testing.T) {
	ds := &domain.Dataset{
		Customers: []domain.Customer{{RegionID: "A"}},
		Regions:   []domain.Region{{ID: "A"}},
	}

	report := Compute(ds, domain.Allocation{Target: 0, Amounts: map[string]float64{"A": 0}})
	assert.Equal(t, 0.0, report.Regions[0].ProfitMargin)
	assert.Equal(t, 0.0, report.Portfolio.TotalProfitMargin)
	assert.Equal(t, 0.0, report.Portfolio.PremiumIncreasePct)
	assert.Empty(t, report.Warnings)
}

func TestCompute_ReportsMismatchAndOrphans(t *testing.T) {
	ds := sampleDataset()
	ds.Customers = append(ds.Customers, domain.Customer{RegionID: "Z", CurrentPremium: 10})

	report := Compute(ds, domain.Allocation{Target: 300, Amounts: map[string]float64{"A": 100}})
	require.Len(t, report.Warnings, 2)
	assert.Equal(t, domain.WarningAllocationMismatch, report.Warnings[0].Kind)
	assert.Equal(t, domain.CodeCustomerNoRegion, report.Warnings[1].Code)
	assert.Equal(t, "Z", report.Warnings[1].RegionID)
	assert.False(t, report.Portfolio.Valid)
}

func TestCompute_IsPure(t *testing.T) {
	ds := sampleDataset()
	alloc := domain.Allocation{Target: 300, Amounts: map[string]float64{"A": 150, "B": 150}}

	first := Compute(ds, alloc)
	second := Compute(ds, alloc)
	assert.Equal(t, first, second)
	assert.Equal(t, sampleDataset(), ds)
}
