package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseline(t *testing.T) {
	s := Baseline(sampleDataset())

	assert.Equal(t, 3, s.Customers)
	assert.InDelta(t, 3500, s.TotalInsuredValue, 1e-9)
	assert.InDelta(t, 3500.0/3, s.AvgInsuredValue, 1e-9)
	assert.InDelta(t, 170, s.TotalPremium, 1e-9)
	assert.InDelta(t, 65, s.TotalExpectedLoss, 1e-9)
	assert.InDelta(t, 105, s.CurrentProfit, 1e-9)
	assert.InDelta(t, 0.08/3, s.AvgLossProbability, 1e-9)
	assert.Equal(t, int64(160), s.TotalCensus)

	require.Len(t, s.Regions, 3)
	assert.Equal(t, "A", s.Regions[0].RegionID)
	assert.InDelta(t, 1500, s.Regions[0].AvgInsured, 1e-9)
	assert.Equal(t, 0, s.Regions[2].Customers)
	assert.Equal(t, 0.0, s.Regions[2].AvgPremium)
}

func TestDistribution_SortsByCustomers(t *testing.T) {
	s := Baseline(sampleDataset())

	ids := make([]string, 0, len(s.Distribution))
	for _, r := range s.Distribution {
		ids = append(ids, r.RegionID)
	}
	assert.Equal(t, []string{"A", "B", "C"}, ids)
	assert.Equal(t, "A", s.Regions[0].RegionID, "region order is left untouched")
}
