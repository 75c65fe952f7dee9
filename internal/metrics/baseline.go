package metrics

import (
	"sort"

	"github.com/andresuchdata/premium-allocation/internal/domain"
)

// Baseline summarizes the portfolio before any allocation is applied.
func Baseline(ds *domain.Dataset) domain.PortfolioSummary {
	totals := totalsByRegion(ds.Customers)

	summary := domain.PortfolioSummary{
		Customers: len(ds.Customers),
		Regions:   make([]domain.RegionOverview, 0, len(ds.Regions)),
	}

	var lossProbSum float64
	for _, c := range ds.Customers {
		summary.TotalInsuredValue += c.InsuredValue
		summary.TotalPremium += c.CurrentPremium
		summary.TotalExpectedLoss += c.ExpectedLoss()
		lossProbSum += c.LossProbability
	}
	if summary.Customers > 0 {
		n := float64(summary.Customers)
		summary.AvgInsuredValue = summary.TotalInsuredValue / n
		summary.AvgPremium = summary.TotalPremium / n
		summary.AvgLossProbability = lossProbSum / n
	}
	summary.CurrentProfit = summary.TotalPremium - summary.TotalExpectedLoss

	for _, r := range ds.Regions {
		summary.TotalCensus += r.CensusCount

		overview := domain.RegionOverview{
			RegionID:        r.ID,
			Name:            r.Name,
			MedianIncome:    r.MedianIncome,
			HasMedianIncome: r.HasMedianIncome,
			CensusCount:     r.CensusCount,
		}
		if t := totals[r.ID]; t != nil {
			overview.Customers = t.customers
			overview.TotalInsured = t.insuredValue
			overview.TotalPremium = t.currentPremium
			overview.ExpectedLoss = t.expectedLoss
			overview.AvgInsured = t.insuredValue / float64(t.customers)
			overview.AvgPremium = t.currentPremium / float64(t.customers)
		}
		summary.Regions = append(summary.Regions, overview)
	}

	summary.Distribution = Distribution(summary.Regions)
	return summary
}

// Distribution orders region overviews by customer count, largest first.
// Ties are broken by region id.
func Distribution(regions []domain.RegionOverview) []domain.RegionOverview {
	out := make([]domain.RegionOverview, len(regions))
	copy(out, regions)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Customers != out[j].Customers {
			return out[i].Customers > out[j].Customers
		}
		return out[i].RegionID < out[j].RegionID
	})
	return out
}
