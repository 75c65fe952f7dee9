package metrics

import (
	"sort"

	"github.com/andresuchdata/premium-allocation/internal/allocation"
	"github.com/andresuchdata/premium-allocation/internal/domain"
)

// regionTotals accumulates customer-level figures per region
type regionTotals struct {
	customers      int
	currentPremium float64
	expectedLoss   float64
	insuredValue   float64
	lossProbSum    float64
}

func totalsByRegion(customers []domain.Customer) map[string]*regionTotals {
	totals := make(map[string]*regionTotals)
	for _, c := range customers {
		t, ok := totals[c.RegionID]
		if !ok {
			t = &regionTotals{}
			totals[c.RegionID] = t
		}
		t.customers++
		t.currentPremium += c.CurrentPremium
		t.expectedLoss += c.ExpectedLoss()
		t.insuredValue += c.InsuredValue
		t.lossProbSum += c.LossProbability
	}
	return totals
}

// Compute derives per-region and portfolio metrics for an allocation.
// It is a pure function of its inputs.
func Compute(ds *domain.Dataset, alloc domain.Allocation) domain.MetricsReport {
	totals := totalsByRegion(ds.Customers)

	regions := make([]domain.RegionMetrics, 0, len(ds.Regions))
	var (
		portfolio         = domain.PortfolioMetrics{Target: alloc.Target, Allocated: alloc.Total(), Valid: alloc.Valid()}
		weightedNewAvgSum float64
		weightedCurAvgSum float64
	)

	for _, r := range ds.Regions {
		t := totals[r.ID]
		if t == nil {
			t = &regionTotals{}
		}
		amount := alloc.Amount(r.ID)

		m := domain.RegionMetrics{
			RegionID:       r.ID,
			Name:           r.Name,
			Customers:      t.customers,
			Allocation:     amount,
			CurrentPremium: t.currentPremium,
			NewPremium:     t.currentPremium + amount,
			ExpectedLoss:   t.expectedLoss,
		}
		if t.customers > 0 {
			m.AvgCurrentPremium = t.currentPremium / float64(t.customers)
			m.AvgNewPremium = m.AvgCurrentPremium + amount/float64(t.customers)

			weightedCurAvgSum += m.AvgCurrentPremium * float64(t.customers)
			weightedNewAvgSum += m.AvgNewPremium * float64(t.customers)
		}
		m.Profit = m.NewPremium - m.ExpectedLoss
		m.ProfitMargin = percentOf(m.Profit, m.NewPremium)

		portfolio.Customers += t.customers
		portfolio.TotalCurrentPremium += m.CurrentPremium
		portfolio.TotalNewPremium += m.NewPremium
		portfolio.TotalExpectedLoss += m.ExpectedLoss

		regions = append(regions, m)
	}

	portfolio.TotalProfit = portfolio.TotalNewPremium - portfolio.TotalExpectedLoss
	portfolio.TotalProfitMargin = percentOf(portfolio.TotalProfit, portfolio.TotalNewPremium)
	portfolio.PremiumIncrease = portfolio.TotalNewPremium - portfolio.TotalCurrentPremium
	portfolio.PremiumIncreasePct = percentOf(portfolio.PremiumIncrease, portfolio.TotalCurrentPremium)
	if portfolio.Customers > 0 {
		portfolio.AvgCurrentPremium = weightedCurAvgSum / float64(portfolio.Customers)
		portfolio.AvgNewPremium = weightedNewAvgSum / float64(portfolio.Customers)
	}

	warnings := make([]domain.Warning, 0)
	warnings = append(warnings, allocation.Check(alloc)...)
	for _, id := range orphanRegions(ds, totals) {
		warnings = append(warnings, domain.DataWarning(domain.CodeCustomerNoRegion, id,
			"%d customers reference a region missing from the region table and are excluded", totals[id].customers))
	}

	return domain.MetricsReport{
		Regions:   regions,
		Portfolio: portfolio,
		Warnings:  warnings,
	}
}

// orphanRegions lists customer region ids that have no row in the region table, sorted.
func orphanRegions(ds *domain.Dataset, totals map[string]*regionTotals) []string {
	known := make(map[string]struct{}, len(ds.Regions))
	for _, r := range ds.Regions {
		known[r.ID] = struct{}{}
	}
	var orphans []string
	for id := range totals {
		if _, ok := known[id]; !ok {
			orphans = append(orphans, id)
		}
	}
	sort.Strings(orphans)
	return orphans
}

// percentOf returns part/whole*100, or 0 when whole is not positive.
func percentOf(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	return part / whole * 100
}
