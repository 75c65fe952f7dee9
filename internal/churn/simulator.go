package churn

import (
	"math/rand/v2"
	"sort"

	"github.com/andresuchdata/premium-allocation/internal/domain"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// pcgStream is the fixed second PCG word; only the seed varies between runs.
const pcgStream = 0x9e3779b97f4a7c15

// NewDrawer returns a uniform [0,1) generator owned by a single run.
func NewDrawer(seed uint64) distuv.Uniform {
	return distuv.Uniform{Min: 0, Max: 1, Src: rand.NewPCG(seed, pcgStream)}
}

// incomeReference resolves the income used as burden denominator per region
type incomeReference struct {
	byRegion  map[string]float64
	fallback  float64
	fallbacks map[string]struct{}
}

func newIncomeReference(regions []domain.Region) incomeReference {
	known := make([]float64, 0, len(regions))
	for _, r := range regions {
		if r.HasMedianIncome {
			known = append(known, r.MedianIncome)
		}
	}

	ref := incomeReference{
		byRegion:  make(map[string]float64, len(regions)),
		fallbacks: make(map[string]struct{}),
	}
	if len(known) > 0 {
		ref.fallback = stat.Mean(known, nil)
	}
	for _, r := range regions {
		ref.byRegion[r.ID] = r.MedianIncome
	}
	return ref
}

// resolve returns the reference income and the region's own income.
func (ref incomeReference) resolve(regionID string) (float64, float64) {
	income, ok := ref.byRegion[regionID]
	if ok && income > 0 {
		return income, income
	}
	ref.fallbacks[regionID] = struct{}{}
	return ref.fallback, income
}

// Simulate runs one seeded churn simulation. The generator is created here,
// seeded once, and consumed in dataset customer order, so identical inputs
// and seed give identical outcomes.
func Simulate(ds *domain.Dataset, alloc domain.Allocation, params domain.ChurnParams, seed uint64) (domain.SimulationResult, error) {
	if err := Validate(params); err != nil {
		return domain.SimulationResult{}, err
	}

	counts := ds.CustomerCounts()
	shares := make(map[string]float64, len(counts))
	for id, n := range counts {
		if n > 0 {
			shares[id] = alloc.Amount(id) / float64(n)
		}
	}

	incomes := newIncomeReference(ds.Regions)
	drawer := NewDrawer(seed)

	outcomes := make([]domain.CustomerOutcome, len(ds.Customers))
	for i, c := range ds.Customers {
		share := shares[c.RegionID]
		newPremium := c.CurrentPremium + share

		refIncome, regionIncome := incomes.resolve(c.RegionID)
		burden := ComputeBurden(params, newPremium, refIncome, regionIncome, c.InsuredValue)
		prob := Probability(params, burden)
		draw := drawer.Rand()

		outcomes[i] = domain.CustomerOutcome{
			Index:            i,
			RegionID:         c.RegionID,
			AllocationShare:  share,
			NewPremium:       newPremium,
			IncomeRatio:      burden.IncomeRatio,
			ValueRatio:       burden.ValueRatio,
			ChurnProbability: prob,
			Draw:             draw,
			Stayed:           draw > prob,
		}
	}

	regions, portfolio := aggregate(ds, outcomes)
	portfolio.Seed = seed

	return domain.SimulationResult{
		Params:    params,
		Customers: outcomes,
		Regions:   regions,
		Portfolio: portfolio,
		Warnings:  simulationWarnings(ds, alloc, counts, incomes),
	}, nil
}

func aggregate(ds *domain.Dataset, outcomes []domain.CustomerOutcome) ([]domain.RegionShift, domain.PortfolioOutcome) {
	type tally struct{ original, staying int }
	tallies := make(map[string]*tally)
	var portfolio domain.PortfolioOutcome

	for i, o := range outcomes {
		t, ok := tallies[o.RegionID]
		if !ok {
			t = &tally{}
			tallies[o.RegionID] = t
		}
		t.original++
		portfolio.Customers++
		if o.Stayed {
			t.staying++
			portfolio.Staying++
			portfolio.PremiumCollected += o.NewPremium
			portfolio.ExpectedLossRemaining += ds.Customers[i].ExpectedLoss()
		}
	}
	portfolio.RealizedProfit = portfolio.PremiumCollected - portfolio.ExpectedLossRemaining
	if portfolio.Customers > 0 {
		portfolio.StayRate = float64(portfolio.Staying) / float64(portfolio.Customers) * 100
		portfolio.ChurnRate = 100 - portfolio.StayRate
	}

	// listed regions first, then customer regions missing from the region table
	order := make([]domain.RegionShift, 0, len(ds.Regions))
	listed := make(map[string]struct{}, len(ds.Regions))
	for _, r := range ds.Regions {
		listed[r.ID] = struct{}{}
		order = append(order, domain.RegionShift{RegionID: r.ID, Name: r.Name})
	}
	var orphans []string
	for id := range tallies {
		if _, ok := listed[id]; !ok {
			orphans = append(orphans, id)
		}
	}
	sort.Strings(orphans)
	for _, id := range orphans {
		order = append(order, domain.RegionShift{RegionID: id})
	}

	for i := range order {
		s := &order[i]
		if t := tallies[s.RegionID]; t != nil {
			s.Original = t.original
			s.Staying = t.staying
		}
		s.Churned = s.Original - s.Staying
		s.StayRate = percent(s.Staying, s.Original)
		s.OldShare = percent(s.Original, portfolio.Customers)
		s.NewShare = percent(s.Staying, portfolio.Staying)
		s.ShareDelta = s.NewShare - s.OldShare
	}
	return order, portfolio
}

func simulationWarnings(ds *domain.Dataset, alloc domain.Allocation, counts map[string]int, incomes incomeReference) []domain.Warning {
	warnings := make([]domain.Warning, 0)
	if !alloc.Valid() {
		warnings = append(warnings, domain.MismatchWarning(alloc))
	}

	ids := make([]string, 0, len(incomes.fallbacks))
	for id := range incomes.fallbacks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if _, known := ds.Region(id); !known {
			warnings = append(warnings, domain.DataWarning(domain.CodeCustomerNoRegion, id,
				"%d customers reference a region missing from the region table; portfolio mean income used", counts[id]))
			continue
		}
		warnings = append(warnings, domain.DataWarning(domain.CodeIncomeFallbackUsed, id,
			"median income missing or zero; portfolio mean income %.2f used", incomes.fallback))
	}
	return warnings
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}
