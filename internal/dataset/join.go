package dataset

import (
	"sort"

	"github.com/andresuchdata/premium-allocation/internal/domain"
)

// Tables holds the four parsed raw tables before joining
type Tables struct {
	Customers []domain.Customer
	Geography []GeographyRow
	Exposure  []ExposureRow
	Income    []IncomeRow
	// Warnings collected while parsing
	Warnings []domain.Warning
}

// Join left-joins geography with exposure and income on the region id and
// attaches the customers. When regionCodes is non-empty only those regions
// are kept. Customers are never dropped; orphans are reported.
func Join(tables *Tables, regionCodes []string) (*domain.Dataset, []domain.Warning) {
	warnings := append([]domain.Warning(nil), tables.Warnings...)

	keep := make(map[string]struct{}, len(regionCodes))
	for _, code := range regionCodes {
		keep[NormalizeRegionID(code)] = struct{}{}
	}

	census := make(map[string]int64)
	for _, e := range tables.Exposure {
		census[e.RegionID] += e.CensusCount
	}

	type incomeAcc struct {
		sum   float64
		n     int
		rowed bool
	}
	incomes := make(map[string]*incomeAcc)
	for _, in := range tables.Income {
		acc, ok := incomes[in.RegionID]
		if !ok {
			acc = &incomeAcc{}
			incomes[in.RegionID] = acc
		}
		acc.rowed = true
		if in.Known {
			acc.sum += in.MedianIncome
			acc.n++
		}
	}

	seen := make(map[string]struct{}, len(tables.Geography))
	regions := make([]domain.Region, 0, len(tables.Geography))
	for _, g := range tables.Geography {
		if len(keep) > 0 {
			if _, ok := keep[g.RegionID]; !ok {
				continue
			}
		}
		if _, dup := seen[g.RegionID]; dup {
			continue
		}
		seen[g.RegionID] = struct{}{}

		r := domain.Region{ID: g.RegionID, Name: g.Name, CensusCount: census[g.RegionID]}
		if len(g.Geometry) > 0 {
			r.Geometry = append([]byte(nil), g.Geometry...)
		}
		if acc := incomes[g.RegionID]; acc != nil && acc.n > 0 {
			r.MedianIncome = acc.sum / float64(acc.n)
			r.HasMedianIncome = true
		}
		regions = append(regions, r)
	}
	sort.Slice(regions, func(i, j int) bool { return regions[i].ID < regions[j].ID })

	ds := &domain.Dataset{
		Customers: append([]domain.Customer(nil), tables.Customers...),
		Regions:   regions,
	}

	counts := ds.CustomerCounts()
	for _, r := range regions {
		if counts[r.ID] == 0 {
			warnings = append(warnings, domain.DataWarning(domain.CodeRegionNoCustomers, r.ID,
				"region %s has no customers", r.Name))
		}
		if !r.HasMedianIncome {
			msg := "region %s has no income row"
			if acc := incomes[r.ID]; acc != nil && acc.rowed {
				msg = "region %s has an empty median income"
			}
			warnings = append(warnings, domain.DataWarning(domain.CodeRegionNoIncome, r.ID, msg, r.Name))
		}
	}

	orphans := make([]string, 0)
	for id := range counts {
		if _, ok := seen[id]; !ok {
			orphans = append(orphans, id)
		}
	}
	sort.Strings(orphans)
	for _, id := range orphans {
		warnings = append(warnings, domain.DataWarning(domain.CodeCustomerNoRegion, id,
			"%d customers reference region %s which is absent from the region table", counts[id], id))
	}

	return ds, warnings
}
