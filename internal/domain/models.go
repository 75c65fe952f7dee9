// internal/domain/models.go
package domain

import (
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"hash"
	"math"
	"sort"
)

// AllocationTolerance is the absolute difference between the allocated total
// and the target under which an allocation is considered valid.
const AllocationTolerance = 0.01

// Customer represents a single policyholder
type Customer struct {
	RegionID        string  `json:"region_id" db:"region_id"`
	InsuredValue    float64 `json:"insured_value" db:"insured_value"`
	LossProbability float64 `json:"loss_probability" db:"loss_probability"`
	CurrentPremium  float64 `json:"current_premium" db:"current_premium"`
}

// ExpectedLoss returns insured value times claim probability
func (c Customer) ExpectedLoss() float64 {
	return c.InsuredValue * c.LossProbability
}

// Region represents one geographic unit (arrondissement)
type Region struct {
	ID              string          `json:"region_id" db:"region_id"`
	Name            string          `json:"name" db:"name"`
	MedianIncome    float64         `json:"median_income" db:"median_income"`
	HasMedianIncome bool            `json:"has_median_income" db:"-"`
	CensusCount     int64           `json:"census_count" db:"census_count"`
	Geometry        json.RawMessage `json:"geometry,omitempty" db:"-"`
}

// Dataset is the joined, read-only view of customers and regions
type Dataset struct {
	Customers []Customer `json:"customers"`
	Regions   []Region   `json:"regions"`
}

// RegionIDs returns the region identifiers in region order.
func (d *Dataset) RegionIDs() []string {
	ids := make([]string, len(d.Regions))
	for i, r := range d.Regions {
		ids[i] = r.ID
	}
	return ids
}

// Region looks up a region by id.
func (d *Dataset) Region(id string) (Region, bool) {
	idx := sort.Search(len(d.Regions), func(i int) bool { return d.Regions[i].ID >= id })
	if idx < len(d.Regions) && d.Regions[idx].ID == id {
		return d.Regions[idx], true
	}
	// regions are normally sorted, but fall back to a scan for hand-built datasets
	for _, r := range d.Regions {
		if r.ID == id {
			return r, true
		}
	}
	return Region{}, false
}

// CustomersByRegion groups customers by region id, keeping dataset order.
func (d *Dataset) CustomersByRegion() map[string][]Customer {
	groups := make(map[string][]Customer, len(d.Regions))
	for _, c := range d.Customers {
		groups[c.RegionID] = append(groups[c.RegionID], c)
	}
	return groups
}

// CustomerCounts returns the number of customers per region id.
func (d *Dataset) CustomerCounts() map[string]int {
	counts := make(map[string]int, len(d.Regions))
	for _, c := range d.Customers {
		counts[c.RegionID]++
	}
	return counts
}

// Fingerprint hashes every input a simulation reads: customers in row
// order, then each region's id, name and median income.
func (d *Dataset) Fingerprint() string {
	h := sha1.New()
	for _, c := range d.Customers {
		writeField(h, c.RegionID)
		writeFloat(h, c.InsuredValue)
		writeFloat(h, c.LossProbability)
		writeFloat(h, c.CurrentPremium)
	}
	for _, r := range d.Regions {
		writeField(h, r.ID)
		writeField(h, r.Name)
		writeFloat(h, r.MedianIncome)
		if r.HasMedianIncome {
			h.Write([]byte{1})
		} else {
			h.Write([]byte{0})
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

func writeField(h hash.Hash, s string) {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(s)))
	h.Write(n[:])
	h.Write([]byte(s))
}

func writeFloat(h hash.Hash, v float64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], math.Float64bits(v))
	h.Write(b[:])
}

// Allocation maps region ids to the amount of the target assigned to them
type Allocation struct {
	Target  float64            `json:"target"`
	Amounts map[string]float64 `json:"amounts"`
}

// NewAllocation returns a zero allocation over the given regions.
func NewAllocation(target float64, regionIDs []string) Allocation {
	amounts := make(map[string]float64, len(regionIDs))
	for _, id := range regionIDs {
		amounts[id] = 0
	}
	return Allocation{Target: target, Amounts: amounts}
}

// Amount returns the amount allocated to a region, 0 when absent.
func (a Allocation) Amount(regionID string) float64 {
	return a.Amounts[regionID]
}

// Total sums the allocated amounts in a stable order.
func (a Allocation) Total() float64 {
	keys := make([]string, 0, len(a.Amounts))
	for k := range a.Amounts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	total := 0.0
	for _, k := range keys {
		total += a.Amounts[k]
	}
	return total
}

// Difference is target minus allocated total.
func (a Allocation) Difference() float64 {
	return a.Target - a.Total()
}

// Valid reports whether the allocated total matches the target within tolerance.
func (a Allocation) Valid() bool {
	return math.Abs(a.Difference()) <= AllocationTolerance
}

// Clone returns a deep copy so sessions never share the same map.
func (a Allocation) Clone() Allocation {
	amounts := make(map[string]float64, len(a.Amounts))
	for k, v := range a.Amounts {
		amounts[k] = v
	}
	return Allocation{Target: a.Target, Amounts: amounts}
}

// AllocationEdit is a single manual (region, amount) entry
type AllocationEdit struct {
	RegionID string  `json:"region_id" binding:"required"`
	Amount   float64 `json:"amount"`
}

// AllocationView is the allocation as returned to presentation collaborators
type AllocationView struct {
	Policy     Policy             `json:"policy"`
	Target     float64            `json:"target"`
	Amounts    map[string]float64 `json:"amounts"`
	Total      float64            `json:"total"`
	Difference float64            `json:"difference"`
	Valid      bool               `json:"valid"`
	Warnings   []Warning          `json:"warnings"`
}

// NewAllocationView builds the outward view of an allocation.
func NewAllocationView(policy Policy, a Allocation, warnings []Warning) AllocationView {
	if warnings == nil {
		warnings = make([]Warning, 0)
	}
	return AllocationView{
		Policy:     policy,
		Target:     a.Target,
		Amounts:    a.Clone().Amounts,
		Total:      a.Total(),
		Difference: a.Difference(),
		Valid:      a.Valid(),
		Warnings:   warnings,
	}
}
