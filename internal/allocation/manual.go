package allocation

import (
	"fmt"
	"math"

	"github.com/andresuchdata/premium-allocation/internal/domain"
)

// ApplyEdits overwrites the amounts of the edited regions and returns the new allocation.
// The batch is all-or-nothing: a single invalid edit leaves the input untouched.
func ApplyEdits(current domain.Allocation, edits []domain.AllocationEdit) (domain.Allocation, error) {
	for _, e := range edits {
		if _, ok := current.Amounts[e.RegionID]; !ok {
			return current, fmt.Errorf("%w: unknown region %q", domain.ErrInvalidInput, e.RegionID)
		}
		if math.IsNaN(e.Amount) || math.IsInf(e.Amount, 0) {
			return current, fmt.Errorf("%w: amount for region %s must be finite", domain.ErrInvalidInput, e.RegionID)
		}
		if e.Amount < 0 {
			return current, fmt.Errorf("%w: amount for region %s must be >= 0, got %.2f", domain.ErrInvalidInput, e.RegionID, e.Amount)
		}
	}

	next := current.Clone()
	for _, e := range edits {
		next.Amounts[e.RegionID] = e.Amount
	}
	return next, nil
}

// Check returns the mismatch warning for an allocation that misses its target.
func Check(a domain.Allocation) []domain.Warning {
	if a.Valid() {
		return nil
	}
	return []domain.Warning{domain.MismatchWarning(a)}
}
