package allocation

import (
	"fmt"
	"math"

	"github.com/andresuchdata/premium-allocation/internal/domain"
	"gonum.org/v1/gonum/floats"
)

// Result is an allocation together with the warnings raised while computing it
type Result struct {
	Allocation domain.Allocation
	Warnings   []domain.Warning
}

// Option tunes a single Allocate call
type Option func(*options)

type options struct {
	previous *domain.Allocation
}

// WithPrevious supplies the allocation that manual mode starts from.
func WithPrevious(prev domain.Allocation) Option {
	return func(o *options) {
		p := prev.Clone()
		o.previous = &p
	}
}

// Allocate distributes target across the dataset's regions according to policy.
// The result is deterministic for identical inputs.
func Allocate(policy domain.Policy, target float64, ds *domain.Dataset, opts ...Option) (Result, error) {
	if err := ValidateTarget(target); err != nil {
		return Result{}, err
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	regionIDs := ds.RegionIDs()

	switch policy {
	case domain.PolicyEqual:
		return equal(target, regionIDs), nil
	case domain.PolicyExposure, domain.PolicyRisk:
		return proportional(policy, target, regionIDs, Weights(policy, ds)), nil
	case domain.PolicyManual:
		return manual(target, regionIDs, o.previous), nil
	default:
		return Result{}, fmt.Errorf("%w: unknown allocation policy %q", domain.ErrInvalidInput, policy)
	}
}

// ValidateTarget rejects negative and non-finite targets.
func ValidateTarget(target float64) error {
	if math.IsNaN(target) || math.IsInf(target, 0) {
		return fmt.Errorf("%w: target must be a finite number", domain.ErrInvalidInput)
	}
	if target < 0 {
		return fmt.Errorf("%w: target must be >= 0, got %.2f", domain.ErrInvalidInput, target)
	}
	return nil
}

// Weights returns the per-region weight used by the proportional policies.
// Regions without customers have weight 0. Equal and manual policies have no weights.
func Weights(policy domain.Policy, ds *domain.Dataset) map[string]float64 {
	weights := make(map[string]float64, len(ds.Regions))
	for _, r := range ds.Regions {
		weights[r.ID] = 0
	}

	for _, c := range ds.Customers {
		if _, known := weights[c.RegionID]; !known {
			continue
		}
		switch policy {
		case domain.PolicyExposure:
			weights[c.RegionID] += c.InsuredValue
		case domain.PolicyRisk:
			weights[c.RegionID] += c.ExpectedLoss()
		}
	}
	return weights
}

func equal(target float64, regionIDs []string) Result {
	alloc := domain.NewAllocation(target, regionIDs)
	if len(regionIDs) == 0 {
		return Result{
			Allocation: alloc,
			Warnings: []domain.Warning{
				domain.DataWarning(domain.CodeAllocationNoRegions, "", "no regions available to allocate %.2f", target),
			},
		}
	}

	share := target / float64(len(regionIDs))
	for _, id := range regionIDs {
		alloc.Amounts[id] = share
	}
	return Result{Allocation: alloc}
}

func proportional(policy domain.Policy, target float64, regionIDs []string, weights map[string]float64) Result {
	alloc := domain.NewAllocation(target, regionIDs)

	values := make([]float64, len(regionIDs))
	for i, id := range regionIDs {
		values[i] = weights[id]
	}
	total := floats.Sum(values)

	if total <= 0 {
		return Result{
			Allocation: alloc,
			Warnings: []domain.Warning{
				domain.DataWarning(domain.CodeZeroTotalWeight, "",
					"total %s weight is zero; allocation left at zero for every region", policy.Label()),
			},
		}
	}

	for i, id := range regionIDs {
		alloc.Amounts[id] = target * values[i] / total
	}
	return Result{Allocation: alloc}
}

func manual(target float64, regionIDs []string, previous *domain.Allocation) Result {
	alloc := domain.NewAllocation(target, regionIDs)
	if previous != nil {
		for _, id := range regionIDs {
			alloc.Amounts[id] = previous.Amounts[id]
		}
	}

	var warnings []domain.Warning
	if !alloc.Valid() {
		warnings = append(warnings, domain.MismatchWarning(alloc))
	}
	return Result{Allocation: alloc, Warnings: warnings}
}
