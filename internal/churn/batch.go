package churn

import (
	"context"
	"fmt"
	"runtime"

	"github.com/andresuchdata/premium-allocation/internal/domain"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// MaxBatchRuns bounds a single batch request.
const MaxBatchRuns = 500

// RunBatch runs one simulation per seed on a bounded worker pool. Each run
// owns its generator, so the results match sequential Simulate calls and are
// returned in seed order.
func RunBatch(ctx context.Context, ds *domain.Dataset, alloc domain.Allocation, params domain.ChurnParams, seeds []uint64, workers int) (domain.BatchResult, error) {
	if len(seeds) == 0 {
		return domain.BatchResult{}, fmt.Errorf("%w: at least one seed is required", domain.ErrInvalidInput)
	}
	if len(seeds) > MaxBatchRuns {
		return domain.BatchResult{}, fmt.Errorf("%w: at most %d runs per batch, got %d", domain.ErrInvalidInput, MaxBatchRuns, len(seeds))
	}
	if err := Validate(params); err != nil {
		return domain.BatchResult{}, err
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	runs := make([]domain.PortfolioOutcome, len(seeds))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, seed := range seeds {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := Simulate(ds, alloc, params, seed)
			if err != nil {
				return fmt.Errorf("seed %d: %w", seed, err)
			}
			runs[i] = res.Portfolio
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.BatchResult{}, err
	}

	stay := make([]float64, len(runs))
	profit := make([]float64, len(runs))
	for i, r := range runs {
		stay[i] = r.StayRate
		profit[i] = r.RealizedProfit
	}

	return domain.BatchResult{
		Params:         params,
		Runs:           runs,
		StayRate:       summarize(stay),
		RealizedProfit: summarize(profit),
	}, nil
}

// Seeds returns n consecutive seeds starting at base.
func Seeds(base uint64, n int) []uint64 {
	if n <= 0 {
		return nil
	}
	seeds := make([]uint64, n)
	for i := range seeds {
		seeds[i] = base + uint64(i)
	}
	return seeds
}

func summarize(xs []float64) domain.BatchStat {
	mean, std := stat.MeanStdDev(xs, nil)
	if len(xs) < 2 {
		std = 0
	}
	return domain.BatchStat{
		Mean:   mean,
		StdDev: std,
		Min:    floats.Min(xs),
		Max:    floats.Max(xs),
	}
}
