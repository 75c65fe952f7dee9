package service

import (
	"context"
	"errors"
	"testing"

	"github.com/andresuchdata/premium-allocation/internal/cache"
	"github.com/andresuchdata/premium-allocation/internal/churn"
	"github.com/andresuchdata/premium-allocation/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDataset() *domain.Dataset {
	ds := &domain.Dataset{
		Regions: []domain.Region{
			{ID: "75101", Name: "Paris 1er", MedianIncome: 30000, HasMedianIncome: true},
			{ID: "75102", Name: "Paris 2e", MedianIncome: 27000, HasMedianIncome: true},
		},
	}
	for i := 0; i < 20; i++ {
		region := "75101"
		if i%2 == 1 {
			region = "75102"
		}
		ds.Customers = append(ds.Customers, domain.Customer{
			RegionID:        region,
			InsuredValue:    float64(10000 + 1000*i),
			LossProbability: 0.02,
			CurrentPremium:  300,
		})
	}
	return ds
}

type countingCache struct {
	cache.SimulationCache
	runs     map[string]*domain.SimulationResult
	getCalls int
	failGets bool
}

func newCountingCache() *countingCache {
	return &countingCache{SimulationCache: cache.NewNoopSimulationCache(), runs: map[string]*domain.SimulationResult{}}
}

func (c *countingCache) GetRun(_ context.Context, key cache.SimulationKey) (*domain.SimulationResult, bool, error) {
	c.getCalls++
	if c.failGets {
		return nil, false, errors.New("redis down")
	}
	r, ok := c.runs[cache.BuildKey("run", key)]
	return r, ok, nil
}

func (c *countingCache) SetRun(_ context.Context, key cache.SimulationKey, result *domain.SimulationResult) error {
	c.runs[cache.BuildKey("run", key)] = result
	return nil
}

func newService(c cache.SimulationCache) *PremiumService {
	return NewPremiumService(testDataset(), nil, nil, c, Defaults{
		Target:       1000,
		Seed:         churn.DefaultSeed,
		Params:       churn.DefaultParams(),
		BatchWorkers: 2,
	})
}

func TestSummary(t *testing.T) {
	svc := newService(nil)
	overview := svc.Summary(context.Background())

	assert.Equal(t, 20, overview.Summary.Customers)
	assert.Equal(t, 1000.0, overview.Target)
	assert.Len(t, overview.Policies, 4)
	assert.NotNil(t, overview.Warnings)
	assert.Len(t, svc.Regions(context.Background()), 2)
}

func TestSessionFlow(t *testing.T) {
	ctx := context.Background()
	svc := newService(nil)

	sess, err := svc.CreateSession(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, sess.Target)

	view, err := svc.ApplyPolicy(ctx, sess.ID, "Equal Distribution")
	require.NoError(t, err)
	assert.Equal(t, domain.PolicyEqual, view.Policy)
	assert.True(t, view.Valid)
	assert.InDelta(t, 500, view.Amounts["75101"], 1e-9)

	view, err = svc.EditAllocation(ctx, sess.ID, []domain.AllocationEdit{{RegionID: "75101", Amount: 700}})
	require.NoError(t, err)
	assert.Equal(t, domain.PolicyManual, view.Policy)
	assert.False(t, view.Valid)
	require.Len(t, view.Warnings, 1)

	report, err := svc.Metrics(ctx, sess.ID)
	require.NoError(t, err)
	assert.False(t, report.Portfolio.Valid)
	assert.InDelta(t, 1200, report.Portfolio.PremiumIncrease, 1e-9)

	view, err = svc.SetTarget(ctx, sess.ID, 1200)
	require.NoError(t, err)
	assert.True(t, view.Valid)
}

func TestApplyPolicy_Errors(t *testing.T) {
	ctx := context.Background()
	svc := newService(nil)

	_, err := svc.ApplyPolicy(ctx, "missing", "equal")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	sess, err := svc.CreateSession(ctx, nil)
	require.NoError(t, err)
	_, err = svc.ApplyPolicy(ctx, sess.ID, "random")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	negative := -5.0
	_, err = svc.CreateSession(ctx, &negative)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSimulate_RefusesInvalidAllocation(t *testing.T) {
	ctx := context.Background()
	svc := newService(nil)

	sess, err := svc.CreateSession(ctx, nil)
	require.NoError(t, err)

	_, err = svc.Simulate(ctx, sess.ID, nil, false)
	assert.ErrorIs(t, err, domain.ErrAllocationMismatch)
	_, err = svc.SimulateBatch(ctx, sess.ID, nil, 3)
	assert.ErrorIs(t, err, domain.ErrAllocationMismatch)
}

func TestSimulate_UsesCache(t *testing.T) {
	ctx := context.Background()
	c := newCountingCache()
	svc := newService(c)

	sess, err := svc.CreateSession(ctx, nil)
	require.NoError(t, err)
	_, err = svc.ApplyPolicy(ctx, sess.ID, "exposure")
	require.NoError(t, err)

	first, err := svc.Simulate(ctx, sess.ID, nil, true)
	require.NoError(t, err)
	assert.Len(t, first.Customers, 20)
	assert.Equal(t, uint64(churn.DefaultSeed), first.Portfolio.Seed)
	require.Len(t, c.runs, 1)

	second, err := svc.Simulate(ctx, sess.ID, nil, false)
	require.NoError(t, err)
	assert.Nil(t, second.Customers)
	assert.Equal(t, first.Portfolio, second.Portfolio)
	assert.Len(t, first.Customers, 20, "trimming a cached result does not touch the cached copy")

	seed := uint64(7)
	_, err = svc.Simulate(ctx, sess.ID, &seed, false)
	require.NoError(t, err)
	assert.Len(t, c.runs, 2)
}

func TestSimulate_CacheSeparatesDatasets(t *testing.T) {
	ctx := context.Background()
	c := newCountingCache()
	defaults := Defaults{Target: 1000, Seed: churn.DefaultSeed, Params: churn.DefaultParams(), BatchWorkers: 2}

	reseeded := testDataset()
	for i := range reseeded.Customers {
		reseeded.Customers[i].CurrentPremium = 900
	}

	simulate := func(ds *domain.Dataset) *domain.SimulationResult {
		svc := NewPremiumService(ds, nil, nil, c, defaults)
		sess, err := svc.CreateSession(ctx, nil)
		require.NoError(t, err)
		_, err = svc.ApplyPolicy(ctx, sess.ID, "equal")
		require.NoError(t, err)
		res, err := svc.Simulate(ctx, sess.ID, nil, false)
		require.NoError(t, err)
		return res
	}

	before := simulate(testDataset())
	after := simulate(reseeded)

	fresh, err := churn.Simulate(reseeded, domain.Allocation{
		Target:  1000,
		Amounts: map[string]float64{"75101": 500, "75102": 500},
	}, churn.DefaultParams(), churn.DefaultSeed)
	require.NoError(t, err)

	assert.Len(t, c.runs, 2, "each dataset gets its own cache entry")
	assert.NotEqual(t, before.Portfolio.PremiumCollected, after.Portfolio.PremiumCollected)
	assert.Equal(t, fresh.Portfolio, after.Portfolio)
}

func TestSimulate_CacheFailureIgnored(t *testing.T) {
	ctx := context.Background()
	c := newCountingCache()
	c.failGets = true
	svc := newService(c)

	sess, err := svc.CreateSession(ctx, nil)
	require.NoError(t, err)
	_, err = svc.ApplyPolicy(ctx, sess.ID, "risk")
	require.NoError(t, err)

	res, err := svc.Simulate(ctx, sess.ID, nil, false)
	require.NoError(t, err)
	assert.Equal(t, 20, res.Portfolio.Customers)
	assert.Equal(t, 1, c.getCalls)
}

func TestSimulateBatch(t *testing.T) {
	ctx := context.Background()
	svc := newService(nil)

	sess, err := svc.CreateSession(ctx, nil)
	require.NoError(t, err)
	_, err = svc.ApplyPolicy(ctx, sess.ID, "equal")
	require.NoError(t, err)

	batch, err := svc.SimulateBatch(ctx, sess.ID, nil, 4)
	require.NoError(t, err)
	require.Len(t, batch.Runs, 4)
	for i, run := range batch.Runs {
		assert.Equal(t, uint64(churn.DefaultSeed)+uint64(i), run.Seed)
	}

	single, err := svc.Simulate(ctx, sess.ID, nil, false)
	require.NoError(t, err)
	assert.Equal(t, single.Portfolio, batch.Runs[0])

	_, err = svc.SimulateBatch(ctx, sess.ID, nil, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
