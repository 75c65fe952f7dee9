package cache

import (
	"context"
	"strings"
	"testing"

	"github.com/andresuchdata/premium-allocation/internal/churn"
	"github.com/andresuchdata/premium-allocation/internal/config"
	"github.com/andresuchdata/premium-allocation/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func key() SimulationKey {
	return SimulationKey{
		Dataset:    "3f2a",
		Allocation: domain.Allocation{Target: 300, Amounts: map[string]float64{"A": 100, "B": 200}},
		Params:     churn.DefaultParams(),
		Seeds:      []uint64{123},
	}
}

func TestBuildKey_Stable(t *testing.T) {
	a := BuildKey("run", key())

	reordered := key()
	reordered.Allocation.Amounts = map[string]float64{"B": 200, "A": 100}
	assert.Equal(t, a, BuildKey("run", reordered), "map order does not matter")
	assert.True(t, strings.HasPrefix(a, "simulation:run:"))
	assert.Len(t, strings.TrimPrefix(a, "simulation:run:"), 40)
}

func TestBuildKey_Distinguishes(t *testing.T) {
	base := BuildKey("run", key())

	variants := map[string]func(*SimulationKey){
		"dataset": func(k *SimulationKey) { k.Dataset = "9c1e" },
		"amount":  func(k *SimulationKey) { k.Allocation.Amounts["A"] = 100.5 },
		"target":  func(k *SimulationKey) { k.Allocation.Target = 301 },
		"params":  func(k *SimulationKey) { k.Params.Sensitivity = 2 },
		"seed":    func(k *SimulationKey) { k.Seeds = []uint64{124} },
		"seeds":   func(k *SimulationKey) { k.Seeds = []uint64{123, 124} },
	}
	for name, mutate := range variants {
		k := key()
		mutate(&k)
		assert.NotEqual(t, base, BuildKey("run", k), name)
	}
	assert.NotEqual(t, base, BuildKey("batch", key()))
}

func TestNoopCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewSimulationCache(ctx, config.CacheConfig{Enabled: false})
	require.NoError(t, err)

	require.NoError(t, c.SetRun(ctx, key(), &domain.SimulationResult{}))
	got, ok, err := c.GetRun(ctx, key())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
	assert.NoError(t, c.InvalidateAll(ctx))
}

func TestBuildRedisOptions(t *testing.T) {
	opts, err := buildRedisOptions(config.CacheConfig{RedisHost: "cache", RedisPort: "6380", RedisDB: 2})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)

	opts, err = buildRedisOptions(config.CacheConfig{RedisURL: "redis://:secret@example:6379/1"})
	require.NoError(t, err)
	assert.Equal(t, "example:6379", opts.Addr)
	assert.Equal(t, "secret", opts.Password)

	_, err = buildRedisOptions(config.CacheConfig{RedisURL: "http://nope"})
	assert.Error(t, err)

	assert.Equal(t, defaultCacheTTL, ttlFromConfig(config.CacheConfig{}))
}
