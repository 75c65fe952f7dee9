//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/andresuchdata/premium-allocation/internal/domain"
)

func TestRedisSimulationCache(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	addr, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := redis.ParseURL(addr)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })

	c := NewRedisSimulationCache(client, time.Minute)

	_, ok, err := c.GetRun(ctx, key())
	require.NoError(t, err)
	require.False(t, ok)

	want := &domain.SimulationResult{Portfolio: domain.PortfolioOutcome{Seed: 123, Customers: 10, Staying: 7}}
	require.NoError(t, c.SetRun(ctx, key(), want))
	require.NoError(t, c.SetBatch(ctx, key(), &domain.BatchResult{Runs: []domain.PortfolioOutcome{want.Portfolio}}))

	got, ok, err := c.GetRun(ctx, key())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, want.Portfolio, got.Portfolio)

	batch, ok, err := c.GetBatch(ctx, key())
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, batch.Runs, 1)

	require.NoError(t, c.InvalidateAll(ctx))
	_, ok, err = c.GetRun(ctx, key())
	require.NoError(t, err)
	require.False(t, ok)
}
