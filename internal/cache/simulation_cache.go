package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/premium-allocation/internal/config"
	"github.com/andresuchdata/premium-allocation/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	simulationKeyPrefix = "simulation"
	scanBatchSize       = 100
)

// SimulationKey identifies a simulation by everything its outcome depends on
type SimulationKey struct {
	Dataset    string
	Allocation domain.Allocation
	Params     domain.ChurnParams
	Seeds      []uint64
}

type SimulationCache interface {
	GetRun(ctx context.Context, key SimulationKey) (*domain.SimulationResult, bool, error)
	SetRun(ctx context.Context, key SimulationKey, result *domain.SimulationResult) error
	GetBatch(ctx context.Context, key SimulationKey) (*domain.BatchResult, bool, error)
	SetBatch(ctx context.Context, key SimulationKey, result *domain.BatchResult) error
	InvalidateAll(ctx context.Context) error
}

type redisSimulationCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopSimulationCache struct{}

func NewSimulationCache(ctx context.Context, cfg config.CacheConfig) (SimulationCache, error) {
	if !cfg.Enabled {
		return &noopSimulationCache{}, nil
	}

	client, ttl, err := newRedisClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return NewRedisSimulationCache(client, ttl), nil
}

// NewRedisSimulationCache wraps an existing client.
func NewRedisSimulationCache(client *redis.Client, ttl time.Duration) SimulationCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &redisSimulationCache{client: client, ttl: ttl}
}

func NewNoopSimulationCache() SimulationCache {
	return &noopSimulationCache{}
}

func (c *redisSimulationCache) GetRun(ctx context.Context, key SimulationKey) (*domain.SimulationResult, bool, error) {
	var result domain.SimulationResult
	ok, err := c.get(ctx, BuildKey("run", key), &result)
	if !ok || err != nil {
		return nil, false, err
	}
	return &result, true, nil
}

func (c *redisSimulationCache) SetRun(ctx context.Context, key SimulationKey, result *domain.SimulationResult) error {
	return c.set(ctx, BuildKey("run", key), result)
}

func (c *redisSimulationCache) GetBatch(ctx context.Context, key SimulationKey) (*domain.BatchResult, bool, error) {
	var result domain.BatchResult
	ok, err := c.get(ctx, BuildKey("batch", key), &result)
	if !ok || err != nil {
		return nil, false, err
	}
	return &result, true, nil
}

func (c *redisSimulationCache) SetBatch(ctx context.Context, key SimulationKey, result *domain.BatchResult) error {
	return c.set(ctx, BuildKey("batch", key), result)
}

func (c *redisSimulationCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, simulationKeyPrefix+":", scanBatchSize)
}

func (c *redisSimulationCache) get(ctx context.Context, key string, dst interface{}) (bool, error) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get failed: %w", err)
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return false, fmt.Errorf("decode simulation cache: %w", err)
	}
	return true, nil
}

func (c *redisSimulationCache) set(ctx context.Context, key string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode simulation cache: %w", err)
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (n *noopSimulationCache) GetRun(ctx context.Context, key SimulationKey) (*domain.SimulationResult, bool, error) {
	return nil, false, nil
}

func (n *noopSimulationCache) SetRun(ctx context.Context, key SimulationKey, result *domain.SimulationResult) error {
	return nil
}

func (n *noopSimulationCache) GetBatch(ctx context.Context, key SimulationKey) (*domain.BatchResult, bool, error) {
	return nil, false, nil
}

func (n *noopSimulationCache) SetBatch(ctx context.Context, key SimulationKey, result *domain.BatchResult) error {
	return nil
}

func (n *noopSimulationCache) InvalidateAll(ctx context.Context) error {
	return nil
}

// BuildKey renders "simulation:<kind>:<sha1>" for a key.
func BuildKey(kind string, key SimulationKey) string {
	return fmt.Sprintf("%s:%s:%s", simulationKeyPrefix, kind, keyHash(key))
}

func keyHash(key SimulationKey) string {
	regions := make([]string, 0, len(key.Allocation.Amounts))
	for id := range key.Allocation.Amounts {
		regions = append(regions, id)
	}
	sort.Strings(regions)

	amounts := make([]string, len(regions))
	for i, id := range regions {
		amounts[i] = id + "=" + formatFloat(key.Allocation.Amounts[id])
	}

	seeds := make([]string, len(key.Seeds))
	for i, s := range key.Seeds {
		seeds[i] = strconv.FormatUint(s, 10)
	}

	p := key.Params
	params := []float64{
		p.Sensitivity, p.BurdenFocus, p.BaseChurn, p.IncomeThreshold, p.ValueThreshold,
		p.ValueFallbackFactor, p.MaxProbability, p.BurdenCap, p.IncomeWeight, p.ValueWeight,
	}
	paramStrs := make([]string, len(params))
	for i, v := range params {
		paramStrs[i] = formatFloat(v)
	}

	parts := []string{
		"dataset=" + key.Dataset,
		"target=" + formatFloat(key.Allocation.Target),
		"amounts=" + strings.Join(amounts, ","),
		"params=" + strings.Join(paramStrs, ","),
		"seeds=" + strings.Join(seeds, ","),
	}

	sum := sha1.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
