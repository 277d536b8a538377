package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/sas/internal/contracts"
	"github.com/wonny/sas/pkg/config"
	"github.com/wonny/sas/pkg/redis"
)

const redisPrefix = "sas"

// Redis keeps each result set as one JSON value
type Redis struct {
	cache *redis.Cache
	ttl   time.Duration
}

// NewRedis wraps an enabled client
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{cache: redis.NewCache(client, redisPrefix), ttl: ttl}
}

// Name implements Backend
func (r *Redis) Name() string { return config.CacheBackendRedis }

// Close implements Backend. The client is owned by the caller.
func (r *Redis) Close() error { return nil }

// Load implements contracts.ResultCache
func (r *Redis) Load(ctx context.Context, category, analyzer string, tr contracts.TimeRange) ([]contracts.AnalysisResult, error) {
	var results []contracts.AnalysisResult
	found, err := r.cache.Get(ctx, entryKey(category, analyzer, tr), &results)
	if err != nil {
		return nil, fmt.Errorf("redis result cache: %w", err)
	}
	if !found {
		return nil, nil
	}
	return results, nil
}

// Store implements contracts.ResultCache
func (r *Redis) Store(ctx context.Context, category, analyzer string, tr contracts.TimeRange, results []contracts.AnalysisResult) error {
	if err := r.cache.Set(ctx, entryKey(category, analyzer, tr), results, r.ttl); err != nil {
		return fmt.Errorf("redis result cache: %w", err)
	}
	return nil
}
