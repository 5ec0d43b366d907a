// Package cache memoizes whole batch payloads for a fixed time-to-live.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/powdertracker/powdertracker/internal/telemetry"
)

// Store is a byte-oriented key/value store with per-entry expiry.
type Store interface {
	// Get returns the value stored under key. ok is false when the key is
	// absent or expired.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Config holds configuration for a Cache.
type Config struct {
	// Store holds the entries (required).
	Store Store

	// Metrics records hits and misses (optional).
	Metrics *telemetry.ProviderMetrics

	// Logger for cache operations.
	Logger zerolog.Logger
}

// Cache wraps a Store with JSON encoding and hit/miss accounting.
type Cache struct {
	store   Store
	metrics *telemetry.ProviderMetrics
	logger  zerolog.Logger
}

// New creates a new Cache.
func New(cfg Config) *Cache {
	return &Cache{
		store:   cfg.Store,
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
	}
}

// WithCache returns the payload cached under key, or runs produce and caches
// its result for ttl. A hit returns the stored payload unchanged.
//
// A producer error is returned as is and nothing is stored. Concurrent misses
// each run produce.
func WithCache[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, produce func(context.Context) (T, error)) (T, error) {
	var zero T

	raw, ok, err := c.store.Get(ctx, key)
	if err != nil {
		return zero, fmt.Errorf("reading cache key %q: %w", key, err)
	}

	if ok {
		var cached T
		if err := json.Unmarshal(raw, &cached); err == nil {
			c.metrics.RecordCacheHit(key)
			return cached, nil
		}
		c.logger.Warn().Str("key", key).Msg("discarding undecodable cache entry")
	}

	c.metrics.RecordCacheMiss(key)

	value, err := produce(ctx)
	if err != nil {
		return zero, err
	}

	if err := Put(ctx, c, key, ttl, value); err != nil {
		return zero, err
	}

	c.logger.Debug().
		Str("key", key).
		Dur("ttl", ttl).
		Msg("cache populated")

	return value, nil
}

// Put stores value under key for ttl, replacing any live entry.
func Put[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, value T) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding cache key %q: %w", key, err)
	}
	if err := c.store.Set(ctx, key, encoded, ttl); err != nil {
		return fmt.Errorf("writing cache key %q: %w", key, err)
	}
	return nil
}
