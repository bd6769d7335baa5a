// Package cache holds a redis-backed response cache for lookup results.
// The cache sits outside the matching core: the engine stays pure and the
// cache fails open, so a redis outage degrades latency, never correctness.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/verdano/clausemap/internal/match"
	"go.uber.org/zap"
)

const keyPrefix = "clausemap:match:"

// Cache wraps a redis client with hit/miss accounting.
type Cache struct {
	rdb    *redis.Client
	ttl    time.Duration
	hits   atomic.Uint64
	misses atomic.Uint64
	logger *zap.Logger
}

// New connects to redis and verifies the connection.
func New(redisURL string, ttl time.Duration, logger *zap.Logger) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Cache{rdb: rdb, ttl: ttl, logger: logger}, nil
}

// Key derives the cache key from the normalized query and sorted filters.
func Key(normalizedQuery string, filters []string) string {
	if len(filters) == 0 {
		return keyPrefix + normalizedQuery
	}
	sorted := make([]string, len(filters))
	copy(sorted, filters)
	sort.Strings(sorted)
	return keyPrefix + normalizedQuery + "|" + strings.Join(sorted, ",")
}

// Get returns the cached result for key, or ok=false on miss or error.
func (c *Cache) Get(ctx context.Context, key string) (match.MatchResult, bool) {
	var result match.MatchResult
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug("cache get failed", zap.Error(err))
		}
		c.misses.Add(1)
		return result, false
	}
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Warn("cache entry corrupt, dropping", zap.String("key", key), zap.Error(err))
		c.rdb.Del(ctx, key)
		c.misses.Add(1)
		return result, false
	}
	c.hits.Add(1)
	return result, true
}

// Set stores a result under key with the configured TTL. Failures are
// logged and swallowed.
func (c *Cache) Set(ctx context.Context, key string, result match.MatchResult) {
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Warn("cache marshal failed", zap.Error(err))
		return
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Debug("cache set failed", zap.Error(err))
	}
}

// Stats returns cumulative hit and miss counts.
func (c *Cache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}

// Close shuts down the redis client.
func (c *Cache) Close() error {
	return c.rdb.Close()
}
