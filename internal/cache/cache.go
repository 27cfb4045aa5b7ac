// Package cache provides a Redis-backed query result cache with singleflight
// deduplication of concurrent misses. Redis outages trip a circuit breaker so
// searches degrade to direct index reads instead of stalling on a dead cache.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/searchlab/ranksearch/internal/engine"
	"github.com/searchlab/ranksearch/internal/tokenizer"
	"github.com/searchlab/ranksearch/pkg/config"
	"github.com/searchlab/ranksearch/pkg/metrics"
	pkgredis "github.com/searchlab/ranksearch/pkg/redis"
	"github.com/searchlab/ranksearch/pkg/resilience"
)

const keyPrefix = "search:"

type QueryCache struct {
	client  *pkgredis.Client
	cfg     config.RedisConfig
	group   singleflight.Group
	breaker *resilience.CircuitBreaker
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New creates a QueryCache on top of the given Redis client. The metrics
// argument may be nil.
func New(client *pkgredis.Client, cfg config.RedisConfig, m *metrics.Metrics) *QueryCache {
	breaker := resilience.NewCircuitBreaker("query-cache", resilience.CircuitBreakerConfig{
		OnStateChange: func(name string, state resilience.State) {
			if m != nil {
				m.CircuitBreakerState.WithLabelValues(name).Set(float64(state))
			}
		},
	})
	return &QueryCache{
		client:  client,
		cfg:     cfg,
		breaker: breaker,
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

// Get returns the cached result for the query, or (nil, false) on a miss.
// Redis errors and an open circuit both count as misses.
func (c *QueryCache) Get(ctx context.Context, query, status string, limit int) (*engine.SearchResult, bool) {
	key := c.buildKey(query, status, limit)
	var data string
	var found bool
	err := c.breaker.Execute(func() error {
		value, err := c.client.Get(ctx, key)
		if err != nil {
			if pkgredis.IsNilError(err) {
				return nil
			}
			return err
		}
		data = value
		found = true
		return nil
	})
	if err != nil {
		if errors.Is(err, resilience.ErrCircuitOpen) {
			c.logger.Debug("cache bypassed, circuit open")
		} else {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.recordMiss()
		return nil, false
	}
	if !found {
		c.recordMiss()
		return nil, false
	}
	var result engine.SearchResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.recordMiss()
		return nil, false
	}
	c.recordHit()
	c.logger.Debug("cache hit", "query", query, "key", key)
	return &result, true
}

// Set stores a result under the query's cache key with the configured TTL.
func (c *QueryCache) Set(ctx context.Context, query, status string, limit int, result *engine.SearchResult) {
	key := c.buildKey(query, status, limit)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return c.client.Set(ctx, key, data, c.cfg.CacheTTL)
	})
	if err != nil && !errors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result when present; otherwise it runs
// computeFn, caches the outcome, and returns it. Concurrent misses for the
// same key share a single computeFn call. The second return value reports
// whether the result came from the cache.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	query, status string,
	limit int,
	computeFn func() (*engine.SearchResult, error),
) (*engine.SearchResult, bool, error) {
	if result, ok := c.Get(ctx, query, status, limit); ok {
		return result, true, nil
	}
	key := c.buildKey(query, status, limit)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if result, ok := c.Get(ctx, query, status, limit); ok {
			return result, nil
		}
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, query, status, limit, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*engine.SearchResult), false, nil
}

// Invalidate removes every cached search result. Adding a document shifts
// the corpus-wide IDF values, so all cached scores are stale after a write.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	pattern := keyPrefix + "*"
	deleted, err := c.client.FlushByPattern(ctx, pattern)
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

// Stats returns cumulative hit and miss counts.
func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) recordHit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *QueryCache) recordMiss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

func (c *QueryCache) buildKey(query, status string, limit int) string {
	normalized := normalizeQuery(query)
	raw := fmt.Sprintf("%s|status=%s|limit=%d", normalized, status, limit)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}

// normalizeQuery canonicalizes a raw query so equivalent queries share a
// cache key. Plus and minus terms are separated, sorted, and deduplicated.
// Case is preserved because the index is case-sensitive.
func normalizeQuery(query string) string {
	plus := make([]string, 0)
	minus := make([]string, 0)
	for _, token := range tokenizer.Split(query) {
		if strings.HasPrefix(token, "-") {
			if term := token[1:]; term != "" {
				minus = append(minus, term)
			}
			continue
		}
		plus = append(plus, token)
	}
	sort.Strings(plus)
	sort.Strings(minus)
	parts := []string{strings.Join(dedupe(plus), ",")}
	if len(minus) > 0 {
		parts = append(parts, "not:"+strings.Join(dedupe(minus), ","))
	}
	return strings.Join(parts, "|")
}

// dedupe removes adjacent duplicates from a sorted slice.
func dedupe(sorted []string) []string {
	out := sorted[:0]
	for i, s := range sorted {
		if i == 0 || sorted[i-1] != s {
			out = append(out, s)
		}
	}
	return out
}
