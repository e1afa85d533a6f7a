package search

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Ads97/Veritas/internal/cache"
	"github.com/Ads97/Veritas/internal/logger"
	"github.com/Ads97/Veritas/internal/metrics"
	"github.com/Ads97/Veritas/internal/model"
)

const cacheNamespace = "search"

// Cached decorates a Provider with a response cache. Errors are never cached.
type Cached struct {
	inner  Provider
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCached wraps p with c
func NewCached(p Provider, c cache.Cache, ttl time.Duration, log *zap.Logger) *Cached {
	return &Cached{inner: p, cache: c, ttl: ttl, logger: logger.OrNop(log)}
}

// Search implements Provider
func (c *Cached) Search(ctx context.Context, query string, maxResults int) ([]model.SearchHit, error) {
	key := cache.CacheKey(cacheNamespace, strings.ToLower(strings.TrimSpace(query)), strconv.Itoa(maxResults))

	if hits, ok := cache.GetJSON[[]model.SearchHit](ctx, c.cache, key); ok {
		metrics.ObserveCache(cacheNamespace, true)
		return hits, nil
	}
	metrics.ObserveCache(cacheNamespace, false)

	hits, err := c.inner.Search(ctx, query, maxResults)
	if err != nil {
		return nil, err
	}

	// Empty results are not cached; the next run may find something
	if len(hits) > 0 {
		if err := cache.SetJSON(ctx, c.cache, key, hits, c.ttl); err != nil {
			c.logger.Warn("search cache set failed", zap.Error(err))
		}
	}
	return hits, nil
}
