package scrape

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Ads97/Veritas/internal/cache"
	"github.com/Ads97/Veritas/internal/logger"
	"github.com/Ads97/Veritas/internal/metrics"
	"github.com/Ads97/Veritas/internal/model"
)

const cacheNamespace = "scrape"

// Cached decorates a Provider with a content cache. Failed scrapes are not cached.
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

// Scrape implements Provider
func (c *Cached) Scrape(ctx context.Context, rawURL string) model.ScrapedContent {
	key := cache.CacheKey(cacheNamespace, rawURL)

	if content, ok := cache.GetJSON[model.ScrapedContent](ctx, c.cache, key); ok {
		metrics.ObserveCache(cacheNamespace, true)
		return content
	}
	metrics.ObserveCache(cacheNamespace, false)

	content := c.inner.Scrape(ctx, rawURL)
	if !content.Empty() {
		if err := cache.SetJSON(ctx, c.cache, key, content, c.ttl); err != nil {
			c.logger.Warn("scrape cache set failed", zap.Error(err))
		}
	}
	return content
}
