package records

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Ads97/Veritas/internal/cache"
	"github.com/Ads97/Veritas/internal/logger"
	"github.com/Ads97/Veritas/internal/metrics"
	"github.com/Ads97/Veritas/internal/model"
)

const (
	parcelNamespace = "parcel"
	ownerNamespace  = "owners"
)

// CachedResolver caches successful parcel resolutions
type CachedResolver struct {
	inner  ParcelResolver
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedResolver wraps r with c
func NewCachedResolver(r ParcelResolver, c cache.Cache, ttl time.Duration, log *zap.Logger) *CachedResolver {
	return &CachedResolver{inner: r, cache: c, ttl: ttl, logger: logger.OrNop(log)}
}

// Resolve implements ParcelResolver
func (c *CachedResolver) Resolve(ctx context.Context, address string) (model.Parcel, error) {
	key := cache.CacheKey(parcelNamespace, normalizeAddress(address))

	if p, ok := cache.GetJSON[model.Parcel](ctx, c.cache, key); ok {
		metrics.ObserveCache(parcelNamespace, true)
		return p, nil
	}
	metrics.ObserveCache(parcelNamespace, false)

	p, err := c.inner.Resolve(ctx, address)
	if err != nil {
		return model.Parcel{}, err
	}
	if err := cache.SetJSON(ctx, c.cache, key, p, c.ttl); err != nil {
		c.logger.Warn("parcel cache set failed", zap.Error(err))
	}
	return p, nil
}

// CachedLookup caches successful owner lookups
type CachedLookup struct {
	inner  OwnerLookup
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedLookup wraps l with c
func NewCachedLookup(l OwnerLookup, c cache.Cache, ttl time.Duration, log *zap.Logger) *CachedLookup {
	return &CachedLookup{inner: l, cache: c, ttl: ttl, logger: logger.OrNop(log)}
}

// LookupOwners implements OwnerLookup
func (c *CachedLookup) LookupOwners(ctx context.Context, parcel model.Parcel) ([]string, error) {
	key := cache.CacheKey(ownerNamespace, parcel.Block, parcel.Lot)

	if owners, ok := cache.GetJSON[[]string](ctx, c.cache, key); ok && len(owners) > 0 {
		metrics.ObserveCache(ownerNamespace, true)
		return owners, nil
	}
	metrics.ObserveCache(ownerNamespace, false)

	owners, err := c.inner.LookupOwners(ctx, parcel)
	if err != nil {
		return nil, err
	}
	if err := cache.SetJSON(ctx, c.cache, key, owners, c.ttl); err != nil {
		c.logger.Warn("owner cache set failed", zap.Error(err))
	}
	return owners, nil
}
