package service

import (
	"context"
	"fmt"
	"time"

	"commerce-service/internal/models"
	"commerce-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProductCache is a read-through cache of products in front of the store.
// Cache failures degrade to store reads.
type ProductCache struct {
	cache    Cache
	products ProductStore
	ttl      time.Duration
	logger   *zap.Logger
}

// NewProductCache creates a product cache. cache may be nil to disable caching.
func NewProductCache(cache Cache, products ProductStore, ttl time.Duration) *ProductCache {
	return &ProductCache{
		cache:    cache,
		products: products,
		ttl:      ttl,
		logger:   util.GetLogger(),
	}
}

func productCacheKey(id uuid.UUID) string {
	return fmt.Sprintf("product:%s", id)
}

// Get returns the product, nil when it does not exist
func (pc *ProductCache) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "ProductCache.Get")
	defer span.End()

	if pc.cache != nil {
		var snap models.ProductSnapshot
		found, err := pc.cache.GetJSON(ctx, productCacheKey(id), &snap)
		if err != nil {
			pc.logger.Warn("Product cache read failed, falling back to DB",
				zap.String("product_id", id.String()),
				zap.Error(err))
		}
		if found {
			util.ProductCacheRequestsTotal.WithLabelValues("hit").Inc()
			return models.RestoreProduct(snap), nil
		}
		util.ProductCacheRequestsTotal.WithLabelValues("miss").Inc()
	}

	product, err := pc.products.GetProductByID(ctx, id)
	if err != nil || product == nil {
		return product, err
	}

	if pc.cache != nil {
		if err := pc.cache.SetJSON(ctx, productCacheKey(id), product.Snapshot(), pc.ttl); err != nil {
			pc.logger.Warn("Product cache write failed",
				zap.String("product_id", id.String()),
				zap.Error(err))
		}
	}
	return product, nil
}

// Invalidate drops the cached entries of the given products
func (pc *ProductCache) Invalidate(ctx context.Context, ids ...uuid.UUID) {
	if pc.cache == nil || len(ids) == 0 {
		return
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, productCacheKey(id))
	}
	if err := pc.cache.Delete(ctx, keys...); err != nil {
		pc.logger.Warn("Product cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}
