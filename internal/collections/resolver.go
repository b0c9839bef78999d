package collections

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/masumbillah21/conditional-discount/pkg/logger"
)

// Loader fetches collection membership from the commerce platform.
type Loader interface {
	CollectionProductIDs(ctx context.Context, shopDomain, collectionID string) ([]string, error)
}

// Resolver turns collection ids into the product-id space the
// allocation engine matches against.
type Resolver interface {
	ResolveProducts(ctx context.Context, shopDomain string, collectionIDs []string) []string
}

type cacheStore interface {
	CollectionKey(shopDomain, collectionID string) string
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

type cachedResolver struct {
	cache  cacheStore
	loader Loader
	ttl    time.Duration
	logg   *logger.Logger
}

// NewCachedResolver builds a resolver that reads membership through the
// cache and falls back to the loader on miss. The cache is optional;
// the loader is not.
func NewCachedResolver(cache cacheStore, loader Loader, ttl time.Duration, logg *logger.Logger) (Resolver, error) {
	if loader == nil {
		return nil, fmt.Errorf("collection loader required")
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &cachedResolver{cache: cache, loader: loader, ttl: ttl, logg: logg}, nil
}

// ResolveProducts returns the union of product ids across the given
// collections, deduplicated in first-seen order. Lookup failures
// degrade to empty membership for the failing collection: a discount
// must never fail a cart evaluation.
func (r *cachedResolver) ResolveProducts(ctx context.Context, shopDomain string, collectionIDs []string) []string {
	var productIDs []string
	seen := map[string]struct{}{}

	for _, collectionID := range collectionIDs {
		if collectionID == "" {
			continue
		}
		for _, productID := range r.membership(ctx, shopDomain, collectionID) {
			if _, ok := seen[productID]; ok {
				continue
			}
			seen[productID] = struct{}{}
			productIDs = append(productIDs, productID)
		}
	}
	return productIDs
}

func (r *cachedResolver) membership(ctx context.Context, shopDomain, collectionID string) []string {
	if r.cache != nil {
		key := r.cache.CollectionKey(shopDomain, collectionID)
		if raw, err := r.cache.Get(ctx, key); err == nil {
			var ids []string
			if err := json.Unmarshal([]byte(raw), &ids); err == nil {
				return ids
			}
		}
	}

	ids, err := r.loader.CollectionProductIDs(ctx, shopDomain, collectionID)
	if err != nil {
		if r.logg != nil {
			lctx := r.logg.WithFields(ctx, map[string]any{"collection_id": collectionID})
			r.logg.Warn(lctx, "collection membership lookup failed, treating as empty")
		}
		return nil
	}

	if r.cache != nil {
		encoded, err := json.Marshal(ids)
		if err == nil {
			key := r.cache.CollectionKey(shopDomain, collectionID)
			if err := r.cache.Set(ctx, key, string(encoded), r.ttl); err != nil && r.logg != nil {
				lctx := r.logg.WithFields(ctx, map[string]any{"collection_id": collectionID})
				r.logg.Warn(lctx, "collection membership cache write failed")
			}
		}
	}
	return ids
}
