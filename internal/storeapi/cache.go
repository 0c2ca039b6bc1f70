package storeapi

import (
	"context"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/freshmart/storefront/internal/obs"
)

// Cache is a short-TTL read-through cache for upstream responses,
// keyed by request identity (e.g. "product:id:42"). It bounds request
// volume on rapid re-renders; single-flight in the client covers the
// in-flight window the cache cannot.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a cache helper. A nil client disables caching.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 90 * time.Second
	}
	return &Cache{client: client, ttl: ttl}
}

// Get returns the cached payload for key, reporting whether it existed.
func (c *Cache) Get(ctx context.Context, key, resource string) ([]byte, bool) {
	if c == nil || c.client == nil || key == "" {
		return nil, false
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) && obs.UpstreamCacheTotal != nil {
			obs.UpstreamCacheTotal.WithLabelValues(resource, "error").Inc()
		}
		countCache(resource, "miss")
		return nil, false
	}
	countCache(resource, "hit")
	return data, true
}

// Set stores the payload with the configured TTL. Failures are
// swallowed; the cache is an optimisation, never a dependency.
func (c *Cache) Set(ctx context.Context, key string, data []byte) {
	if c == nil || c.client == nil || key == "" || data == nil {
		return
	}
	_ = c.client.Set(ctx, key, data, c.ttl).Err()
}

func countCache(resource, result string) {
	if obs.UpstreamCacheTotal != nil {
		obs.UpstreamCacheTotal.WithLabelValues(resource, result).Inc()
	}
}
