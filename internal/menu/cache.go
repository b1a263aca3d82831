package menu

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Sashankstar/Food-order-tracking/internal/domain"
)

const cacheKey = "menu:all"

// RedisClient is the subset of *redis.Client the cache uses.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// CachedCatalog is a read-through Redis cache in front of another Catalog.
// Redis errors never fail a request; they fall through to the next catalog.
type CachedCatalog struct {
	next   Catalog
	client RedisClient
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedCatalog(next Catalog, client RedisClient, ttl time.Duration, logger *slog.Logger) *CachedCatalog {
	return &CachedCatalog{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *CachedCatalog) ListAll(ctx context.Context) ([]domain.MenuItem, error) {
	data, err := c.client.Get(ctx, cacheKey).Bytes()
	switch {
	case err == nil:
		var items []domain.MenuItem
		if err := json.Unmarshal(data, &items); err == nil {
			return items, nil
		}
		c.logger.Warn("discarding malformed menu cache entry", "key", cacheKey)
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("menu cache read failed", "error", err)
	}

	items, err := c.next.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(items); err == nil {
		if err := c.client.Set(ctx, cacheKey, data, c.ttl).Err(); err != nil {
			c.logger.Warn("menu cache write failed", "error", err)
		}
	}

	return items, nil
}

// Invalidate drops the cached listing.
func (c *CachedCatalog) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, cacheKey).Err()
}
