package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// PageCache stores discover pages keyed by their filter set. Implementations
// are best-effort: a failed read is treated as a miss by callers.
type PageCache interface {
	Get(ctx context.Context, key string) ([]Candidate, bool, error)
	Set(ctx context.Context, key string, page []Candidate) error
}

func pageCacheKey(filters Filters) string {
	return fmt.Sprintf("catalog:discover:g=%s:p=%s:r=%s:page=%d",
		filters.GenreIDs, filters.ProviderIDs, filters.Region, filters.Page)
}

// RedisPageCache caches discover pages in Redis with a fixed TTL.
type RedisPageCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisPageCache returns a PageCache backed by the provided Redis client.
func NewRedisPageCache(client *redis.Client, ttl time.Duration) (*RedisPageCache, error) {
	if client == nil {
		return nil, errors.New("catalog: redis client required")
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisPageCache{client: client, ttl: ttl}, nil
}

// Get returns the cached page for the key, reporting a miss for absent keys.
func (c *RedisPageCache) Get(ctx context.Context, key string) ([]Candidate, bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("catalog: cache get: %w", err)
	}

	var page []Candidate
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, false, fmt.Errorf("catalog: cache decode: %w", err)
	}
	return page, true, nil
}

// Set stores the page under the key for the cache TTL.
func (c *RedisPageCache) Set(ctx context.Context, key string, page []Candidate) error {
	raw, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("catalog: cache encode: %w", err)
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("catalog: cache set: %w", err)
	}
	return nil
}
