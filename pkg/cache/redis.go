package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache stores entries in Redis, sharing one server between API
// instances.
type RedisCache struct {
	client redis.Cmdable
	prefix string
}

// NewRedisCache wraps a client. All keys get prefix.
func NewRedisCache(client redis.Cmdable, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

// OpenRedis connects to a redis:// URL.
func OpenRedis(url, prefix string) (Cache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisCache(redis.NewClient(opts), prefix), nil
}

// Get retrieves a value from the cache.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set stores a value in the cache.
func (c *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return c.client.Set(ctx, c.prefix+key, data, ttl).Err()
}

// Delete removes a value from the cache.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.prefix+key).Err()
}

// Close closes the client when it owns a connection pool.
func (c *RedisCache) Close() error {
	if cl, ok := c.client.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}

// Ensure RedisCache implements Cache.
var _ Cache = (*RedisCache)(nil)
