// Package rediscache provides a Redis-backed key cache for lkey sessions,
// sharing resolved logical-key lookups across processes:
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	session := lkey.NewSession(drv, lkey.WithKeyCache(rediscache.New(client), time.Hour))
package rediscache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/syssam/lkey"
)

// Cache implements lkey.KeyCache over a Redis client.
type Cache struct {
	client redis.UniversalClient
	prefix string
}

var _ lkey.KeyCache = (*Cache)(nil)

// Option configures a Cache.
type Option func(*Cache)

// WithPrefix sets the key namespace. Default is "lkey:".
func WithPrefix(prefix string) Option {
	return func(c *Cache) { c.prefix = prefix }
}

// New returns a cache over the given client. Cluster, sentinel and plain
// clients all satisfy redis.UniversalClient.
func New(client redis.UniversalClient, opts ...Option) *Cache {
	c := &Cache{client: client, prefix: "lkey:"}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get implements lkey.KeyCache. A missing key is nil, nil.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

// Set implements lkey.KeyCache. A zero ttl stores the value without
// expiry.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, c.prefix+key, value, ttl).Err()
}

// Delete implements lkey.KeyCache.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.prefix+key).Err()
}
