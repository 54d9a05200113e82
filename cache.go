package lkey

import (
	"context"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// KeyCache is the interface for caching resolved logical-key lookups.
// Implementations may wrap Redis, Memcached, or an in-memory map; see
// contrib/rediscache for a Redis-backed one. Values are opaque byte
// slices; the session encodes primary-key tuples with msgpack.
type KeyCache interface {
	// Get retrieves a value. Returns nil, nil if the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with an optional TTL. A zero TTL means the value
	// does not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value.
	Delete(ctx context.Context, key string) error
}

// encodeKeyTuple serializes a primary-key tuple for cache storage.
func encodeKeyTuple(vals []any) ([]byte, error) {
	return msgpack.Marshal(vals)
}

// decodeKeyTuple deserializes a primary-key tuple from cache storage.
// Integers come back as int64, which matches what database drivers return.
func decodeKeyTuple(data []byte) ([]any, error) {
	var vals []any
	if err := msgpack.Unmarshal(data, &vals); err != nil {
		return nil, err
	}
	return vals, nil
}

type memoryEntry struct {
	value   []byte
	expires time.Time // zero means no expiry
}

// MemoryKeyCache is a process-local KeyCache backed by a map. Expired
// entries are dropped lazily on read.
type MemoryKeyCache struct {
	mu sync.RWMutex
	m  map[string]memoryEntry
}

// NewMemoryKeyCache returns an empty in-memory cache.
func NewMemoryKeyCache() *MemoryKeyCache {
	return &MemoryKeyCache{m: make(map[string]memoryEntry)}
}

// Get implements KeyCache.
func (c *MemoryKeyCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if !e.expires.IsZero() && time.Now().After(e.expires) {
		c.mu.Lock()
		delete(c.m, key)
		c.mu.Unlock()
		return nil, nil
	}
	return e.value, nil
}

// Set implements KeyCache.
func (c *MemoryKeyCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expires = time.Now().Add(ttl)
	}
	c.mu.Lock()
	c.m[key] = e
	c.mu.Unlock()
	return nil
}

// Delete implements KeyCache.
func (c *MemoryKeyCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.m, key)
	c.mu.Unlock()
	return nil
}

// Len returns the number of cached entries, counting expired ones not yet
// dropped.
func (c *MemoryKeyCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}
