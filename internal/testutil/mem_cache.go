package testutil

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	redisinfra "github.com/turtacn/CiteScope/internal/infrastructure/database/redis"
)

// MemCache is an in-memory redisinfra.Cache.  TTLs are recorded but never
// enforced; tests that care about expiry assert on the recorded value.
type MemCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	ttls    map[string]time.Duration
	counts  map[string]int64
}

var _ redisinfra.Cache = (*MemCache)(nil)

func NewMemCache() *MemCache {
	return &MemCache{
		entries: make(map[string][]byte),
		ttls:    make(map[string]time.Duration),
		counts:  make(map[string]int64),
	}
}

func (c *MemCache) Get(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.entries[key]
	if !ok {
		return redisinfra.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *MemCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = raw
	c.ttls[key] = ttl
	return nil
}

func (c *MemCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
		delete(c.ttls, k)
	}
	return nil
}

func (c *MemCache) Exists(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok, nil
}

func (c *MemCache) GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, loader func(ctx context.Context) (interface{}, error)) error {
	if err := c.Get(ctx, key, dest); err == nil {
		return nil
	}
	val, err := loader(ctx)
	if err != nil {
		return err
	}
	if val == nil {
		return redisinfra.ErrCacheMiss
	}
	if err := c.Set(ctx, key, val, ttl); err != nil {
		return err
	}
	raw, err := json.Marshal(val)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

func (c *MemCache) DeleteByPrefix(_ context.Context, prefix string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
			delete(c.ttls, k)
			n++
		}
	}
	return n, nil
}

func (c *MemCache) Incr(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[key]++
	return c.counts[key], nil
}

func (c *MemCache) Expire(_ context.Context, key string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ttls[key] = ttl
	return nil
}

func (c *MemCache) Ping(_ context.Context) error { return nil }

// Keys returns the currently cached keys; test helper.
func (c *MemCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.entries))
	for k := range c.entries {
		out = append(out, k)
	}
	return out
}

// TTLOf returns the TTL recorded for key; test helper.
func (c *MemCache) TTLOf(key string) (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ttl, ok := c.ttls[key]
	return ttl, ok
}

//Personal.AI order the ending
