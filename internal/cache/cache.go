package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// TTL constants for probe data shared across volumes
const (
	// Tool locations - do not change while the process runs
	TTLStatic = 24 * time.Hour

	// Device identity read from sysfs
	TTLSlow = 1 * time.Hour

	// Kernel log snapshot - shared by every unit of a single run
	TTLDynamic = 30 * time.Second
)

// Well-known keys
const (
	KeyKernelLog = "kernel-log"
)

// Entry holds a cached value with expiration
type Entry struct {
	Value     any
	ExpiresAt time.Time
}

// IsExpired returns true if the entry has expired
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.ExpiresAt)
}

// Cache provides thread-safe TTL-based caching. Concurrent loads of the
// same key are collapsed into one call.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	group   singleflight.Group
}

// New creates a new cache instance
func New() *Cache {
	return &Cache{
		entries: make(map[string]*Entry),
	}
}

// Get retrieves a value from cache, returns nil if expired or not found
func (c *Cache) Get(key string) any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || entry.IsExpired() {
		return nil
	}
	return entry.Value
}

// Set stores a value with the given TTL
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &Entry{
		Value:     value,
		ExpiresAt: time.Now().Add(ttl),
	}
}

// Remember returns the cached value for key, calling load on a miss.
// Errors are not cached.
func (c *Cache) Remember(key string, ttl time.Duration, load func() (any, error)) (any, error) {
	if v := c.Get(key); v != nil {
		return v, nil
	}

	v, err, _ := c.group.Do(key, c.loader(key, ttl, load))
	return v, err
}

// RememberContext is Remember for loads shared by callers with their own
// deadlines. Each caller waits until its ctx is done; the load keeps running
// for the others and is cached when it completes.
func (c *Cache) RememberContext(ctx context.Context, key string, ttl time.Duration, load func() (any, error)) (any, error) {
	if v := c.Get(key); v != nil {
		return v, nil
	}

	select {
	case res := <-c.group.DoChan(key, c.loader(key, ttl, load)):
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cache) loader(key string, ttl time.Duration, load func() (any, error)) func() (any, error) {
	return func() (any, error) {
		if v := c.Get(key); v != nil {
			return v, nil
		}
		v, err := load()
		if err != nil {
			return nil, err
		}
		c.Set(key, v, ttl)
		return v, nil
	}
}
