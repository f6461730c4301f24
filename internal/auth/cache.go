package auth

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/customeros/metricsrelay/interfaces"
	"github.com/customeros/metricsrelay/internal/models"
	"github.com/customeros/metricsrelay/internal/utils"
)

const (
	DefaultCacheTTL      = 5 * time.Minute
	DefaultCacheCapacity = 10000
)

type cacheEntry struct {
	user      models.User
	expiresAt time.Time
}

// Cache is a bounded map of identity key to verified user with absolute expiry.
// When full, expired entries are dropped first, then the least recently used one.
type Cache struct {
	mu       sync.Mutex
	entries  *simplelru.LRU[string, cacheEntry]
	capacity int
	now      func() time.Time
}

type CacheOption func(*Cache)

// WithClock replaces the time source, used by tests to control expiry.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		c.now = now
	}
}

// NewCache returns a cache holding at most capacity users. A non positive capacity
// yields a cache that never stores anything.
func NewCache(capacity int, opts ...CacheOption) interfaces.AuthCache {
	if capacity <= 0 {
		return noopCache{}
	}
	entries, err := simplelru.NewLRU[string, cacheEntry](capacity, nil)
	if err != nil {
		return noopCache{}
	}
	c := &Cache{
		entries:  entries,
		capacity: capacity,
		now:      utils.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) Get(key string) (models.User, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries.Get(key)
	if !ok {
		return models.User{}, false
	}
	if !c.now().Before(entry.expiresAt) {
		c.entries.Remove(key)
		return models.User{}, false
	}
	return entry.user, true
}

// Set stores user under key for ttl. A non positive ttl stores nothing.
func (c *Cache) Set(key string, user models.User, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.entries.Contains(key) && c.entries.Len() >= c.capacity {
		c.purgeLocked()
	}
	c.entries.Add(key, cacheEntry{user: user, expiresAt: c.now().Add(ttl)})
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

func (c *Cache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.purgeLocked()
}

func (c *Cache) purgeLocked() int {
	now := c.now()
	removed := 0
	for _, key := range c.entries.Keys() {
		entry, ok := c.entries.Peek(key)
		if ok && !now.Before(entry.expiresAt) {
			c.entries.Remove(key)
			removed++
		}
	}
	return removed
}

type noopCache struct{}

func (noopCache) Get(string) (models.User, bool)         { return models.User{}, false }
func (noopCache) Set(string, models.User, time.Duration) {}
func (noopCache) Len() int                               { return 0 }
func (noopCache) Purge() int                             { return 0 }
