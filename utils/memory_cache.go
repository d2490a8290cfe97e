package utils

import (
	"sync"
	"time"
)

// CacheItem represents a cached item with expiration
type CacheItem struct {
	Value      interface{}
	Expiration time.Time
}

// MemoryCache is a bounded in-memory cache with per-item expiration.
// Expired items are dropped lazily on Get and when Set needs room.
type MemoryCache struct {
	items    map[string]*CacheItem
	mu       sync.RWMutex
	ttl      time.Duration
	maxItems int
	now      func() time.Time
}

// NewMemoryCache creates a cache holding at most maxItems for ttl each
func NewMemoryCache(ttl time.Duration, maxItems int) *MemoryCache {
	if maxItems <= 0 {
		maxItems = 1
	}
	return &MemoryCache{
		items:    make(map[string]*CacheItem),
		ttl:      ttl,
		maxItems: maxItems,
		now:      time.Now,
	}
}

// Set stores a value, evicting the item closest to expiry when full
func (c *MemoryCache) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; !exists && len(c.items) >= c.maxItems {
		c.cleanupLocked()
		if len(c.items) >= c.maxItems {
			c.evictOldestLocked()
		}
	}

	c.items[key] = &CacheItem{
		Value:      value,
		Expiration: c.now().Add(c.ttl),
	}
}

// Get retrieves a value from cache
func (c *MemoryCache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	item, exists := c.items[key]
	c.mu.RUnlock()

	if !exists {
		return nil, false
	}
	if c.now().After(item.Expiration) {
		c.Delete(key)
		return nil, false
	}
	return item.Value, true
}

// Delete removes an item from cache
func (c *MemoryCache) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Clear removes all items from cache
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	c.items = make(map[string]*CacheItem)
	c.mu.Unlock()
}

// Size returns the number of items in cache, expired ones included
func (c *MemoryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.items)
}

func (c *MemoryCache) cleanupLocked() {
	now := c.now()
	for key, item := range c.items {
		if now.After(item.Expiration) {
			delete(c.items, key)
		}
	}
}

func (c *MemoryCache) evictOldestLocked() {
	var oldest string
	var oldestExp time.Time
	for key, item := range c.items {
		if oldest == "" || item.Expiration.Before(oldestExp) {
			oldest, oldestExp = key, item.Expiration
		}
	}
	delete(c.items, oldest)
}
