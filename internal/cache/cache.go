// Package cache is a small capacity-bounded TTL cache used to shield the
// analytics query from repeated computation.
package cache

import (
	"sync"
	"time"
)

type entry struct {
	value    interface{}
	expires  time.Time
	lastUsed time.Time
}

// Cache holds values for a fixed TTL, evicting the least recently used entry
// when the capacity bound is reached. Safe for concurrent use.
type Cache struct {
	ttl      time.Duration
	capacity int
	now      func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

// New builds a cache. A non-positive capacity defaults to 128; a non-positive
// TTL means entries expire immediately, effectively disabling the cache.
func New(ttl time.Duration, capacity int) *Cache {
	if capacity <= 0 {
		capacity = 128
	}
	return &Cache{
		ttl:      ttl,
		capacity: capacity,
		now:      time.Now,
		entries:  make(map[string]*entry),
	}
}

// Get returns the cached value for key if present and unexpired.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	now := c.now()
	if !now.Before(e.expires) {
		delete(c.entries, key)
		return nil, false
	}
	e.lastUsed = now
	return e.value, true
}

// Set stores value under key, evicting the least recently used entry when
// the cache is full.
func (c *Cache) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if _, ok := c.entries[key]; !ok && len(c.entries) >= c.capacity {
		c.evictLocked(now)
	}
	c.entries[key] = &entry{
		value:    value,
		expires:  now.Add(c.ttl),
		lastUsed: now,
	}
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) evictLocked(now time.Time) {
	var victim string
	var oldest time.Time
	for key, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, key)
			return
		}
		if victim == "" || e.lastUsed.Before(oldest) {
			victim = key
			oldest = e.lastUsed
		}
	}
	if victim != "" {
		delete(c.entries, victim)
	}
}
