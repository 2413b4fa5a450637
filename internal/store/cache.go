package store

import (
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Cache is an in-memory TTL cache for completed vetting reports. Keys are
// normalized domains; hits for expired entries behave as misses.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]*cacheEntry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
	logger     *logrus.Logger
}

type cacheEntry struct {
	value    interface{}
	storedAt time.Time
}

func NewCache(ttl time.Duration, maxEntries int, logger *logrus.Logger) *Cache {
	if maxEntries <= 0 {
		maxEntries = 500
	}
	return &Cache{
		entries:    make(map[string]*cacheEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
		logger:     logger,
	}
}

// Get returns the cached value for key, or (nil, false) on a miss or an
// expired entry. Expired entries are removed on access.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.storedAt) > c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return entry.value, true
}

// Set stores a value under key. When the cache is full the oldest fifth of
// the entries is evicted to make room.
func (c *Cache) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldest()
	}
	c.entries[key] = &cacheEntry{value: value, storedAt: c.now()}
}

// Delete removes a key if present.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len reports the current entry count, expired entries included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evictOldest drops the oldest 20% of entries (at least one). Caller holds
// the lock.
func (c *Cache) evictOldest() {
	type aged struct {
		key      string
		storedAt time.Time
	}
	all := make([]aged, 0, len(c.entries))
	for k, e := range c.entries {
		all = append(all, aged{k, e.storedAt})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].storedAt.Before(all[j].storedAt) })

	n := len(all) / 5
	if n < 1 {
		n = 1
	}
	for _, a := range all[:n] {
		delete(c.entries, a.key)
	}
	if c.logger != nil {
		c.logger.WithField("evicted", n).Debug("Cache capacity reached, evicted oldest entries")
	}
}
