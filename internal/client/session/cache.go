package session

import "sync"

// CacheKey scopes cached results to an authentication generation. Any
// change to the logged-in state or a manual refresh produces a new key,
// so stale entries can never be served across a login boundary.
type CacheKey struct {
	Authenticated bool
	RefreshKey    uint64
}

type cacheEntry struct {
	key   CacheKey
	value any
}

// Cache is an explicit, owned result cache for expensive dashboard
// fetches. Entries are named, and each entry remembers the key it was
// computed under; a lookup with a different key is a miss.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

// NewCache creates an empty Cache
func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry)}
}

// Get returns the value cached under name, if it was stored with the
// same key.
func (c *Cache) Get(name string, key CacheKey) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[name]
	if !ok || entry.key != key {
		return nil, false
	}
	return entry.value, true
}

// Set stores value under name for the given key, replacing any prior
// entry regardless of its key.
func (c *Cache) Set(name string, key CacheKey, value any) {
	c.mu.Lock()
	c.entries[name] = cacheEntry{key: key, value: value}
	c.mu.Unlock()
}

// Invalidate drops every entry
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}
