// Package cache is the in-process content cache. Entries map a head
// commit ID to the full logical payload for that head — never a single
// segment. There is no eviction and no TTL: the cache lives as long as
// the process and is shared by every open handle, so writers must keep
// it coherent by putting the complete payload under the new head key.
package cache

import "sync"

// Cache is a concurrency-safe map of commit ID to payload bytes.
type Cache struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[string][]byte)}
}

// Get returns a copy of the payload stored under id.
func (c *Cache) Get(id string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	content, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	out := make([]byte, len(content))
	copy(out, content)
	return out, true
}

// Put stores a copy of content under id, replacing any prior entry.
func (c *Cache) Put(id string, content []byte) {
	stored := make([]byte, len(content))
	copy(stored, content)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = stored
}

// Remove deletes the entry for id, if present.
func (c *Cache) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string][]byte)
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
