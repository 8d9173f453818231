// Package cache provides the process-wide parse caches.
package cache

import "sync"

// Cache is a concurrent read-through map. Entries are never evicted.
// Failed loads are not stored.
type Cache[V any] struct {
	entries sync.Map
}

// Get returns the value for key, calling load on a miss. Concurrent misses
// for the same key may each call load; the first stored value wins.
func (c *Cache[V]) Get(key string, load func() (V, error)) (V, error) {
	if v, ok := c.entries.Load(key); ok {
		return v.(V), nil
	}
	v, err := load()
	if err != nil {
		var zero V
		return zero, err
	}
	actual, _ := c.entries.LoadOrStore(key, v)
	return actual.(V), nil
}

// Len returns the number of cached entries.
func (c *Cache[V]) Len() int {
	n := 0
	c.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Reset drops every entry. It is intended for tests.
func (c *Cache[V]) Reset() {
	c.entries.Clear()
}
