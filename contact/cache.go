package contact

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// IndexCache is a process-wide read-through cache of spatial indices keyed
// by mesh content. Entries are never invalidated.
type IndexCache struct {
	mu    sync.RWMutex
	byKey map[string]*Index
	group singleflight.Group
}

// NewIndexCache creates an empty cache.
func NewIndexCache() *IndexCache {
	return &IndexCache{byKey: make(map[string]*Index)}
}

// Get returns the index for m, building it once per distinct geometry.
// Concurrent misses for the same geometry share one build.
func (c *IndexCache) Get(m *Mesh) (*Index, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	key := m.Key()
	c.mu.RLock()
	ix, ok := c.byKey[key]
	c.mu.RUnlock()
	if ok {
		return ix, nil
	}
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		c.mu.RLock()
		ix, ok := c.byKey[key]
		c.mu.RUnlock()
		if ok {
			return ix, nil
		}
		ix, err := NewIndex(m)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.byKey[key] = ix
		c.mu.Unlock()
		return ix, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Index), nil
}

// Len returns the number of cached indices.
func (c *IndexCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byKey)
}
