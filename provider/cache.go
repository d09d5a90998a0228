package provider

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/cwbudde/algo-modal/contact"
	"github.com/cwbudde/algo-modal/modal"
)

// Cache is a read-through model cache in front of a Provider. Entries are
// keyed by mesh geometry and material, so objects sharing a mesh share one
// model. Concurrent misses for one key issue a single fetch.
type Cache struct {
	next Provider

	mu     sync.RWMutex
	models map[string]*modal.Model
	group  singleflight.Group
}

// NewCache wraps next.
func NewCache(next Provider) *Cache {
	return &Cache{next: next, models: make(map[string]*modal.Model)}
}

// Key returns the cache key of mesh and mat.
func Key(mesh *contact.Mesh, mat Material) string {
	h := sha256.New()
	h.Write([]byte(mesh.Key()))
	var buf [8]byte
	for _, v := range [...]float64{mat.Youngs, mat.Thickness, mat.Density, mat.Visco, mat.Fluid} {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		h.Write(buf[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}

// FetchModel implements Provider. Failures are not cached. The returned
// model is shared and must be treated as read-only.
func (c *Cache) FetchModel(ctx context.Context, id string, mesh *contact.Mesh, mat Material) (*modal.Model, error) {
	key := Key(mesh, mat)
	c.mu.RLock()
	m, ok := c.models[key]
	c.mu.RUnlock()
	if ok {
		return m, nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		c.mu.RLock()
		m, ok := c.models[key]
		c.mu.RUnlock()
		if ok {
			return m, nil
		}
		m, err := c.next.FetchModel(ctx, id, mesh, mat)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.models[key] = m
		c.mu.Unlock()
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*modal.Model), nil
}

// Len returns the number of cached models.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.models)
}
