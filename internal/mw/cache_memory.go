package mw

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryCache keeps responses in process.
type MemoryCache struct {
	c *cache.Cache
}

// NewMemoryCache creates an in-process store that sweeps expired entries every cleanup.
func NewMemoryCache(ttl, cleanup time.Duration) *MemoryCache {
	return &MemoryCache{c: cache.New(ttl, cleanup)}
}

func (m *MemoryCache) Get(_ context.Context, key string) (*CachedResponse, bool) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, false
	}
	resp, ok := v.(*CachedResponse)
	return resp, ok
}

func (m *MemoryCache) Set(_ context.Context, key string, resp *CachedResponse, ttl time.Duration) {
	m.c.Set(key, resp, ttl)
}

func (m *MemoryCache) Flush(context.Context) error {
	m.c.Flush()
	return nil
}
