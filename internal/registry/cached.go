package registry

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// Cached wraps a Registry with a go-cache of positive FindByContent hits.
// Misses and errors are never cached, so a newly created record is visible
// on the next lookup. A cached hit cannot go stale: records are immutable
// and a later duplicate never wins the earliest-created tie-break.
type Cached struct {
	Registry
	cache *cache.Cache
}

// NewCached returns r wrapped with a lookup cache of the given TTL.
func NewCached(r Registry, ttl time.Duration) *Cached {
	return &Cached{Registry: r, cache: cache.New(ttl, 2*ttl)}
}

// FindByContent serves repeat hits from the cache.
func (c *Cached) FindByContent(ctx context.Context, content string) (Record, error) {
	if v, ok := c.cache.Get(content); ok {
		return v.(Record), nil
	}
	rec, err := c.Registry.FindByContent(ctx, content)
	if err != nil {
		return Record{}, err
	}
	c.cache.SetDefault(content, rec)
	return rec, nil
}

// Len returns the number of cached entries.
func (c *Cached) Len() int { return c.cache.ItemCount() }
