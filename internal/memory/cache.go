package memory

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ProfileSource is a read-only profile fetch.
type ProfileSource interface {
	GetProfile(ctx context.Context, id string) (Profile, error)
}

// DefaultProfileCacheSize bounds CachedSource when no size is given.
const DefaultProfileCacheSize = 64

// CachedSource keeps recently fetched profiles in a bounded LRU. Profiles
// are immutable after creation, so entries are only dropped by eviction or
// Invalidate.
type CachedSource struct {
	src   ProfileSource
	cache *lru.Cache[string, Profile]
}

// NewCachedSource wraps src with an LRU of the given size.
func NewCachedSource(src ProfileSource, size int) (*CachedSource, error) {
	if size <= 0 {
		size = DefaultProfileCacheSize
	}
	c, err := lru.New[string, Profile](size)
	if err != nil {
		return nil, fmt.Errorf("profile cache: %w", err)
	}
	return &CachedSource{src: src, cache: c}, nil
}

// GetProfile returns the cached profile or fetches and caches it.
func (c *CachedSource) GetProfile(ctx context.Context, id string) (Profile, error) {
	if p, ok := c.cache.Get(id); ok {
		return p, nil
	}
	p, err := c.src.GetProfile(ctx, id)
	if err != nil {
		return p, err
	}
	c.cache.Add(id, p)
	return p, nil
}

// Invalidate drops id from the cache.
func (c *CachedSource) Invalidate(id string) {
	c.cache.Remove(id)
}

// Len returns the number of cached profiles.
func (c *CachedSource) Len() int {
	return c.cache.Len()
}
