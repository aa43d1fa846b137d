package lexicon

import (
	"context"
	"fmt"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of (form, limit) results kept by NewCache
// when size is not positive.
const DefaultCacheSize = 10_000

type cacheKey struct {
	form  string
	limit Limit
}

// Cache memoizes lookups of another Lexicon. Misses are cached too; errors
// are not. The LRU is safe for concurrent use.
type Cache struct {
	next  Lexicon
	cache *lru.Cache[cacheKey, []Candidate]
}

// NewCache wraps next with an LRU of size entries.
func NewCache(next Lexicon, size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[cacheKey, []Candidate](size)
	if err != nil {
		return nil, fmt.Errorf("create lexicon cache: %w", err)
	}
	return &Cache{next: next, cache: c}, nil
}

// Lookup implements Lexicon.
func (c *Cache) Lookup(ctx context.Context, form string, limit Limit) ([]Candidate, error) {
	key := cacheKey{form: form, limit: limit}
	if cs, ok := c.cache.Get(key); ok {
		return slices.Clone(cs), nil
	}

	cs, err := c.next.Lookup(ctx, form, limit)
	if err != nil {
		return cs, err
	}
	c.cache.Add(key, slices.Clone(cs))
	return cs, nil
}

// Purge drops every cached result, e.g. after the underlying lexicon reloads.
func (c *Cache) Purge() {
	c.cache.Purge()
}

// Len returns the number of cached results.
func (c *Cache) Len() int {
	return c.cache.Len()
}
