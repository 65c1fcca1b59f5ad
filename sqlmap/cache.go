package sqlmap

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/maxpert/sqlmap/telemetry"
	"golang.org/x/sync/singleflight"
)

// storeVersioner is implemented by resolvers that can report when their
// backing store changed (TemplateResolver does).
type storeVersioner interface {
	StoreVersion() uint64
}

// CachingResolver memoizes successful resolutions of another Resolver.
// Concurrent first requests for the same key share a single resolution.
// Entries are keyed by store version, so a reload makes old entries unreachable.
type CachingResolver struct {
	next  Resolver
	cache *lru.Cache[uint64, *Definition]
	group singleflight.Group
}

// NewCachingResolver wraps next with an LRU of the given size.
func NewCachingResolver(next Resolver, size int) (*CachingResolver, error) {
	cache, err := lru.New[uint64, *Definition](size)
	if err != nil {
		return nil, err
	}
	return &CachingResolver{next: next, cache: cache}, nil
}

// Resolve implements Resolver. Callers always get their own copy.
func (c *CachingResolver) Resolve(id, shard string) (*Definition, error) {
	key := c.key(id, shard)
	if def, ok := c.cache.Get(key); ok {
		telemetry.CacheRequestsTotal.With("hit").Inc()
		return def.Clone(), nil
	}
	telemetry.CacheRequestsTotal.With("miss").Inc()

	v, err, _ := c.group.Do(strconv.FormatUint(key, 16), func() (interface{}, error) {
		if def, ok := c.cache.Get(key); ok {
			return def, nil
		}
		def, err := c.next.Resolve(id, shard)
		if err != nil {
			return nil, err
		}
		c.cache.Add(key, def)
		return def, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Definition).Clone(), nil
}

// Purge drops every cached definition.
func (c *CachingResolver) Purge() {
	c.cache.Purge()
}

// Len returns the number of cached definitions.
func (c *CachingResolver) Len() int {
	return c.cache.Len()
}

func (c *CachingResolver) key(id, shard string) uint64 {
	var version uint64
	if v, ok := c.next.(storeVersioner); ok {
		version = v.StoreVersion()
	}
	d := xxhash.New()
	_, _ = d.WriteString(strconv.FormatUint(version, 16))
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(id)
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(shard)
	return d.Sum64()
}
