// Package blockcache provides the two LRU block caches the resource manager
// constructs at startup. The LRU eviction policy itself is not this
// module's concern — the concrete block content stays opaque — so it is
// backed by hashicorp/golang-lru.
package blockcache

import (
	lru "github.com/hashicorp/golang-lru"

	"github.com/willmurnane/tabletrm/pkg/rmstats"
)

// Cache is a fixed-capacity LRU cache of opaque blocks keyed by an opaque
// identity, typically a file range.
type Cache struct {
	blockSize int64
	inner     *lru.Cache
	stats     rmstats.Collector
}

// New creates a Cache sized to hold roughly sizeBytes/blockSize entries. An
// eviction increments rmstats.EventCacheEviction on stats, so operators can
// see cache pressure without this package needing to expose metrics itself.
func New(sizeBytes, blockSize int64, stats rmstats.Collector) (*Cache, error) {
	if blockSize <= 0 {
		blockSize = 1
	}
	entries := int(sizeBytes / blockSize)
	if entries < 1 {
		entries = 1
	}

	c := &Cache{blockSize: blockSize, stats: stats}
	inner, err := lru.NewWithEvict(entries, func(key, value interface{}) {
		c.stats.Track(rmstats.EventCacheEviction)
	})
	if err != nil {
		return nil, err
	}
	c.inner = inner
	return c, nil
}

// Get returns the cached block for key, if present.
func (c *Cache) Get(key string) ([]byte, bool) {
	v, ok := c.inner.Get(key)
	if !ok {
		return nil, false
	}
	return v.([]byte), true
}

// Put inserts or replaces the block for key.
func (c *Cache) Put(key string, block []byte) {
	c.inner.Add(key, block)
}

// Len returns the number of blocks currently cached.
func (c *Cache) Len() int { return c.inner.Len() }

// Purge evicts every entry; resmgr.Manager.Close calls it to release memory
// promptly.
func (c *Cache) Purge() { c.inner.Purge() }
