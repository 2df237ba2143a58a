package distance

import "sync"

// pairKey canonicalises a pair of node IDs so the cache is order-insensitive.
type pairKey struct {
	lo, hi uint32
}

func keyFor(i, j uint32) pairKey {
	if i < j {
		return pairKey{i, j}
	}
	return pairKey{j, i}
}

// Cache is a symmetric pair->distance cache consulted only during graph
// construction. Capacity is an advisory pre-allocation hint, not a limit:
// entries are never evicted, only dropped by Resize(_, false). Lookups are
// O(1) average via a plain map.
type Cache struct {
	mu      sync.Mutex
	values  map[pairKey]float32
	hits    uint64
	total   uint64
	maxSize int
}

// NewCache creates a cache pre-sized for size entries.
func NewCache(size int) *Cache {
	if size < 0 {
		size = 0
	}
	return &Cache{
		values:  make(map[pairKey]float32, size),
		maxSize: size,
	}
}

// GetValue returns the cached distance between i and j, computing and
// inserting it via compute if absent.
func (c *Cache) GetValue(i, j uint32, compute func(i, j uint32) float32) float32 {
	k := keyFor(i, j)

	c.mu.Lock()
	c.total++
	if v, ok := c.values[k]; ok {
		c.hits++
		c.mu.Unlock()
		return v
	}
	c.mu.Unlock()

	v := compute(i, j)

	c.mu.Lock()
	c.values[k] = v
	c.mu.Unlock()

	return v
}

// Resize grows or shrinks the cache's advisory capacity. When preserve is
// false, all entries are dropped; otherwise existing entries are kept and
// rehashed into a map sized for newSize.
func (c *Cache) Resize(newSize int, preserve bool) {
	if newSize < 0 {
		newSize = 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.maxSize = newSize

	if !preserve {
		c.values = make(map[pairKey]float32, newSize)
		return
	}

	rehashed := make(map[pairKey]float32, newSize)
	for k, v := range c.values {
		rehashed[k] = v
	}
	c.values = rehashed
}

// HitRate reports hits/totalCalls observed so far, in [0, 1]. An empty
// cache (no calls yet) reports 0.
func (c *Cache) HitRate() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.total == 0 {
		return 0
	}
	return float64(c.hits) / float64(c.total)
}

// Len returns the number of cached pairs.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.values)
}
