package utils

import (
	"sync"
)

// WordCache memoises per-word results of a pure function. It is safe for
// concurrent use.
type WordCache struct {
	mu     sync.RWMutex
	items  map[string]int
	hits   int
	misses int
}

func NewWordCache() *WordCache {
	return &WordCache{
		items: make(map[string]int),
	}
}

// GetOrCompute returns the cached value for key, calling compute on a miss.
func (c *WordCache) GetOrCompute(key string, compute func(string) int) int {
	c.mu.RLock()
	value, exists := c.items[key]
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if exists {
		c.hits += 1
		return value
	}

	// another goroutine may have filled it between the two locks
	if value, exists = c.items[key]; exists {
		c.hits += 1
		return value
	}

	c.misses += 1
	value = compute(key)
	c.items[key] = value
	return value
}

func (c *WordCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *WordCache) HitRate() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.hits+c.misses > 0 {
		return float64(c.hits) / float64(c.hits+c.misses)
	} else {
		return 0.0
	}
}
