package cache

import (
	"sync"

	"go.uber.org/zap"

	"github.com/oneboxhq/onebox/internal/core"
)

// MemoryCache is an in-memory, insertion-ordered implementation of the
// CategoryCache interface. When the cache reaches capacity, the
// oldest-inserted entry is evicted first.
type MemoryCache struct {
	mu       sync.RWMutex
	entries  map[string]core.Category
	order    []string
	capacity int
	logger   *zap.Logger
}

// NewMemoryCache creates a new bounded in-memory cache
func NewMemoryCache(capacity int, logger *zap.Logger) *MemoryCache {
	if capacity <= 0 {
		capacity = 1000
	}
	return &MemoryCache{
		entries:  make(map[string]core.Category, capacity),
		order:    make([]string, 0, capacity),
		capacity: capacity,
		logger:   logger,
	}
}

// Get retrieves a cached category for a content key
func (c *MemoryCache) Get(key string) (core.Category, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	category, ok := c.entries[key]
	return category, ok
}

// Set stores a category for a content key, evicting the oldest entry
// when the cache is full. Updating an existing key keeps its original
// insertion position.
func (c *MemoryCache) Set(key string, category core.Category) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		c.entries[key] = category
		return
	}

	if len(c.order) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
		c.logger.Debug("Evicted oldest cache entry", zap.String("key", oldest))
	}

	c.entries[key] = category
	c.order = append(c.order, key)
}

// Len reports the number of cached entries
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}
