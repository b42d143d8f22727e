package cache

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/oneboxhq/onebox/internal/core"
)

func TestMemoryCacheGetSet(t *testing.T) {
	c := NewMemoryCache(10, zap.NewNop())

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("k1", core.CategorySpam)
	got, ok := c.Get("k1")
	assert.True(t, ok)
	assert.Equal(t, core.CategorySpam, got)
}

func TestMemoryCacheNeverExceedsCapacity(t *testing.T) {
	c := NewMemoryCache(5, zap.NewNop())

	for i := 0; i < 20; i++ {
		c.Set(fmt.Sprintf("key-%d", i), core.CategoryNotInterested)
		assert.LessOrEqual(t, c.Len(), 5)
	}
	assert.Equal(t, 5, c.Len())
}

func TestMemoryCacheEvictsOldestFirst(t *testing.T) {
	c := NewMemoryCache(3, zap.NewNop())

	c.Set("a", core.CategorySpam)
	c.Set("b", core.CategoryInterested)
	c.Set("c", core.CategoryMeetingBooked)
	c.Set("d", core.CategoryOutOfOffice)

	_, ok := c.Get("a")
	assert.False(t, ok, "oldest entry must be evicted first")

	for _, key := range []string{"b", "c", "d"} {
		_, ok := c.Get(key)
		assert.True(t, ok, "entry %q should survive", key)
	}
}

func TestMemoryCacheUpdateDoesNotGrow(t *testing.T) {
	c := NewMemoryCache(2, zap.NewNop())

	c.Set("a", core.CategorySpam)
	c.Set("b", core.CategoryInterested)
	c.Set("a", core.CategoryNotInterested)

	assert.Equal(t, 2, c.Len())
	got, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, core.CategoryNotInterested, got)

	// The updated key keeps its insertion position: "a" is still oldest
	c.Set("c", core.CategoryOutOfOffice)
	_, ok = c.Get("a")
	assert.False(t, ok)
}
