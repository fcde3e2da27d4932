package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSearchCacheExpiry(t *testing.T) {
	c := NewSearchCache[[]int](10, time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("nolan", []int{1, 2})
	got, ok := c.Get("nolan")
	assert.True(t, ok)
	assert.Equal(t, []int{1, 2}, got)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("nolan")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestSearchCacheEvictsOldest(t *testing.T) {
	c := NewSearchCache[string](2, time.Hour)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Set("c", "3")

	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 2, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestListCacheNoExpiry(t *testing.T) {
	c := NewListCache(0)
	c.SetDefault("all", 42)
	v, ok := c.Get("all")
	assert.True(t, ok)
	assert.Equal(t, 42, v)
}
