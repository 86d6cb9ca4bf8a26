package adapters

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTLCacheExpiry(t *testing.T) {
	c := NewTTLCache[float64](10 * time.Millisecond)
	c.Set("eth:0xabc", 1.23)

	v, ok := c.Get("eth:0xabc")
	assert.True(t, ok)
	assert.Equal(t, 1.23, v)

	time.Sleep(20 * time.Millisecond)
	_, ok = c.Get("eth:0xabc")
	assert.False(t, ok, "entry should have expired")
}

func TestTTLCachePurge(t *testing.T) {
	c := NewTTLCache[int](5 * time.Millisecond)
	c.Set("a", 1)
	c.Set("b", 2)
	time.Sleep(10 * time.Millisecond)
	c.Purge()
	assert.Equal(t, 0, c.Len())
}
