package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDisabledCacheIsAMiss(t *testing.T) {
	ctx := context.Background()
	c := New(nil, "bookstore:")

	assert.False(t, c.Enabled())
	assert.NoError(t, c.Set(ctx, "k", map[string]int{"a": 1}, time.Minute))

	var out map[string]int
	assert.False(t, c.Get(ctx, "k", &out))
	assert.Nil(t, out)
	assert.NoError(t, c.Del(ctx, "k"))
}

func TestNilCacheIsSafe(t *testing.T) {
	var c *Cache
	var out string
	assert.False(t, c.Get(context.Background(), "k", &out))
	assert.NoError(t, c.Del(context.Background(), "k"))
}
