package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUPutGet(t *testing.T) {
	ctx := context.Background()
	c := NewLRU(4)

	c.Put(ctx, "a", []byte("1"), 0)
	value, found := c.Get(ctx, "a")
	require.True(t, found)
	assert.Equal(t, []byte("1"), value)

	_, found = c.Get(ctx, "missing")
	assert.False(t, found)
}

func TestLRUUpdateExistingKey(t *testing.T) {
	ctx := context.Background()
	c := NewLRU(4)

	c.Put(ctx, "a", []byte("1"), 0)
	c.Put(ctx, "a", []byte("2"), 0)

	value, found := c.Get(ctx, "a")
	require.True(t, found)
	assert.Equal(t, []byte("2"), value)
	assert.Equal(t, 1, c.Len())
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	c := NewLRU(2)

	c.Put(ctx, "a", []byte("1"), 0)
	c.Put(ctx, "b", []byte("2"), 0)

	// 读a使其成为最近使用，随后写c应淘汰b
	_, found := c.Get(ctx, "a")
	require.True(t, found)
	c.Put(ctx, "c", []byte("3"), 0)

	_, found = c.Get(ctx, "a")
	assert.True(t, found)
	_, found = c.Get(ctx, "b")
	assert.False(t, found, "最久未使用的条目应被淘汰")
	_, found = c.Get(ctx, "c")
	assert.True(t, found)
	assert.Equal(t, 2, c.Len())
}

func TestLRUExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewLRU(4)
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return current }

	c.Put(ctx, "a", []byte("1"), time.Minute)
	c.Put(ctx, "b", []byte("2"), 0)

	_, found := c.Get(ctx, "a")
	assert.True(t, found)

	// 推进到刚好过期之后
	current = current.Add(time.Minute + time.Second)
	_, found = c.Get(ctx, "a")
	assert.False(t, found, "超过ttl后条目应失效")
	_, found = c.Get(ctx, "b")
	assert.True(t, found, "ttl为0的条目不过期")

	// 过期条目被惰性清除
	assert.Equal(t, 1, c.Len())
}

func TestLRUDefaultCapacity(t *testing.T) {
	c := NewLRU(0)
	assert.Equal(t, defaultLRUCapacity, c.capacity)
}
