package cache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ads97/Veritas/internal/model"
)

func TestCacheKey(t *testing.T) {
	a := CacheKey("search", "jane doe 123 main st", "5")
	b := CacheKey("search", "jane doe 123 main st", "5")
	c := CacheKey("search", "jane doe 123 main st", "10")
	d := CacheKey("scrape", "jane doe 123 main st", "5")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d)
	assert.True(t, strings.HasPrefix(a, KeyPrefix+"search:"))
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute, time.Minute)

	_, ok := c.Get(ctx, "missing")
	assert.False(t, ok)

	value := []byte("hello")
	require.NoError(t, c.Set(ctx, "k", value, 0))
	value[0] = 'j'

	got, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "hello", string(got))
	assert.Equal(t, 1, c.itemCount())

	require.NoError(t, c.Delete(ctx, "k"))
	_, ok = c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute, time.Minute)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestDiskCache(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "cache")
	c := NewDiskCache(dir, time.Hour)

	key := CacheKey("scrape", "https://example.com")
	require.NoError(t, c.Set(ctx, key, []byte("# page"), 0))

	got, ok := c.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, "# page", string(got))

	require.NoError(t, c.Delete(ctx, key))
	require.NoError(t, c.Delete(ctx, key), "deleting a missing key is not an error")

	require.NoError(t, c.Set(ctx, key, []byte("x"), 0))
	require.NoError(t, c.Clear(ctx))
	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestDiskCache_Expired(t *testing.T) {
	ctx := context.Background()
	c := NewDiskCache(t.TempDir(), time.Hour)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Millisecond))
	time.Sleep(10 * time.Millisecond)

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first := NewLayeredCache(time.Minute, dir, time.Hour)
	require.NoError(t, first.Set(ctx, "k", []byte("v"), 0))

	// A fresh layered cache over the same dir starts with an empty memory layer
	second := NewLayeredCache(time.Minute, dir, time.Hour)
	got, ok := second.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "v", string(got))

	mem := second.memory.(*MemoryCache)
	assert.Equal(t, 1, mem.itemCount())
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute, time.Minute)

	hits := []model.SearchHit{{Title: "Jane Doe", Link: "https://example.com/a"}}
	require.NoError(t, SetJSON(ctx, c, "hits", hits, 0))

	got, ok := GetJSON[[]model.SearchHit](ctx, c, "hits")
	require.True(t, ok)
	assert.Equal(t, hits, got)

	require.NoError(t, c.Set(ctx, "bad", []byte("{not json"), 0))
	_, ok = GetJSON[[]model.SearchHit](ctx, c, "bad")
	assert.False(t, ok)
}

func TestNew(t *testing.T) {
	tests := []struct {
		backend string
		wantErr bool
	}{
		{"", false},
		{"memory", false},
		{"disk", false},
		{"layered", false},
		{"redis", true}, // no address configured
		{"memcached", true},
	}

	for _, tc := range tests {
		t.Run(tc.backend, func(t *testing.T) {
			c, err := New(model.CacheConfig{Backend: tc.backend, Dir: t.TempDir(), TTL: time.Minute})
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, c)
		})
	}
}
