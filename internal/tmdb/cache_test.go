package tmdb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_GetSet(t *testing.T) {
	c := newCache(time.Hour)
	key := cacheKey{kind: "tv", id: 1396}

	_, ok := c.get(key)
	assert.False(t, ok, "empty cache should miss")

	c.set(key, ExternalIDs{ID: 1396, TVDBID: 81189})
	got, ok := c.get(key)
	require.True(t, ok)
	assert.Equal(t, int64(81189), got.TVDBID)

	_, ok = c.get(cacheKey{kind: "movie", id: 1396})
	assert.False(t, ok, "same id under another kind should miss")
}

func TestCache_Expiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := newCache(time.Minute)
	c.now = func() time.Time { return now }

	key := cacheKey{kind: "movie", id: 1}
	c.set(key, ExternalIDs{ID: 1})
	_, ok := c.get(key)
	require.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = c.get(key)
	assert.False(t, ok, "should miss after TTL")
}
