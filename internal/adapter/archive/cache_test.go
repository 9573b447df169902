package archive

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/couchcryptid/hms-wildfire-etl/internal/domain"
	"github.com/couchcryptid/hms-wildfire-etl/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock for cache tests ---

type countingSource struct {
	mu    sync.Mutex
	calls map[string]int
	err   error
}

func (s *countingSource) Read(_ context.Context, location string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[location]++
	if s.err != nil {
		return nil, s.err
	}
	// Each read returns a new revision, like an archive republished upstream.
	return fmt.Appendf(nil, "%s#%d", location, s.calls[location]), nil
}

// --- CachedSource tests ---

func TestCachedSource_Hit(t *testing.T) {
	inner := &countingSource{}
	metrics := observability.NewMetricsForTesting()
	cached := NewCachedSource(inner, 10, metrics)

	d1, err := cached.Read(context.Background(), "a.zip")
	require.NoError(t, err)
	d2, err := cached.Read(context.Background(), "a.zip")
	require.NoError(t, err)

	assert.Equal(t, d1, d2)
	assert.Equal(t, 1, inner.calls["a.zip"], "should only call inner once")
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ArchiveCache.WithLabelValues("hit")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ArchiveCache.WithLabelValues("miss")), 0)
}

func TestCachedSource_FreshFetchRereads(t *testing.T) {
	inner := &countingSource{}
	metrics := observability.NewMetricsForTesting()
	cached := NewCachedSource(inner, 10, metrics)
	ctx := context.Background()

	first, err := cached.Read(ctx, "a.zip")
	require.NoError(t, err)
	assert.Equal(t, []byte("a.zip#1"), first)

	fresh, err := cached.Read(domain.WithFreshFetch(ctx), "a.zip")
	require.NoError(t, err)
	assert.Equal(t, []byte("a.zip#2"), fresh)

	again, err := cached.Read(ctx, "a.zip")
	require.NoError(t, err)
	assert.Equal(t, []byte("a.zip#2"), again, "the fresh read replaces the cached copy")

	assert.Equal(t, 2, inner.calls["a.zip"])
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ArchiveCache.WithLabelValues("bypass")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ArchiveCache.WithLabelValues("hit")), 0)
}

func TestCachedSource_ErrorsNotCached(t *testing.T) {
	inner := &countingSource{err: errors.New("boom")}
	cached := NewCachedSource(inner, 10, observability.NewMetricsForTesting())

	_, err := cached.Read(context.Background(), "a.zip")
	require.Error(t, err)
	_, err = cached.Read(context.Background(), "a.zip")
	require.Error(t, err)

	assert.Equal(t, 2, inner.calls["a.zip"])
}

func TestCachedSource_Disabled(t *testing.T) {
	inner := &countingSource{}
	cached := NewCachedSource(inner, 0, observability.NewMetricsForTesting())

	_, _ = cached.Read(context.Background(), "a.zip")
	_, _ = cached.Read(context.Background(), "a.zip")

	assert.Equal(t, 2, inner.calls["a.zip"])
}

// --- LRU tests ---

func TestLRUCache_Eviction(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", []byte("1"))
	c.put("b", []byte("2"))
	c.put("c", []byte("3")) // should evict "a"

	_, ok := c.get("a")
	assert.False(t, ok, "a should be evicted")

	v, ok := c.get("b")
	assert.True(t, ok)
	assert.Equal(t, []byte("2"), v)
}

func TestLRUCache_AccessRefreshes(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", []byte("1"))
	c.put("b", []byte("2"))
	c.get("a")              // refresh "a"
	c.put("c", []byte("3")) // should evict "b"

	_, ok := c.get("b")
	assert.False(t, ok, "b should be evicted")
	_, ok = c.get("a")
	assert.True(t, ok, "a should survive")
}

func TestLRUCache_Update(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", []byte("1"))
	c.put("a", []byte("2"))

	v, ok := c.get("a")
	require.True(t, ok)
	assert.Equal(t, []byte("2"), v)
	assert.Equal(t, 1, c.len())
}
