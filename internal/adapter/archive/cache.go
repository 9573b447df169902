package archive

import (
	"container/list"
	"context"
	"sync"

	"github.com/couchcryptid/hms-wildfire-etl/internal/domain"
	"github.com/couchcryptid/hms-wildfire-etl/internal/observability"
	"golang.org/x/sync/singleflight"
)

// CachedSource keeps recently read archives in memory, keyed by location, so
// overlapping date windows across cycles reuse downloads. Concurrent misses
// for one location share a single inner read. Nothing outlives the process.
//
// Upstream republishes the most recent day's archive as detections arrive, so
// a context marked with domain.WithFreshFetch skips the lookup and replaces
// the cached copy with a new read.
type CachedSource struct {
	inner    Source
	lru      *lruCache
	inflight singleflight.Group
	metrics  *observability.Metrics
}

// NewCachedSource decorates inner with an LRU of at most maxEntries archives.
// maxEntries <= 0 disables retention.
func NewCachedSource(inner Source, maxEntries int, metrics *observability.Metrics) *CachedSource {
	return &CachedSource{
		inner:   inner,
		lru:     newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedSource) Read(ctx context.Context, location string) ([]byte, error) {
	fresh := domain.IsFreshFetch(ctx)
	if !fresh {
		if data, ok := c.lru.get(location); ok {
			c.metrics.ArchiveCache.WithLabelValues("hit").Inc()
			return data, nil
		}
	}

	v, err, shared := c.inflight.Do(location, func() (any, error) {
		data, err := c.inner.Read(ctx, location)
		if err != nil {
			return nil, err
		}
		c.lru.put(location, data)
		return data, nil
	})
	switch {
	case shared:
		c.metrics.ArchiveCache.WithLabelValues("shared").Inc()
	case fresh:
		c.metrics.ArchiveCache.WithLabelValues("bypass").Inc()
	default:
		c.metrics.ArchiveCache.WithLabelValues("miss").Inc()
	}
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// lruCache is a mutex-guarded LRU over container/list. Front is most recent.
type lruCache struct {
	mu    sync.Mutex
	limit int
	order *list.List
	index map[string]*list.Element
}

type cached struct {
	location string
	data     []byte
}

func newLRUCache(limit int) *lruCache {
	return &lruCache{
		limit: limit,
		order: list.New(),
		index: make(map[string]*list.Element),
	}
}

func (c *lruCache) get(location string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.index[location]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cached).data, true
}

func (c *lruCache) put(location string, data []byte) {
	if c.limit <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.index[location]; ok {
		el.Value.(*cached).data = data
		c.order.MoveToFront(el)
		return
	}
	c.index[location] = c.order.PushFront(&cached{location: location, data: data})

	for c.order.Len() > c.limit {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.index, oldest.Value.(*cached).location)
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
