package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/grafops/grafana-console/pkg/grafana"
	"github.com/grafops/grafana-console/pkg/observability"
)

// DefaultMemorySize caps the number of organizations held in memory
const DefaultMemorySize = 256

// MemoryCache is a single-process cache on an expirable LRU. Staleness is
// decided against the injected clock so the TTL is testable without sleeping.
type MemoryCache struct {
	lru     *expirable.LRU[int64, entry]
	loader  Loader
	ttl     time.Duration
	now     func() time.Time
	metrics *observability.Metrics

	hits      uint64
	misses    uint64
	refreshes uint64
}

// NewMemoryCache creates an in-memory cache. Size <= 0 and ttl <= 0 fall
// back to defaults; metrics may be nil.
func NewMemoryCache(loader Loader, size int, ttl time.Duration, metrics *observability.Metrics) *MemoryCache {
	if size <= 0 {
		size = DefaultMemorySize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryCache{
		lru:     expirable.NewLRU[int64, entry](size, nil, ttl),
		loader:  loader,
		ttl:     ttl,
		now:     time.Now,
		metrics: metrics,
	}
}

func (c *MemoryCache) Get(ctx context.Context, orgID int64) ([]grafana.OrgUser, error) {
	if e, ok := c.lru.Get(orgID); ok && c.now().Sub(e.FetchedAt) < c.ttl {
		atomic.AddUint64(&c.hits, 1)
		if c.metrics != nil {
			c.metrics.CacheHitsTotal.WithLabelValues("org_users").Inc()
		}
		return e.Users, nil
	}

	atomic.AddUint64(&c.misses, 1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.WithLabelValues("org_users").Inc()
	}
	return c.load(ctx, orgID)
}

func (c *MemoryCache) Refresh(ctx context.Context, orgID int64) ([]grafana.OrgUser, error) {
	atomic.AddUint64(&c.refreshes, 1)
	return c.load(ctx, orgID)
}

func (c *MemoryCache) load(ctx context.Context, orgID int64) ([]grafana.OrgUser, error) {
	users, err := c.loader(ctx, orgID)
	if err != nil {
		return nil, err
	}
	c.lru.Add(orgID, entry{Users: users, FetchedAt: c.now()})
	return users, nil
}

func (c *MemoryCache) Invalidate(ctx context.Context, orgID int64) error {
	c.lru.Remove(orgID)
	return nil
}

func (c *MemoryCache) Stats(ctx context.Context) (Stats, error) {
	return Stats{
		Hits:      atomic.LoadUint64(&c.hits),
		Misses:    atomic.LoadUint64(&c.misses),
		Refreshes: atomic.LoadUint64(&c.refreshes),
		Entries:   int64(c.lru.Len()),
	}, nil
}
