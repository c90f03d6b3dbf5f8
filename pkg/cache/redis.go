package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/grafops/grafana-console/pkg/grafana"
	"github.com/grafops/grafana-console/pkg/observability"
)

const redisKeyPrefix = "grafconsole:orgusers:"

// RedisCache shares the organization membership cache across replicas.
// Redis key expiry enforces the TTL, so all replicas agree on staleness.
type RedisCache struct {
	client  *redis.Client
	loader  Loader
	ttl     time.Duration
	metrics *observability.Metrics

	hits      uint64
	misses    uint64
	refreshes uint64
}

// NewRedisCache creates a Redis-backed cache. It pings the server so a bad
// address fails at startup instead of on the first request.
func NewRedisCache(ctx context.Context, addr, password string, db int, loader Loader, ttl time.Duration, metrics *observability.Metrics) (*RedisCache, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	return &RedisCache{
		client:  client,
		loader:  loader,
		ttl:     ttl,
		metrics: metrics,
	}, nil
}

// Ping reports whether the Redis server is reachable
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func redisKey(orgID int64) string {
	return fmt.Sprintf("%s%d", redisKeyPrefix, orgID)
}

func (c *RedisCache) Get(ctx context.Context, orgID int64) ([]grafana.OrgUser, error) {
	data, err := c.client.Get(ctx, redisKey(orgID)).Bytes()
	if err == nil {
		var e entry
		if jsonErr := json.Unmarshal(data, &e); jsonErr == nil {
			atomic.AddUint64(&c.hits, 1)
			if c.metrics != nil {
				c.metrics.CacheHitsTotal.WithLabelValues("org_users").Inc()
			}
			return e.Users, nil
		}
		// corrupt payload, treat as a miss and overwrite below
	} else if err != redis.Nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	atomic.AddUint64(&c.misses, 1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.WithLabelValues("org_users").Inc()
	}
	return c.load(ctx, orgID)
}

func (c *RedisCache) Refresh(ctx context.Context, orgID int64) ([]grafana.OrgUser, error) {
	atomic.AddUint64(&c.refreshes, 1)
	return c.load(ctx, orgID)
}

func (c *RedisCache) load(ctx context.Context, orgID int64) ([]grafana.OrgUser, error) {
	users, err := c.loader(ctx, orgID)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(entry{Users: users, FetchedAt: time.Now()})
	if err != nil {
		return nil, fmt.Errorf("encode cache entry: %w", err)
	}
	if err := c.client.Set(ctx, redisKey(orgID), data, c.ttl).Err(); err != nil {
		return nil, fmt.Errorf("redis set: %w", err)
	}
	return users, nil
}

func (c *RedisCache) Invalidate(ctx context.Context, orgID int64) error {
	if err := c.client.Del(ctx, redisKey(orgID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (c *RedisCache) Stats(ctx context.Context) (Stats, error) {
	var entries int64
	iter := c.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		entries++
	}
	if err := iter.Err(); err != nil {
		return Stats{}, fmt.Errorf("redis scan: %w", err)
	}

	return Stats{
		Hits:      atomic.LoadUint64(&c.hits),
		Misses:    atomic.LoadUint64(&c.misses),
		Refreshes: atomic.LoadUint64(&c.refreshes),
		Entries:   entries,
	}, nil
}
