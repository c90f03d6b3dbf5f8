// Package cache caches organization membership lists fetched from Grafana,
// so interactive requests do not hit the upstream on every page load.
package cache

import (
	"context"
	"time"

	"github.com/grafops/grafana-console/pkg/grafana"
)

// DefaultTTL is how long a cached membership list stays fresh
const DefaultTTL = 5 * time.Minute

// Loader fetches the current membership of one organization from upstream
type Loader func(ctx context.Context, orgID int64) ([]grafana.OrgUser, error)

// Stats reports cache effectiveness counters
type Stats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Refreshes uint64 `json:"refreshes"`
	Entries   int64  `json:"entries"`
}

// OrgUsersCache serves organization membership with TTL-based staleness.
// Get returns cached data when fresh and falls through to the loader
// otherwise; Refresh always reloads.
type OrgUsersCache interface {
	Get(ctx context.Context, orgID int64) ([]grafana.OrgUser, error)
	Refresh(ctx context.Context, orgID int64) ([]grafana.OrgUser, error)
	Invalidate(ctx context.Context, orgID int64) error
	Stats(ctx context.Context) (Stats, error)
}

// entry is the cached value plus its fetch time for staleness checks
type entry struct {
	Users     []grafana.OrgUser `json:"users"`
	FetchedAt time.Time         `json:"fetchedAt"`
}
