// Package access resolves which dashboards and folders an organization's
// users may view, by intersecting the organization's mapped teams with
// team-level folder permissions.
package access

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/grafops/grafana-console/pkg/grafana"
	"github.com/grafops/grafana-console/pkg/mapping"
	"github.com/grafops/grafana-console/pkg/observability"
)

// ErrCatalogUnavailable marks a failed catalog fetch. Callers must surface
// it as "cannot determine access" rather than presenting an empty result.
var ErrCatalogUnavailable = errors.New("catalog unavailable")

// DefaultConcurrency bounds the per-folder ACL fan-out
const DefaultConcurrency = 4

// Catalog is the read-only slice of the Grafana API the resolver needs
type Catalog interface {
	ListTeams(ctx context.Context) ([]grafana.Team, error)
	ListFolders(ctx context.Context, orgID int64) ([]grafana.Folder, error)
	SearchDashboards(ctx context.Context, opts grafana.SearchOptions) ([]grafana.DashboardHit, error)
	GetFolderPermissions(ctx context.Context, uid string) ([]grafana.Permission, error)
}

// MappingSource looks up the team mapping for an organization
type MappingSource interface {
	Get(orgID string) (mapping.Mapping, bool)
}

// AccessibleFolder is a folder the organization can reach, with the highest
// permission level any of its mapped teams holds on it.
type AccessibleFolder struct {
	UID        string                  `json:"uid"`
	Title      string                  `json:"title"`
	Permission grafana.PermissionLevel `json:"permission"`
}

// AccessibleDashboard is a dashboard the organization can reach
type AccessibleDashboard struct {
	UID         string                  `json:"uid"`
	Title       string                  `json:"title"`
	FolderUID   string                  `json:"folderUid,omitempty"`
	FolderTitle string                  `json:"folderTitle,omitempty"`
	Permission  grafana.PermissionLevel `json:"permission"`
}

// Result is a complete resolution for one organization. It is recomputed on
// every call and never persisted.
type Result struct {
	OrgID      string                `json:"orgId"`
	Teams      []grafana.Team        `json:"teams"`
	Folders    []AccessibleFolder    `json:"folders"`
	Dashboards []AccessibleDashboard `json:"dashboards"`
}

// Resolver computes organization access from live catalog state
type Resolver struct {
	catalog     Catalog
	mappings    MappingSource
	logger      *observability.Logger
	metrics     *observability.Metrics
	concurrency int
}

// NewResolver creates a resolver. Metrics may be nil. A concurrency of 0
// falls back to DefaultConcurrency.
func NewResolver(catalog Catalog, mappings MappingSource, logger *observability.Logger, metrics *observability.Metrics, concurrency int) *Resolver {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Resolver{
		catalog:     catalog,
		mappings:    mappings,
		logger:      logger,
		metrics:     metrics,
		concurrency: concurrency,
	}
}

// Resolve computes the accessible teams, folders, and dashboards for one
// organization. A missing mapping is not an error: it yields an empty result
// so a misconfigured organization sees nothing rather than an error page.
// Catalog failures are fatal; individual folder ACL failures are not.
func (r *Resolver) Resolve(ctx context.Context, orgID string) (*Result, error) {
	start := time.Now()
	result, err := r.resolve(ctx, orgID)
	if r.metrics != nil {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		r.metrics.ResolutionsTotal.WithLabelValues(outcome).Inc()
		r.metrics.ResolutionDuration.Observe(time.Since(start).Seconds())
	}
	return result, err
}

// ResolveForTeams computes access for an explicit team set, outside any
// organization mapping. Used for per-team and per-user views.
func (r *Resolver) ResolveForTeams(ctx context.Context, teamIDs []int64) (*Result, error) {
	m := mapping.Mapping{TeamIDs: teamIDs}
	return r.resolveMapping(ctx, "", &m)
}

func (r *Resolver) resolve(ctx context.Context, orgID string) (*Result, error) {
	m, ok := r.mappings.Get(orgID)
	if !ok {
		r.logger.WithField("org_id", orgID).Warn("no team mapping for organization, resolving to empty access")
		return &Result{
			OrgID:      orgID,
			Teams:      []grafana.Team{},
			Folders:    []AccessibleFolder{},
			Dashboards: []AccessibleDashboard{},
		}, nil
	}
	return r.resolveMapping(ctx, orgID, &m)
}

func (r *Resolver) resolveMapping(ctx context.Context, orgID string, m *mapping.Mapping) (*Result, error) {
	result := &Result{
		OrgID:      orgID,
		Teams:      []grafana.Team{},
		Folders:    []AccessibleFolder{},
		Dashboards: []AccessibleDashboard{},
	}

	teams, err := r.catalog.ListTeams(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list teams: %v", ErrCatalogUnavailable, err)
	}
	folders, err := r.catalog.ListFolders(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: list folders: %v", ErrCatalogUnavailable, err)
	}
	hits, err := r.catalog.SearchDashboards(ctx, grafana.SearchOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: search dashboards: %v", ErrCatalogUnavailable, err)
	}

	for _, t := range teams {
		if m.HasTeam(t.ID) {
			result.Teams = append(result.Teams, t)
		}
	}

	folderAccess := r.resolveFolders(ctx, m, folders)

	directDashboards := make(map[string]bool, len(m.Assignments.DashboardUIDs))
	for _, uid := range m.Assignments.DashboardUIDs {
		directDashboards[uid] = true
	}

	for uid, f := range folderAccess {
		result.Folders = append(result.Folders, AccessibleFolder{
			UID:        uid,
			Title:      f.title,
			Permission: f.permission,
		})
	}

	seen := make(map[string]int, len(hits))
	for _, hit := range hits {
		var level grafana.PermissionLevel
		switch {
		case hit.FolderUID == "":
			// dashboards outside any folder carry no ACL and are
			// visible to everyone
			level = grafana.PermissionView
		case folderAccess[hit.FolderUID] != nil:
			level = folderAccess[hit.FolderUID].permission
		case directDashboards[hit.UID]:
			level = grafana.PermissionView
		default:
			continue
		}

		if idx, dup := seen[hit.UID]; dup {
			if level > result.Dashboards[idx].Permission {
				result.Dashboards[idx].Permission = level
			}
			continue
		}
		seen[hit.UID] = len(result.Dashboards)
		result.Dashboards = append(result.Dashboards, AccessibleDashboard{
			UID:         hit.UID,
			Title:       hit.Title,
			FolderUID:   hit.FolderUID,
			FolderTitle: hit.FolderTitle,
			Permission:  level,
		})
	}

	sort.Slice(result.Folders, func(i, j int) bool { return result.Folders[i].UID < result.Folders[j].UID })
	sort.Slice(result.Dashboards, func(i, j int) bool { return result.Dashboards[i].UID < result.Dashboards[j].UID })

	r.logger.WithFields(map[string]interface{}{
		"org_id":     orgID,
		"teams":      len(result.Teams),
		"folders":    len(result.Folders),
		"dashboards": len(result.Dashboards),
	}).Debug("access resolution complete")
	return result, nil
}

type folderGrant struct {
	title      string
	permission grafana.PermissionLevel
}

// resolveFolders fetches each folder's ACL with bounded concurrency and
// returns the folders one of the mapped teams can reach. A failed ACL fetch
// skips that folder only.
func (r *Resolver) resolveFolders(ctx context.Context, m *mapping.Mapping, folders []grafana.Folder) map[string]*folderGrant {
	directFolders := make(map[string]bool, len(m.Assignments.FolderUIDs))
	for _, uid := range m.Assignments.FolderUIDs {
		directFolders[uid] = true
	}

	var mu sync.Mutex
	access := make(map[string]*folderGrant)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for _, folder := range folders {
		folder := folder
		g.Go(func() error {
			perms, err := r.catalog.GetFolderPermissions(gctx, folder.UID)
			if err != nil {
				r.logger.WithError(err).WithField("folder_uid", folder.UID).
					Warn("failed to fetch folder permissions, skipping folder")
				if r.metrics != nil {
					r.metrics.FoldersSkippedTotal.Inc()
				}
				return nil
			}

			var level grafana.PermissionLevel
			for _, p := range perms {
				if p.TeamID != 0 && m.HasTeam(p.TeamID) && p.Permission > level {
					level = p.Permission
				}
			}
			if level == 0 && directFolders[folder.UID] {
				level = grafana.PermissionView
			}
			if level == 0 {
				return nil
			}

			mu.Lock()
			access[folder.UID] = &folderGrant{title: folder.Title, permission: level}
			mu.Unlock()
			return nil
		})
	}

	// workers never return errors; Wait only serves as a join point
	_ = g.Wait()
	return access
}
