package access

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grafops/grafana-console/pkg/grafana"
	"github.com/grafops/grafana-console/pkg/mapping"
	"github.com/grafops/grafana-console/pkg/observability"
)

type fakeCatalog struct {
	teams      []grafana.Team
	folders    []grafana.Folder
	hits       []grafana.DashboardHit
	acls       map[string][]grafana.Permission
	aclErrs    map[string]error
	teamsErr   error
	foldersErr error
	searchErr  error

	mu       sync.Mutex
	inflight int32
	maxSeen  int32
	aclCalls []string
}

func (f *fakeCatalog) ListTeams(ctx context.Context) ([]grafana.Team, error) {
	return f.teams, f.teamsErr
}

func (f *fakeCatalog) ListFolders(ctx context.Context, orgID int64) ([]grafana.Folder, error) {
	return f.folders, f.foldersErr
}

func (f *fakeCatalog) SearchDashboards(ctx context.Context, opts grafana.SearchOptions) ([]grafana.DashboardHit, error) {
	return f.hits, f.searchErr
}

func (f *fakeCatalog) GetFolderPermissions(ctx context.Context, uid string) ([]grafana.Permission, error) {
	cur := atomic.AddInt32(&f.inflight, 1)
	defer atomic.AddInt32(&f.inflight, -1)
	for {
		max := atomic.LoadInt32(&f.maxSeen)
		if cur <= max || atomic.CompareAndSwapInt32(&f.maxSeen, max, cur) {
			break
		}
	}

	f.mu.Lock()
	f.aclCalls = append(f.aclCalls, uid)
	f.mu.Unlock()

	if err, ok := f.aclErrs[uid]; ok {
		return nil, err
	}
	return f.acls[uid], nil
}

type staticMappings map[string]mapping.Mapping

func (s staticMappings) Get(orgID string) (mapping.Mapping, bool) {
	m, ok := s[orgID]
	return m, ok
}

func newTestResolver(catalog Catalog, mappings MappingSource) *Resolver {
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	return NewResolver(catalog, mappings, logger, nil, 0)
}

// The canonical scenario: org-a maps to team 1; team 1 can reach folder f1;
// dashboard d1 lives in f1, d2 in the unreachable f2, d3 outside any folder.
func scenarioCatalog() *fakeCatalog {
	return &fakeCatalog{
		teams: []grafana.Team{
			{ID: 1, Name: "T1"},
			{ID: 2, Name: "T2"},
		},
		folders: []grafana.Folder{
			{UID: "f1", Title: "F1"},
			{UID: "f2", Title: "F2"},
		},
		hits: []grafana.DashboardHit{
			{UID: "d1", Title: "D1", FolderUID: "f1", FolderTitle: "F1"},
			{UID: "d2", Title: "D2", FolderUID: "f2", FolderTitle: "F2"},
			{UID: "d3", Title: "D3"},
		},
		acls: map[string][]grafana.Permission{
			"f1": {{TeamID: 1, Permission: grafana.PermissionView}},
			"f2": {{TeamID: 2, Permission: grafana.PermissionView}},
		},
	}
}

func scenarioMappings() staticMappings {
	return staticMappings{
		"org-a": {OrgID: "org-a", OrgName: "Org A", TeamIDs: []int64{1}},
	}
}

func TestResolveScenario(t *testing.T) {
	resolver := newTestResolver(scenarioCatalog(), scenarioMappings())

	result, err := resolver.Resolve(context.Background(), "org-a")
	require.NoError(t, err)

	require.Len(t, result.Teams, 1)
	assert.Equal(t, int64(1), result.Teams[0].ID)

	require.Len(t, result.Folders, 1)
	assert.Equal(t, "f1", result.Folders[0].UID)
	assert.Equal(t, grafana.PermissionView, result.Folders[0].Permission)

	var uids []string
	for _, d := range result.Dashboards {
		uids = append(uids, d.UID)
	}
	assert.Equal(t, []string{"d1", "d3"}, uids)
}

func TestResolveMissingMappingIsEmptyNotError(t *testing.T) {
	resolver := newTestResolver(scenarioCatalog(), scenarioMappings())

	result, err := resolver.Resolve(context.Background(), "org-unknown")
	require.NoError(t, err)
	assert.Empty(t, result.Teams)
	assert.Empty(t, result.Folders)
	assert.Empty(t, result.Dashboards)
}

func TestResolveCatalogFailureIsFatal(t *testing.T) {
	boom := errors.New("connection refused")

	tests := []struct {
		name  string
		setup func(*fakeCatalog)
	}{
		{"teams", func(c *fakeCatalog) { c.teamsErr = boom }},
		{"folders", func(c *fakeCatalog) { c.foldersErr = boom }},
		{"dashboards", func(c *fakeCatalog) { c.searchErr = boom }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog := scenarioCatalog()
			tt.setup(catalog)
			resolver := newTestResolver(catalog, scenarioMappings())

			_, err := resolver.Resolve(context.Background(), "org-a")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrCatalogUnavailable)
		})
	}
}

func TestResolveACLFailureSkipsFolderOnly(t *testing.T) {
	catalog := scenarioCatalog()
	catalog.acls["f2"] = []grafana.Permission{{TeamID: 1, Permission: grafana.PermissionEdit}}
	catalog.aclErrs = map[string]error{"f1": errors.New("timeout")}
	resolver := newTestResolver(catalog, scenarioMappings())

	result, err := resolver.Resolve(context.Background(), "org-a")
	require.NoError(t, err)

	// f1 is skipped, but f2 (now granted to team 1) still resolves
	require.Len(t, result.Folders, 1)
	assert.Equal(t, "f2", result.Folders[0].UID)

	var uids []string
	for _, d := range result.Dashboards {
		uids = append(uids, d.UID)
	}
	assert.Equal(t, []string{"d2", "d3"}, uids)
}

func TestResolvePropagatesGrantedLevel(t *testing.T) {
	catalog := scenarioCatalog()
	catalog.acls["f1"] = []grafana.Permission{
		{TeamID: 1, Permission: grafana.PermissionView},
		{TeamID: 1, Permission: grafana.PermissionAdmin},
		{TeamID: 2, Permission: grafana.PermissionEdit},
	}
	resolver := newTestResolver(catalog, scenarioMappings())

	result, err := resolver.Resolve(context.Background(), "org-a")
	require.NoError(t, err)

	require.Len(t, result.Folders, 1)
	assert.Equal(t, grafana.PermissionAdmin, result.Folders[0].Permission)

	for _, d := range result.Dashboards {
		if d.UID == "d1" {
			assert.Equal(t, grafana.PermissionAdmin, d.Permission)
		}
		if d.UID == "d3" {
			assert.Equal(t, grafana.PermissionView, d.Permission)
		}
	}
}

func TestResolveUserPermissionsIgnored(t *testing.T) {
	catalog := scenarioCatalog()
	// user-level grant only: team id zero must not count as a team grant
	catalog.acls["f2"] = []grafana.Permission{{UserID: 1, Permission: grafana.PermissionAdmin}}
	resolver := newTestResolver(catalog, scenarioMappings())

	result, err := resolver.Resolve(context.Background(), "org-a")
	require.NoError(t, err)
	require.Len(t, result.Folders, 1)
	assert.Equal(t, "f1", result.Folders[0].UID)
}

func TestResolveDeduplicatesDashboards(t *testing.T) {
	catalog := scenarioCatalog()
	catalog.hits = append(catalog.hits, grafana.DashboardHit{UID: "d1", Title: "D1", FolderUID: "f1", FolderTitle: "F1"})
	resolver := newTestResolver(catalog, scenarioMappings())

	result, err := resolver.Resolve(context.Background(), "org-a")
	require.NoError(t, err)

	count := 0
	for _, d := range result.Dashboards {
		if d.UID == "d1" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestResolveDirectAssignments(t *testing.T) {
	catalog := scenarioCatalog()
	resolver := newTestResolver(catalog, staticMappings{
		"org-a": {
			OrgID:   "org-a",
			OrgName: "Org A",
			TeamIDs: []int64{1},
			Assignments: mapping.Assignments{
				FolderUIDs:    []string{"f2"},
				DashboardUIDs: []string{"d2"},
			},
		},
	})

	result, err := resolver.Resolve(context.Background(), "org-a")
	require.NoError(t, err)

	var folderUIDs []string
	for _, f := range result.Folders {
		folderUIDs = append(folderUIDs, f.UID)
	}
	assert.Equal(t, []string{"f1", "f2"}, folderUIDs)

	var uids []string
	for _, d := range result.Dashboards {
		uids = append(uids, d.UID)
	}
	assert.Equal(t, []string{"d1", "d2", "d3"}, uids)
}

func TestResolveBoundedConcurrency(t *testing.T) {
	catalog := scenarioCatalog()
	for i := 0; i < 30; i++ {
		catalog.folders = append(catalog.folders, grafana.Folder{
			UID:   string(rune('a' + i%26)),
			Title: "extra",
		})
	}
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	resolver := NewResolver(catalog, scenarioMappings(), logger, nil, 4)

	_, err := resolver.Resolve(context.Background(), "org-a")
	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt32(&catalog.maxSeen), int32(4))
	assert.Len(t, catalog.aclCalls, len(catalog.folders))
}

func TestResolveForTeams(t *testing.T) {
	resolver := newTestResolver(scenarioCatalog(), staticMappings{})

	result, err := resolver.ResolveForTeams(context.Background(), []int64{2})
	require.NoError(t, err)

	require.Len(t, result.Folders, 1)
	assert.Equal(t, "f2", result.Folders[0].UID)

	var uids []string
	for _, d := range result.Dashboards {
		uids = append(uids, d.UID)
	}
	assert.Equal(t, []string{"d2", "d3"}, uids)
}

func TestResolveNoMappedTeamsStillIncludesGeneral(t *testing.T) {
	resolver := newTestResolver(scenarioCatalog(), staticMappings{
		"org-a": {OrgID: "org-a", OrgName: "Org A", TeamIDs: []int64{99}},
	})

	result, err := resolver.Resolve(context.Background(), "org-a")
	require.NoError(t, err)
	assert.Empty(t, result.Teams)
	assert.Empty(t, result.Folders)
	require.Len(t, result.Dashboards, 1)
	assert.Equal(t, "d3", result.Dashboards[0].UID)
}
