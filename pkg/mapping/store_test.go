package mapping

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grafops/grafana-console/pkg/observability"
)

type recordedEvent struct {
	action string
	orgID  string
	detail map[string]interface{}
}

type fakeRecorder struct {
	events []recordedEvent
}

func (r *fakeRecorder) RecordMappingEvent(action, orgID string, detail map[string]interface{}) {
	r.events = append(r.events, recordedEvent{action, orgID, detail})
}

func testLogger() *observability.Logger {
	return observability.NewLogger(observability.ErrorLevel, io.Discard)
}

func writeMappingFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewStoreMissingFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mappings.json")

	store, err := NewStore(path, testLogger(), nil)
	require.NoError(t, err)
	assert.Empty(t, store.List())
	assert.Empty(t, store.SuperAdmins())
}

func TestNewStoreLoadsJSON(t *testing.T) {
	path := writeMappingFile(t, "mappings.json", `{
		"superAdmins": ["root@example.com"],
		"mappings": [
			{"orgId": "org-a", "orgName": "Org A", "teamIds": [1, 2]},
			{"orgId": "org-b", "orgName": "Org B", "teamIds": [3]}
		]
	}`)

	store, err := NewStore(path, testLogger(), nil)
	require.NoError(t, err)

	mappings := store.List()
	require.Len(t, mappings, 2)
	assert.Equal(t, "org-a", mappings[0].OrgID)
	assert.Equal(t, []int64{1, 2}, mappings[0].TeamIDs)

	m, ok := store.Get("org-b")
	require.True(t, ok)
	assert.Equal(t, "Org B", m.OrgName)

	_, ok = store.Get("org-z")
	assert.False(t, ok)
}

func TestNewStoreLoadsYAML(t *testing.T) {
	path := writeMappingFile(t, "mappings.yaml", `
superAdmins:
  - root@example.com
mappings:
  - orgId: org-a
    orgName: Org A
    teamIds: [1]
`)

	store, err := NewStore(path, testLogger(), nil)
	require.NoError(t, err)

	m, ok := store.Get("org-a")
	require.True(t, ok)
	assert.Equal(t, []int64{1}, m.TeamIDs)
}

func TestNewStoreRejectsInvalidMapping(t *testing.T) {
	path := writeMappingFile(t, "mappings.json", `{
		"mappings": [{"orgId": "", "orgName": "No ID", "teamIds": [1]}]
	}`)

	_, err := NewStore(path, testLogger(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "orgId is required")
}

func TestUpsertPersistsAndRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mappings.json")
	rec := &fakeRecorder{}

	store, err := NewStore(path, testLogger(), rec)
	require.NoError(t, err)

	require.NoError(t, store.Upsert(Mapping{OrgID: "org-a", OrgName: "Org A", TeamIDs: []int64{1}}))
	require.NoError(t, store.Upsert(Mapping{OrgID: "org-a", OrgName: "Org A renamed", TeamIDs: []int64{1, 4}}))

	// verify state survives a fresh load from disk
	reloaded, err := NewStore(path, testLogger(), nil)
	require.NoError(t, err)
	m, ok := reloaded.Get("org-a")
	require.True(t, ok)
	assert.Equal(t, "Org A renamed", m.OrgName)
	assert.Equal(t, []int64{1, 4}, m.TeamIDs)

	require.Len(t, rec.events, 2)
	assert.Equal(t, "mapping.create", rec.events[0].action)
	assert.Equal(t, "mapping.update", rec.events[1].action)
}

func TestUpsertValidates(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "mappings.json"), testLogger(), nil)
	require.NoError(t, err)

	assert.Error(t, store.Upsert(Mapping{OrgName: "missing id"}))
	assert.Error(t, store.Upsert(Mapping{OrgID: "x", OrgName: "bad team", TeamIDs: []int64{0}}))
	assert.Error(t, store.Upsert(Mapping{OrgID: "x", OrgName: "dup team", TeamIDs: []int64{2, 2}}))
}

func TestDelete(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "mappings.json"), testLogger(), nil)
	require.NoError(t, err)
	require.NoError(t, store.Upsert(Mapping{OrgID: "org-a", OrgName: "Org A", TeamIDs: []int64{1}}))

	require.NoError(t, store.Delete("org-a"))
	_, ok := store.Get("org-a")
	assert.False(t, ok)

	err = store.Delete("org-a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAssignments(t *testing.T) {
	rec := &fakeRecorder{}
	store, err := NewStore(filepath.Join(t.TempDir(), "mappings.json"), testLogger(), rec)
	require.NoError(t, err)
	require.NoError(t, store.Upsert(Mapping{OrgID: "org-a", OrgName: "Org A", TeamIDs: []int64{1}}))

	require.NoError(t, store.AssignDashboard("org-a", "d9"))
	require.NoError(t, store.AssignDashboard("org-a", "d9")) // idempotent
	require.NoError(t, store.AssignFolder("org-a", "f7"))

	m, _ := store.Get("org-a")
	assert.Equal(t, []string{"d9"}, m.Assignments.DashboardUIDs)
	assert.Equal(t, []string{"f7"}, m.Assignments.FolderUIDs)

	require.NoError(t, store.RemoveDashboard("org-a", "d9"))
	require.NoError(t, store.RemoveFolder("org-a", "f7"))
	m, _ = store.Get("org-a")
	assert.Empty(t, m.Assignments.DashboardUIDs)
	assert.Empty(t, m.Assignments.FolderUIDs)

	assert.ErrorIs(t, store.AssignDashboard("org-z", "d1"), ErrNotFound)

	// the idempotent re-assign must not produce a second event
	var actions []string
	for _, e := range rec.events {
		actions = append(actions, e.action)
	}
	assert.Equal(t, []string{
		"mapping.create",
		"mapping.assign_dashboard",
		"mapping.assign_folder",
		"mapping.remove_dashboard",
		"mapping.remove_folder",
	}, actions)
}

func TestSaveKeepsBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mappings.json")
	store, err := NewStore(path, testLogger(), nil)
	require.NoError(t, err)

	require.NoError(t, store.Upsert(Mapping{OrgID: "org-a", OrgName: "v1", TeamIDs: []int64{1}}))
	require.NoError(t, store.Upsert(Mapping{OrgID: "org-a", OrgName: "v2", TeamIDs: []int64{1}}))

	backup, err := os.ReadFile(path + ".backup")
	require.NoError(t, err)

	var prev File
	require.NoError(t, json.Unmarshal(backup, &prev))
	require.Len(t, prev.Mappings, 1)
	assert.Equal(t, "v1", prev.Mappings[0].OrgName)
}

func TestIsSuperAdmin(t *testing.T) {
	path := writeMappingFile(t, "mappings.json", `{
		"superAdmins": ["Root@Example.com"],
		"mappings": []
	}`)

	store, err := NewStore(path, testLogger(), nil)
	require.NoError(t, err)

	assert.True(t, store.IsSuperAdmin("root@example.com"))
	assert.True(t, store.IsSuperAdmin("ROOT@EXAMPLE.COM"))
	assert.False(t, store.IsSuperAdmin("other@example.com"))
	assert.False(t, store.IsSuperAdmin(""))
}

func TestGetReturnsCopy(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "mappings.json"), testLogger(), nil)
	require.NoError(t, err)
	require.NoError(t, store.Upsert(Mapping{OrgID: "org-a", OrgName: "Org A", TeamIDs: []int64{1}}))

	m, _ := store.Get("org-a")
	m.TeamIDs[0] = 99

	fresh, _ := store.Get("org-a")
	assert.Equal(t, []int64{1}, fresh.TeamIDs)
}

func TestLoadReplacesState(t *testing.T) {
	path := writeMappingFile(t, "mappings.json", `{
		"mappings": [{"orgId": "org-a", "orgName": "Org A", "teamIds": [1]}]
	}`)

	store, err := NewStore(path, testLogger(), nil)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`{
		"mappings": [{"orgId": "org-b", "orgName": "Org B", "teamIds": [2]}]
	}`), 0o644))
	require.NoError(t, store.Load())

	_, ok := store.Get("org-a")
	assert.False(t, ok)
	_, ok = store.Get("org-b")
	assert.True(t, ok)
}
