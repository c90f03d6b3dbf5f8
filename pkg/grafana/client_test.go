package grafana

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grafops/grafana-console/pkg/observability"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{
		BaseURL:  srv.URL,
		AuthMode: AuthModeBasic,
		Username: "admin",
		Password: "secret",
		Timeout:  5 * time.Second,
	}, observability.NewLogger(observability.ErrorLevel, io.Discard), nil)
	require.NoError(t, err)
	return client
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name:    "missing base URL",
			cfg:     Config{AuthMode: AuthModeBasic, Username: "a", Password: "b"},
			wantErr: "base URL is required",
		},
		{
			name:    "basic without password",
			cfg:     Config{BaseURL: "http://grafana:3000", AuthMode: AuthModeBasic, Username: "a"},
			wantErr: "requires username and password",
		},
		{
			name:    "bearer without key",
			cfg:     Config{BaseURL: "http://grafana:3000", AuthMode: AuthModeBearer},
			wantErr: "requires an API key",
		},
		{
			name:    "unknown mode",
			cfg:     Config{BaseURL: "http://grafana:3000", AuthMode: "token"},
			wantErr: "invalid auth mode",
		},
		{
			name: "valid basic",
			cfg:  Config{BaseURL: "http://grafana:3000", AuthMode: AuthModeBasic, Username: "a", Password: "b"},
		},
		{
			name: "valid bearer",
			cfg:  Config{BaseURL: "http://grafana:3000", AuthMode: AuthModeBearer, APIKey: "glsa_xyz"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestClientBasicAuthHeader(t *testing.T) {
	var gotUser, gotPass string
	var gotOK bool
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, gotOK = r.BasicAuth()
		json.NewEncoder(w).Encode([]User{})
	}))

	_, err := client.ListUsers(context.Background())
	require.NoError(t, err)
	assert.True(t, gotOK)
	assert.Equal(t, "admin", gotUser)
	assert.Equal(t, "secret", gotPass)
}

func TestClientBearerAuthHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode([]Org{})
	}))
	defer srv.Close()

	client, err := NewClient(Config{
		BaseURL:  srv.URL,
		AuthMode: AuthModeBearer,
		APIKey:   "glsa_abc123",
	}, observability.NewLogger(observability.ErrorLevel, io.Discard), nil)
	require.NoError(t, err)

	_, err = client.ListOrgs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer glsa_abc123", gotAuth)
}

func TestClientOrgIDHeader(t *testing.T) {
	var gotOrgHeader string
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotOrgHeader = r.Header.Get("X-Grafana-Org-Id")
		json.NewEncoder(w).Encode([]Folder{})
	}))

	_, err := client.ListFolders(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "7", gotOrgHeader)
}

func TestClientNoOrgIDHeaderByDefault(t *testing.T) {
	var headerSet bool
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, headerSet = r.Header["X-Grafana-Org-Id"]
		json.NewEncoder(w).Encode([]Folder{})
	}))

	_, err := client.ListFolders(context.Background(), 0)
	require.NoError(t, err)
	assert.False(t, headerSet)
}

func TestListFoldersFiltersGeneral(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]Folder{
			{ID: 0, UID: "", Title: "General"},
			{ID: 12, UID: "ops", Title: "Operations"},
			{ID: 13, UID: "general", Title: "General"},
			{ID: 14, UID: "net", Title: "Network"},
		})
	}))

	folders, err := client.ListFolders(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, folders, 2)
	assert.Equal(t, "ops", folders[0].UID)
	assert.Equal(t, "net", folders[1].UID)
}

func TestClientAPIError(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "invalid username or password"})
	}))

	_, err := client.ListUsers(context.Background())
	require.Error(t, err)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "list_users", apiErr.Operation)
	assert.Equal(t, "invalid username or password", apiErr.Message)
	assert.Contains(t, apiErr.Hint(), "GRAFCONSOLE_GRAFANA_USERNAME")
}

func TestClientAPIErrorNonJSONBody(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream proxy error\n"))
	}))

	_, err := client.Health(context.Background())
	require.Error(t, err)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "upstream proxy error", apiErr.Message)
}

func TestSearchDashboardsQuery(t *testing.T) {
	var gotQuery map[string][]string
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		json.NewEncoder(w).Encode([]DashboardHit{{UID: "d1", Title: "CPU"}})
	}))

	hits, err := client.SearchDashboards(context.Background(), SearchOptions{
		FolderUIDs: []string{"ops", "net"},
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "d1", hits[0].UID)
	assert.Equal(t, []string{"dash-db"}, gotQuery["type"])
	assert.Equal(t, []string{"ops", "net"}, gotQuery["folderUIDs"])
}

func TestSearchDashboardsGeneralSentinel(t *testing.T) {
	var gotQuery map[string][]string
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		json.NewEncoder(w).Encode([]DashboardHit{})
	}))

	_, err := client.SearchDashboards(context.Background(), SearchOptions{GeneralOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"0"}, gotQuery["folderIds"])
}

func TestSetUserEnabled(t *testing.T) {
	var gotPath string
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(map[string]string{"message": "ok"})
	}))

	require.NoError(t, client.SetUserEnabled(context.Background(), 42, false))
	assert.Equal(t, "/api/admin/users/42/disable", gotPath)

	require.NoError(t, client.SetUserEnabled(context.Background(), 42, true))
	assert.Equal(t, "/api/admin/users/42/enable", gotPath)
}

func TestGetFolderPermissions(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/folders/ops/permissions", r.URL.Path)
		json.NewEncoder(w).Encode([]Permission{
			{TeamID: 3, Team: "sre", Permission: PermissionEdit},
			{Role: "Viewer", Permission: PermissionView},
		})
	}))

	perms, err := client.GetFolderPermissions(context.Background(), "ops")
	require.NoError(t, err)
	require.Len(t, perms, 2)
	assert.Equal(t, int64(3), perms[0].TeamID)
	assert.Equal(t, PermissionEdit, perms[0].Permission)
}

func TestMoveDashboard(t *testing.T) {
	var saved SaveDashboardCommand
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			json.NewEncoder(w).Encode(Dashboard{
				Dashboard: map[string]interface{}{"uid": "d1", "title": "CPU"},
				Meta:      DashboardMeta{FolderUID: "ops"},
			})
		case r.Method == http.MethodPost:
			require.NoError(t, json.NewDecoder(r.Body).Decode(&saved))
			json.NewEncoder(w).Encode(SaveDashboardResult{UID: "d1", Status: "success"})
		}
	}))

	result, err := client.MoveDashboard(context.Background(), "d1", "net")
	require.NoError(t, err)
	assert.Equal(t, "success", result.Status)
	assert.Equal(t, "net", saved.FolderUID)
	assert.True(t, saved.Overwrite)
}
