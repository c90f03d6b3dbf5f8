package grafana

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/grafops/grafana-console/pkg/observability"
)

// Auth modes selectable by configuration. Basic server-admin credentials work
// across all organizations; an API key is typically scoped to one.
const (
	AuthModeBasic  = "basic"
	AuthModeBearer = "bearer"
)

// DefaultTimeout bounds every upstream request
const DefaultTimeout = 10 * time.Second

// Config holds the connection settings for the Grafana API
type Config struct {
	BaseURL  string
	AuthMode string // "basic" or "bearer"
	Username string
	Password string
	APIKey   string
	Timeout  time.Duration
	Tracing  bool
}

// Validate checks the configuration for completeness
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("grafana base URL is required")
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("invalid grafana base URL: %w", err)
	}
	switch c.AuthMode {
	case AuthModeBasic:
		if c.Username == "" || c.Password == "" {
			return fmt.Errorf("basic auth mode requires username and password")
		}
	case AuthModeBearer:
		if c.APIKey == "" {
			return fmt.Errorf("bearer auth mode requires an API key")
		}
	default:
		return fmt.Errorf("invalid auth mode: %q (must be %q or %q)", c.AuthMode, AuthModeBasic, AuthModeBearer)
	}
	return nil
}

// Client is an authenticated Grafana API client shared by all handlers
type Client struct {
	baseURL    string
	authMode   string
	username   string
	password   string
	apiKey     string
	httpClient *http.Client
	logger     *observability.Logger
	metrics    *observability.Metrics
}

// NewClient creates a Grafana client from configuration. The metrics argument
// may be nil in tests.
func NewClient(cfg Config, logger *observability.Logger, metrics *observability.Metrics) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	var transport http.RoundTripper = http.DefaultTransport
	if cfg.Tracing {
		transport = otelhttp.NewTransport(transport)
	}

	return &Client{
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		authMode: cfg.AuthMode,
		username: cfg.Username,
		password: cfg.Password,
		apiKey:   cfg.APIKey,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		logger:  logger,
		metrics: metrics,
	}, nil
}

// AuthMode reports the configured authentication mode
func (c *Client) AuthMode() string {
	return c.authMode
}

// request carries everything needed for one upstream call
type request struct {
	operation string
	method    string
	path      string
	query     url.Values
	orgID     int64 // sets X-Grafana-Org-Id when > 0
	body      interface{}
}

func (c *Client) do(ctx context.Context, req request, dest interface{}) error {
	u := c.baseURL + req.path
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}

	var bodyReader io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("grafana: %s: encode request: %w", req.operation, err)
		}
		bodyReader = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u, bodyReader)
	if err != nil {
		return fmt.Errorf("grafana: %s: build request: %w", req.operation, err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	switch c.authMode {
	case AuthModeBasic:
		httpReq.SetBasicAuth(c.username, c.password)
	case AuthModeBearer:
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if req.orgID > 0 {
		httpReq.Header.Set("X-Grafana-Org-Id", strconv.FormatInt(req.orgID, 10))
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if c.metrics != nil {
			c.metrics.ObserveUpstream(req.operation, 0, time.Since(start), err)
		}
		return fmt.Errorf("grafana: %s: %w", req.operation, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if c.metrics != nil {
		c.metrics.ObserveUpstream(req.operation, resp.StatusCode, time.Since(start), nil)
	}
	if err != nil {
		return fmt.Errorf("grafana: %s: read response: %w", req.operation, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{
			Operation:  req.operation,
			StatusCode: resp.StatusCode,
			Message:    extractMessage(respBody),
		}
	}

	if dest != nil {
		if err := json.Unmarshal(respBody, dest); err != nil {
			return fmt.Errorf("grafana: %s: decode response: %w", req.operation, err)
		}
	}
	return nil
}

// extractMessage pulls the human-readable message out of a Grafana error body
func extractMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return strings.TrimSpace(string(body))
}

// Health checks Grafana availability
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var status HealthStatus
	err := c.do(ctx, request{operation: "health", method: http.MethodGet, path: "/api/health"}, &status)
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// Ping adapts Health for readiness probes
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Health(ctx)
	return err
}

// ---- Users ----

// ListUsers returns all server users
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	q := url.Values{"perpage": {"1000"}}
	err := c.do(ctx, request{operation: "list_users", method: http.MethodGet, path: "/api/users", query: q}, &users)
	return users, err
}

// GetUser returns one server user by ID
func (c *Client) GetUser(ctx context.Context, id int64) (*User, error) {
	var user User
	err := c.do(ctx, request{operation: "get_user", method: http.MethodGet, path: fmt.Sprintf("/api/users/%d", id)}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// LookupUser finds a user by login or email
func (c *Client) LookupUser(ctx context.Context, loginOrEmail string) (*User, error) {
	var user User
	q := url.Values{"loginOrEmail": {loginOrEmail}}
	err := c.do(ctx, request{operation: "lookup_user", method: http.MethodGet, path: "/api/users/lookup", query: q}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser creates a server user via the admin API
func (c *Client) CreateUser(ctx context.Context, cmd CreateUserCommand) (*CreateUserResult, error) {
	var result CreateUserResult
	err := c.do(ctx, request{operation: "create_user", method: http.MethodPost, path: "/api/admin/users", body: cmd}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateUser updates a user's profile fields
func (c *Client) UpdateUser(ctx context.Context, id int64, cmd UpdateUserCommand) error {
	return c.do(ctx, request{operation: "update_user", method: http.MethodPut, path: fmt.Sprintf("/api/users/%d", id), body: cmd}, nil)
}

// DeleteUser removes a server user
func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	return c.do(ctx, request{operation: "delete_user", method: http.MethodDelete, path: fmt.Sprintf("/api/admin/users/%d", id)}, nil)
}

// SetUserEnabled enables or disables a server user
func (c *Client) SetUserEnabled(ctx context.Context, id int64, enabled bool) error {
	action := "disable"
	if enabled {
		action = "enable"
	}
	op := fmt.Sprintf("%s_user", action)
	return c.do(ctx, request{operation: op, method: http.MethodPost, path: fmt.Sprintf("/api/admin/users/%d/%s", id, action)}, nil)
}

// GetUserOrgs returns the organizations a user belongs to
func (c *Client) GetUserOrgs(ctx context.Context, id int64) ([]UserOrg, error) {
	var orgs []UserOrg
	err := c.do(ctx, request{operation: "get_user_orgs", method: http.MethodGet, path: fmt.Sprintf("/api/users/%d/orgs", id)}, &orgs)
	return orgs, err
}

// GetUserTeams returns the teams a user belongs to
func (c *Client) GetUserTeams(ctx context.Context, id int64) ([]Team, error) {
	var teams []Team
	err := c.do(ctx, request{operation: "get_user_teams", method: http.MethodGet, path: fmt.Sprintf("/api/users/%d/teams", id)}, &teams)
	return teams, err
}

// ---- Organizations ----

// ListOrgs returns all Grafana organizations
func (c *Client) ListOrgs(ctx context.Context) ([]Org, error) {
	var orgs []Org
	err := c.do(ctx, request{operation: "list_orgs", method: http.MethodGet, path: "/api/orgs"}, &orgs)
	return orgs, err
}

// GetOrg returns one organization by ID
func (c *Client) GetOrg(ctx context.Context, id int64) (*Org, error) {
	var org Org
	err := c.do(ctx, request{operation: "get_org", method: http.MethodGet, path: fmt.Sprintf("/api/orgs/%d", id)}, &org)
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// CreateOrg creates an organization
func (c *Client) CreateOrg(ctx context.Context, name string) (int64, error) {
	var result struct {
		OrgID int64 `json:"orgId"`
	}
	body := map[string]string{"name": name}
	err := c.do(ctx, request{operation: "create_org", method: http.MethodPost, path: "/api/orgs", body: body}, &result)
	return result.OrgID, err
}

// UpdateOrg renames an organization
func (c *Client) UpdateOrg(ctx context.Context, id int64, name string) error {
	body := map[string]string{"name": name}
	return c.do(ctx, request{operation: "update_org", method: http.MethodPut, path: fmt.Sprintf("/api/orgs/%d", id), body: body}, nil)
}

// DeleteOrg removes an organization
func (c *Client) DeleteOrg(ctx context.Context, id int64) error {
	return c.do(ctx, request{operation: "delete_org", method: http.MethodDelete, path: fmt.Sprintf("/api/orgs/%d", id)}, nil)
}

// ListOrgUsers returns the members of an organization
func (c *Client) ListOrgUsers(ctx context.Context, orgID int64) ([]OrgUser, error) {
	var users []OrgUser
	err := c.do(ctx, request{operation: "list_org_users", method: http.MethodGet, path: fmt.Sprintf("/api/orgs/%d/users", orgID)}, &users)
	return users, err
}

// AddOrgUser adds a user to an organization
func (c *Client) AddOrgUser(ctx context.Context, orgID int64, cmd AddOrgUserCommand) error {
	return c.do(ctx, request{operation: "add_org_user", method: http.MethodPost, path: fmt.Sprintf("/api/orgs/%d/users", orgID), body: cmd}, nil)
}

// UpdateOrgUser changes a user's role within an organization
func (c *Client) UpdateOrgUser(ctx context.Context, orgID, userID int64, cmd UpdateOrgUserCommand) error {
	return c.do(ctx, request{operation: "update_org_user", method: http.MethodPatch, path: fmt.Sprintf("/api/orgs/%d/users/%d", orgID, userID), body: cmd}, nil)
}

// RemoveOrgUser removes a user from an organization
func (c *Client) RemoveOrgUser(ctx context.Context, orgID, userID int64) error {
	return c.do(ctx, request{operation: "remove_org_user", method: http.MethodDelete, path: fmt.Sprintf("/api/orgs/%d/users/%d", orgID, userID)}, nil)
}

// ---- Teams ----

// SearchTeams returns a page of teams, optionally filtered by name query
func (c *Client) SearchTeams(ctx context.Context, query string, page, perPage int) (*TeamSearchResult, error) {
	if perPage <= 0 {
		perPage = 1000
	}
	if page <= 0 {
		page = 1
	}
	q := url.Values{
		"perpage": {strconv.Itoa(perPage)},
		"page":    {strconv.Itoa(page)},
	}
	if query != "" {
		q.Set("query", query)
	}
	var result TeamSearchResult
	err := c.do(ctx, request{operation: "search_teams", method: http.MethodGet, path: "/api/teams/search", query: q}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ListTeams returns the full team catalog
func (c *Client) ListTeams(ctx context.Context) ([]Team, error) {
	result, err := c.SearchTeams(ctx, "", 1, 1000)
	if err != nil {
		return nil, err
	}
	return result.Teams, nil
}

// GetTeam returns one team by ID
func (c *Client) GetTeam(ctx context.Context, id int64) (*Team, error) {
	var team Team
	err := c.do(ctx, request{operation: "get_team", method: http.MethodGet, path: fmt.Sprintf("/api/teams/%d", id)}, &team)
	if err != nil {
		return nil, err
	}
	return &team, nil
}

// CreateTeam creates a team
func (c *Client) CreateTeam(ctx context.Context, cmd CreateTeamCommand) (*CreateTeamResult, error) {
	var result CreateTeamResult
	err := c.do(ctx, request{operation: "create_team", method: http.MethodPost, path: "/api/teams", body: cmd}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateTeam updates a team's name or email
func (c *Client) UpdateTeam(ctx context.Context, id int64, cmd CreateTeamCommand) error {
	return c.do(ctx, request{operation: "update_team", method: http.MethodPut, path: fmt.Sprintf("/api/teams/%d", id), body: cmd}, nil)
}

// DeleteTeam removes a team
func (c *Client) DeleteTeam(ctx context.Context, id int64) error {
	return c.do(ctx, request{operation: "delete_team", method: http.MethodDelete, path: fmt.Sprintf("/api/teams/%d", id)}, nil)
}

// ListTeamMembers returns the members of a team
func (c *Client) ListTeamMembers(ctx context.Context, teamID int64) ([]TeamMember, error) {
	var members []TeamMember
	err := c.do(ctx, request{operation: "list_team_members", method: http.MethodGet, path: fmt.Sprintf("/api/teams/%d/members", teamID)}, &members)
	return members, err
}

// AddTeamMember adds a user to a team
func (c *Client) AddTeamMember(ctx context.Context, teamID, userID int64) error {
	body := map[string]int64{"userId": userID}
	return c.do(ctx, request{operation: "add_team_member", method: http.MethodPost, path: fmt.Sprintf("/api/teams/%d/members", teamID), body: body}, nil)
}

// RemoveTeamMember removes a user from a team
func (c *Client) RemoveTeamMember(ctx context.Context, teamID, userID int64) error {
	return c.do(ctx, request{operation: "remove_team_member", method: http.MethodDelete, path: fmt.Sprintf("/api/teams/%d/members/%d", teamID, userID)}, nil)
}

// ---- Folders ----

// ListFolders returns the folder catalog for the given org context (orgID 0
// uses the credential's default org). The default "General" folder is
// filtered out: it has no real uid and cannot carry an ACL.
func (c *Client) ListFolders(ctx context.Context, orgID int64) ([]Folder, error) {
	var folders []Folder
	err := c.do(ctx, request{operation: "list_folders", method: http.MethodGet, path: "/api/folders", orgID: orgID}, &folders)
	if err != nil {
		return nil, err
	}

	filtered := folders[:0]
	for _, f := range folders {
		if isGeneralFolder(f) {
			continue
		}
		filtered = append(filtered, f)
	}
	return filtered, nil
}

// isGeneralFolder identifies the default folder sentinel
func isGeneralFolder(f Folder) bool {
	return f.UID == "" || f.UID == "general" || f.ID == 0
}

// GetFolder returns one folder by uid
func (c *Client) GetFolder(ctx context.Context, uid string) (*Folder, error) {
	var folder Folder
	err := c.do(ctx, request{operation: "get_folder", method: http.MethodGet, path: "/api/folders/" + url.PathEscape(uid)}, &folder)
	if err != nil {
		return nil, err
	}
	return &folder, nil
}

// CreateFolder creates a folder
func (c *Client) CreateFolder(ctx context.Context, cmd CreateFolderCommand) (*Folder, error) {
	var folder Folder
	err := c.do(ctx, request{operation: "create_folder", method: http.MethodPost, path: "/api/folders", body: cmd}, &folder)
	if err != nil {
		return nil, err
	}
	return &folder, nil
}

// UpdateFolder renames a folder
func (c *Client) UpdateFolder(ctx context.Context, uid string, cmd UpdateFolderCommand) (*Folder, error) {
	var folder Folder
	err := c.do(ctx, request{operation: "update_folder", method: http.MethodPut, path: "/api/folders/" + url.PathEscape(uid), body: cmd}, &folder)
	if err != nil {
		return nil, err
	}
	return &folder, nil
}

// DeleteFolder removes a folder and its dashboards
func (c *Client) DeleteFolder(ctx context.Context, uid string) error {
	return c.do(ctx, request{operation: "delete_folder", method: http.MethodDelete, path: "/api/folders/" + url.PathEscape(uid)}, nil)
}

// GetFolderPermissions returns a folder's ACL
func (c *Client) GetFolderPermissions(ctx context.Context, uid string) ([]Permission, error) {
	var perms []Permission
	err := c.do(ctx, request{operation: "get_folder_permissions", method: http.MethodGet, path: "/api/folders/" + url.PathEscape(uid) + "/permissions"}, &perms)
	return perms, err
}

// SetFolderPermissions replaces a folder's ACL
func (c *Client) SetFolderPermissions(ctx context.Context, uid string, cmd SetPermissionsCommand) error {
	return c.do(ctx, request{operation: "set_folder_permissions", method: http.MethodPost, path: "/api/folders/" + url.PathEscape(uid) + "/permissions", body: cmd}, nil)
}

// ---- Dashboards ----

// SearchOptions narrows a dashboard search
type SearchOptions struct {
	Query       string
	FolderUIDs  []string
	GeneralOnly bool // dashboards outside any folder
	OrgID       int64
}

// SearchDashboards searches dashboards (type dash-db)
func (c *Client) SearchDashboards(ctx context.Context, opts SearchOptions) ([]DashboardHit, error) {
	q := url.Values{"type": {"dash-db"}}
	if opts.Query != "" {
		q.Set("query", opts.Query)
	}
	for _, uid := range opts.FolderUIDs {
		q.Add("folderUIDs", uid)
	}
	if opts.GeneralOnly {
		// folderIds=0 is the legacy sentinel for the General folder
		q.Set("folderIds", "0")
	}
	var hits []DashboardHit
	err := c.do(ctx, request{operation: "search_dashboards", method: http.MethodGet, path: "/api/search", query: q, orgID: opts.OrgID}, &hits)
	return hits, err
}

// GetDashboard returns a full dashboard by uid
func (c *Client) GetDashboard(ctx context.Context, uid string) (*Dashboard, error) {
	var dash Dashboard
	err := c.do(ctx, request{operation: "get_dashboard", method: http.MethodGet, path: "/api/dashboards/uid/" + url.PathEscape(uid)}, &dash)
	if err != nil {
		return nil, err
	}
	return &dash, nil
}

// SaveDashboard creates or updates a dashboard
func (c *Client) SaveDashboard(ctx context.Context, cmd SaveDashboardCommand) (*SaveDashboardResult, error) {
	var result SaveDashboardResult
	err := c.do(ctx, request{operation: "save_dashboard", method: http.MethodPost, path: "/api/dashboards/db", body: cmd}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteDashboard removes a dashboard by uid
func (c *Client) DeleteDashboard(ctx context.Context, uid string) error {
	return c.do(ctx, request{operation: "delete_dashboard", method: http.MethodDelete, path: "/api/dashboards/uid/" + url.PathEscape(uid)}, nil)
}

// GetDashboardPermissions returns a dashboard's ACL
func (c *Client) GetDashboardPermissions(ctx context.Context, uid string) ([]Permission, error) {
	var perms []Permission
	err := c.do(ctx, request{operation: "get_dashboard_permissions", method: http.MethodGet, path: "/api/dashboards/uid/" + url.PathEscape(uid) + "/permissions"}, &perms)
	return perms, err
}

// SetDashboardPermissions replaces a dashboard's ACL
func (c *Client) SetDashboardPermissions(ctx context.Context, uid string, cmd SetPermissionsCommand) error {
	return c.do(ctx, request{operation: "set_dashboard_permissions", method: http.MethodPost, path: "/api/dashboards/uid/" + url.PathEscape(uid) + "/permissions", body: cmd}, nil)
}

// MoveDashboard moves a dashboard into another folder by re-saving it with
// the target folder uid.
func (c *Client) MoveDashboard(ctx context.Context, uid, targetFolderUID string) (*SaveDashboardResult, error) {
	dash, err := c.GetDashboard(ctx, uid)
	if err != nil {
		return nil, err
	}
	return c.SaveDashboard(ctx, SaveDashboardCommand{
		Dashboard: dash.Dashboard,
		FolderUID: targetFolderUID,
		Message:   "moved by console",
		Overwrite: true,
	})
}
