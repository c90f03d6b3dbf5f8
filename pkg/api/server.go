// Package api exposes the console's HTTP surface: authentication, the
// Grafana management proxy, the mapping admin endpoints, and the access
// resolver endpoint consumed by the browser UI.
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/grafops/grafana-console/pkg/access"
	"github.com/grafops/grafana-console/pkg/audit"
	"github.com/grafops/grafana-console/pkg/authn"
	"github.com/grafops/grafana-console/pkg/cache"
	"github.com/grafops/grafana-console/pkg/grafana"
	"github.com/grafops/grafana-console/pkg/httputil"
	"github.com/grafops/grafana-console/pkg/mapping"
	"github.com/grafops/grafana-console/pkg/middleware"
	"github.com/grafops/grafana-console/pkg/observability"
)

// Dependencies wires the server to the rest of the application
type Dependencies struct {
	Grafana     *grafana.Client
	Mappings    *mapping.Store
	Resolver    *access.Resolver
	Sessions    *authn.SessionManager
	AuthBackend *authn.BackendClient
	UsersCache  cache.OrgUsersCache
	Audit       *audit.Logger
	Logger      *observability.Logger
	Metrics     *observability.Metrics
	CORSOrigins []string
}

// Server is the console API server
type Server struct {
	router      *mux.Router
	grafana     *grafana.Client
	mappings    *mapping.Store
	resolver    *access.Resolver
	sessions    *authn.SessionManager
	authBackend *authn.BackendClient
	usersCache  cache.OrgUsersCache
	audit       *audit.Logger
	logger      *observability.Logger
	metrics     *observability.Metrics
	auth        *middleware.Auth
}

// NewServer creates the API server and registers all routes
func NewServer(deps Dependencies) *Server {
	s := &Server{
		router:      mux.NewRouter(),
		grafana:     deps.Grafana,
		mappings:    deps.Mappings,
		resolver:    deps.Resolver,
		sessions:    deps.Sessions,
		authBackend: deps.AuthBackend,
		usersCache:  deps.UsersCache,
		audit:       deps.Audit,
		logger:      deps.Logger,
		metrics:     deps.Metrics,
		auth:        middleware.NewAuth(deps.Sessions, deps.Logger, deps.Audit),
	}

	s.router.Use(httputil.RequestIDMiddleware)
	s.router.Use(httputil.RecoveryMiddleware(deps.Logger))
	s.router.Use(httputil.LoggingMiddleware(deps.Logger))
	if len(deps.CORSOrigins) > 0 {
		s.router.Use(httputil.CORSMiddleware(deps.CORSOrigins))
	}
	if deps.Metrics != nil {
		s.router.Use(deps.Metrics.Middleware)
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Authentication, no session required for login
	s.router.HandleFunc("/api/auth/login", s.login).Methods("POST")

	// Everything below needs a valid session
	session := s.router.PathPrefix("/api").Subrouter()
	session.Use(s.auth.RequireSession)

	session.HandleFunc("/auth/logout", s.logout).Methods("POST")
	session.HandleFunc("/auth/me", s.me).Methods("GET")

	session.HandleFunc("/grafana/health", s.grafanaHealth).Methods("GET")

	// Read-only Grafana surface
	session.HandleFunc("/grafana/users", s.listUsers).Methods("GET")
	session.HandleFunc("/grafana/users/lookup", s.lookupUser).Methods("GET")
	session.HandleFunc("/grafana/users/{id:[0-9]+}", s.getUser).Methods("GET")
	session.HandleFunc("/grafana/users/{id:[0-9]+}/orgs", s.getUserOrgs).Methods("GET")
	session.HandleFunc("/grafana/users/{id:[0-9]+}/teams", s.getUserTeams).Methods("GET")
	session.HandleFunc("/grafana/users/{id:[0-9]+}/folders", s.getUserFolders).Methods("GET")
	session.HandleFunc("/grafana/users/{id:[0-9]+}/dashboards", s.getUserDashboards).Methods("GET")

	session.HandleFunc("/grafana/orgs", s.listOrgs).Methods("GET")
	session.HandleFunc("/grafana/orgs/{id:[0-9]+}", s.getOrg).Methods("GET")
	session.HandleFunc("/grafana/orgs/{id:[0-9]+}/users", s.listOrgUsers).Methods("GET")
	session.HandleFunc("/grafana/orgs/{id:[0-9]+}/folders", s.listOrgFolders).Methods("GET")
	session.HandleFunc("/grafana/orgs/{id:[0-9]+}/dashboards", s.listOrgDashboards).Methods("GET")

	session.HandleFunc("/grafana/teams", s.searchTeams).Methods("GET")
	session.HandleFunc("/grafana/teams/{id:[0-9]+}", s.getTeam).Methods("GET")
	session.HandleFunc("/grafana/teams/{id:[0-9]+}/members", s.listTeamMembers).Methods("GET")
	session.HandleFunc("/grafana/teams/{id:[0-9]+}/folders", s.getTeamFolders).Methods("GET")
	session.HandleFunc("/grafana/teams/{id:[0-9]+}/dashboards", s.getTeamDashboards).Methods("GET")

	session.HandleFunc("/grafana/folders", s.listFolders).Methods("GET")
	session.HandleFunc("/grafana/folders/{uid}", s.getFolder).Methods("GET")
	session.HandleFunc("/grafana/folders/{uid}/permissions", s.getFolderPermissions).Methods("GET")

	session.HandleFunc("/grafana/dashboards", s.searchDashboards).Methods("GET")
	session.HandleFunc("/grafana/dashboards/{uid}", s.getDashboard).Methods("GET")
	session.HandleFunc("/grafana/dashboards/{uid}/permissions", s.getDashboardPermissions).Methods("GET")

	// Access resolution for the caller's organization
	session.HandleFunc("/orgs/{orgId}/access", s.resolveAccess).Methods("GET")

	// Mutations and mapping administration require superadmin
	admin := s.router.PathPrefix("/api").Subrouter()
	admin.Use(s.auth.RequireSession)
	admin.Use(s.auth.RequireSuperAdmin)

	admin.HandleFunc("/grafana/users", s.createUser).Methods("POST")
	admin.HandleFunc("/grafana/users/{id:[0-9]+}", s.updateUser).Methods("PUT")
	admin.HandleFunc("/grafana/users/{id:[0-9]+}", s.deleteUser).Methods("DELETE")
	admin.HandleFunc("/grafana/users/{id:[0-9]+}/enable", s.enableUser).Methods("POST")
	admin.HandleFunc("/grafana/users/{id:[0-9]+}/disable", s.disableUser).Methods("POST")

	admin.HandleFunc("/grafana/orgs", s.createOrg).Methods("POST")
	admin.HandleFunc("/grafana/orgs/{id:[0-9]+}", s.updateOrg).Methods("PUT")
	admin.HandleFunc("/grafana/orgs/{id:[0-9]+}", s.deleteOrg).Methods("DELETE")
	admin.HandleFunc("/grafana/orgs/{id:[0-9]+}/users", s.addOrgUser).Methods("POST")
	admin.HandleFunc("/grafana/orgs/{id:[0-9]+}/users/{userId:[0-9]+}", s.updateOrgUser).Methods("PATCH")
	admin.HandleFunc("/grafana/orgs/{id:[0-9]+}/users/{userId:[0-9]+}", s.removeOrgUser).Methods("DELETE")

	admin.HandleFunc("/grafana/teams", s.createTeam).Methods("POST")
	admin.HandleFunc("/grafana/teams/{id:[0-9]+}", s.updateTeam).Methods("PUT")
	admin.HandleFunc("/grafana/teams/{id:[0-9]+}", s.deleteTeam).Methods("DELETE")
	admin.HandleFunc("/grafana/teams/{id:[0-9]+}/members", s.addTeamMember).Methods("POST")
	admin.HandleFunc("/grafana/teams/{id:[0-9]+}/members/{userId:[0-9]+}", s.removeTeamMember).Methods("DELETE")

	admin.HandleFunc("/grafana/folders", s.createFolder).Methods("POST")
	admin.HandleFunc("/grafana/folders/{uid}", s.updateFolder).Methods("PUT")
	admin.HandleFunc("/grafana/folders/{uid}", s.deleteFolder).Methods("DELETE")
	admin.HandleFunc("/grafana/folders/{uid}/permissions", s.setFolderPermissions).Methods("POST")

	admin.HandleFunc("/grafana/dashboards", s.saveDashboard).Methods("POST")
	admin.HandleFunc("/grafana/dashboards/{uid}", s.deleteDashboard).Methods("DELETE")
	admin.HandleFunc("/grafana/dashboards/{uid}/permissions", s.setDashboardPermissions).Methods("POST")
	admin.HandleFunc("/grafana/dashboards/{uid}/move", s.moveDashboard).Methods("POST")

	admin.HandleFunc("/admin/mappings", s.listMappings).Methods("GET")
	admin.HandleFunc("/admin/mappings", s.createMapping).Methods("POST")
	admin.HandleFunc("/admin/mappings/{orgId}", s.getMapping).Methods("GET")
	admin.HandleFunc("/admin/mappings/{orgId}", s.upsertMapping).Methods("PUT")
	admin.HandleFunc("/admin/mappings/{orgId}", s.deleteMapping).Methods("DELETE")
	admin.HandleFunc("/admin/mappings/{orgId}/dashboards/{uid}", s.assignDashboard).Methods("POST")
	admin.HandleFunc("/admin/mappings/{orgId}/dashboards/{uid}", s.removeAssignedDashboard).Methods("DELETE")
	admin.HandleFunc("/admin/mappings/{orgId}/folders/{uid}", s.assignFolder).Methods("POST")
	admin.HandleFunc("/admin/mappings/{orgId}/folders/{uid}", s.removeAssignedFolder).Methods("DELETE")

	admin.HandleFunc("/admin/audit", s.recentAuditEvents).Methods("GET")
	admin.HandleFunc("/admin/cache/stats", s.cacheStats).Methods("GET")
	admin.HandleFunc("/admin/cache/{orgId:[0-9]+}/refresh", s.refreshCache).Methods("POST")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
