package api

import (
	"net/http"

	"github.com/grafops/grafana-console/pkg/access"
	"github.com/grafops/grafana-console/pkg/grafana"
	"github.com/grafops/grafana-console/pkg/httputil"
)

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.grafana.ListUsers(r.Context())
	if err != nil {
		writeGrafanaError(r.Context(), w, err)
		return
	}
	httputil.WriteSuccess(w, users)
}

func (s *Server) lookupUser(w http.ResponseWriter, r *http.Request) {
	loginOrEmail := r.URL.Query().Get("loginOrEmail")
	if loginOrEmail == "" {
		httputil.WriteBadRequest(w, "loginOrEmail query parameter is required")
		return
	}
	user, err := s.grafana.LookupUser(r.Context(), loginOrEmail)
	if err != nil {
		writeGrafanaError(r.Context(), w, err)
		return
	}
	httputil.WriteSuccess(w, user)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.PathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	user, err := s.grafana.GetUser(r.Context(), id)
	if err != nil {
		writeGrafanaError(r.Context(), w, err)
		return
	}
	httputil.WriteSuccess(w, user)
}

func (s *Server) getUserOrgs(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.PathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	orgs, err := s.grafana.GetUserOrgs(r.Context(), id)
	if err != nil {
		writeGrafanaError(r.Context(), w, err)
		return
	}
	httputil.WriteSuccess(w, orgs)
}

func (s *Server) getUserTeams(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.PathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	teams, err := s.grafana.GetUserTeams(r.Context(), id)
	if err != nil {
		writeGrafanaError(r.Context(), w, err)
		return
	}
	httputil.WriteSuccess(w, teams)
}

// getUserFolders resolves the folders reachable through the user's teams
func (s *Server) getUserFolders(w http.ResponseWriter, r *http.Request) {
	result, ok := s.resolveUserAccess(w, r)
	if !ok {
		return
	}
	httputil.WriteSuccess(w, result.Folders)
}

// getUserDashboards resolves the dashboards reachable through the user's teams
func (s *Server) getUserDashboards(w http.ResponseWriter, r *http.Request) {
	result, ok := s.resolveUserAccess(w, r)
	if !ok {
		return
	}
	httputil.WriteSuccess(w, result.Dashboards)
}

func (s *Server) resolveUserAccess(w http.ResponseWriter, r *http.Request) (*access.Result, bool) {
	id, ok := httputil.PathInt64OrError(w, r, "id")
	if !ok {
		return nil, false
	}
	teams, err := s.grafana.GetUserTeams(r.Context(), id)
	if err != nil {
		writeGrafanaError(r.Context(), w, err)
		return nil, false
	}
	teamIDs := make([]int64, 0, len(teams))
	for _, t := range teams {
		teamIDs = append(teamIDs, t.ID)
	}
	result, err := s.resolver.ResolveForTeams(r.Context(), teamIDs)
	if err != nil {
		writeResolveError(r.Context(), w, err)
		return nil, false
	}
	return result, true
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var cmd grafana.CreateUserCommand
	if !httputil.ParseJSONOrError(w, r, &cmd) {
		return
	}
	if cmd.Login == "" && cmd.Email == "" {
		httputil.WriteBadRequest(w, "login or email is required")
		return
	}
	if cmd.Password == "" {
		httputil.WriteBadRequest(w, "password is required")
		return
	}
	result, err := s.grafana.CreateUser(r.Context(), cmd)
	if err != nil {
		writeGrafanaError(r.Context(), w, err)
		return
	}
	httputil.WriteCreated(w, result)
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.PathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var cmd grafana.UpdateUserCommand
	if !httputil.ParseJSONOrError(w, r, &cmd) {
		return
	}
	if err := s.grafana.UpdateUser(r.Context(), id, cmd); err != nil {
		writeGrafanaError(r.Context(), w, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.PathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if err := s.grafana.DeleteUser(r.Context(), id); err != nil {
		writeGrafanaError(r.Context(), w, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (s *Server) enableUser(w http.ResponseWriter, r *http.Request) {
	s.setUserEnabled(w, r, true)
}

func (s *Server) disableUser(w http.ResponseWriter, r *http.Request) {
	s.setUserEnabled(w, r, false)
}

func (s *Server) setUserEnabled(w http.ResponseWriter, r *http.Request, enabled bool) {
	id, ok := httputil.PathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if err := s.grafana.SetUserEnabled(r.Context(), id, enabled); err != nil {
		writeGrafanaError(r.Context(), w, err)
		return
	}
	httputil.WriteNoContent(w)
}
