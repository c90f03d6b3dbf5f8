package api

import (
	"net/http"

	"github.com/grafops/grafana-console/pkg/grafana"
	"github.com/grafops/grafana-console/pkg/httputil"
)

func (s *Server) searchTeams(w http.ResponseWriter, r *http.Request) {
	result, err := s.grafana.SearchTeams(r.Context(),
		r.URL.Query().Get("query"),
		httputil.QueryInt(r, "page", 1),
		httputil.QueryInt(r, "perpage", 100),
	)
	if err != nil {
		writeGrafanaError(r.Context(), w, err)
		return
	}
	httputil.WriteSuccess(w, result)
}

func (s *Server) getTeam(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.PathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	team, err := s.grafana.GetTeam(r.Context(), id)
	if err != nil {
		writeGrafanaError(r.Context(), w, err)
		return
	}
	httputil.WriteSuccess(w, team)
}

func (s *Server) listTeamMembers(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.PathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	members, err := s.grafana.ListTeamMembers(r.Context(), id)
	if err != nil {
		writeGrafanaError(r.Context(), w, err)
		return
	}
	httputil.WriteSuccess(w, members)
}

// getTeamFolders lists the folders whose ACL grants this team access
func (s *Server) getTeamFolders(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.PathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	result, err := s.resolver.ResolveForTeams(r.Context(), []int64{id})
	if err != nil {
		writeResolveError(r.Context(), w, err)
		return
	}
	httputil.WriteSuccess(w, result.Folders)
}

// getTeamDashboards lists the dashboards reachable through this team
func (s *Server) getTeamDashboards(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.PathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	result, err := s.resolver.ResolveForTeams(r.Context(), []int64{id})
	if err != nil {
		writeResolveError(r.Context(), w, err)
		return
	}
	httputil.WriteSuccess(w, result.Dashboards)
}

func (s *Server) createTeam(w http.ResponseWriter, r *http.Request) {
	var cmd grafana.CreateTeamCommand
	if !httputil.ParseJSONOrError(w, r, &cmd) {
		return
	}
	if cmd.Name == "" {
		httputil.WriteBadRequest(w, "team name is required")
		return
	}
	result, err := s.grafana.CreateTeam(r.Context(), cmd)
	if err != nil {
		writeGrafanaError(r.Context(), w, err)
		return
	}
	httputil.WriteCreated(w, result)
}

func (s *Server) updateTeam(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.PathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var cmd grafana.CreateTeamCommand
	if !httputil.ParseJSONOrError(w, r, &cmd) {
		return
	}
	if cmd.Name == "" {
		httputil.WriteBadRequest(w, "team name is required")
		return
	}
	if err := s.grafana.UpdateTeam(r.Context(), id, cmd); err != nil {
		writeGrafanaError(r.Context(), w, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (s *Server) deleteTeam(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.PathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if err := s.grafana.DeleteTeam(r.Context(), id); err != nil {
		writeGrafanaError(r.Context(), w, err)
		return
	}
	httputil.WriteNoContent(w)
}

type teamMemberRequest struct {
	UserID int64 `json:"userId"`
}

func (s *Server) addTeamMember(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.PathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var req teamMemberRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.UserID <= 0 {
		httputil.WriteBadRequest(w, "userId is required")
		return
	}
	if err := s.grafana.AddTeamMember(r.Context(), id, req.UserID); err != nil {
		writeGrafanaError(r.Context(), w, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (s *Server) removeTeamMember(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.PathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	userID, ok := httputil.PathInt64OrError(w, r, "userId")
	if !ok {
		return
	}
	if err := s.grafana.RemoveTeamMember(r.Context(), id, userID); err != nil {
		writeGrafanaError(r.Context(), w, err)
		return
	}
	httputil.WriteNoContent(w)
}
