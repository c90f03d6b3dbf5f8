package api

import (
	"net/http"

	"github.com/grafops/grafana-console/pkg/grafana"
	"github.com/grafops/grafana-console/pkg/httputil"
)

func (s *Server) listOrgs(w http.ResponseWriter, r *http.Request) {
	orgs, err := s.grafana.ListOrgs(r.Context())
	if err != nil {
		writeGrafanaError(r.Context(), w, err)
		return
	}
	httputil.WriteSuccess(w, orgs)
}

func (s *Server) getOrg(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.PathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	org, err := s.grafana.GetOrg(r.Context(), id)
	if err != nil {
		writeGrafanaError(r.Context(), w, err)
		return
	}
	httputil.WriteSuccess(w, org)
}

// listOrgUsers serves from the membership cache; refresh=true forces a
// reload from Grafana.
func (s *Server) listOrgUsers(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.PathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var (
		users []grafana.OrgUser
		err   error
	)
	if r.URL.Query().Get("refresh") == "true" {
		users, err = s.usersCache.Refresh(r.Context(), id)
	} else {
		users, err = s.usersCache.Get(r.Context(), id)
	}
	if err != nil {
		writeGrafanaError(r.Context(), w, err)
		return
	}
	httputil.WriteSuccess(w, users)
}

// listOrgFolders lists folders in the given org's context
func (s *Server) listOrgFolders(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.PathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	folders, err := s.grafana.ListFolders(r.Context(), id)
	if err != nil {
		writeGrafanaError(r.Context(), w, err)
		return
	}
	httputil.WriteSuccess(w, folders)
}

// listOrgDashboards searches dashboards in the given org's context
func (s *Server) listOrgDashboards(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.PathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	hits, err := s.grafana.SearchDashboards(r.Context(), grafana.SearchOptions{
		Query: r.URL.Query().Get("query"),
		OrgID: id,
	})
	if err != nil {
		writeGrafanaError(r.Context(), w, err)
		return
	}
	httputil.WriteSuccess(w, hits)
}

type createOrgRequest struct {
	Name string `json:"name"`
}

func (s *Server) createOrg(w http.ResponseWriter, r *http.Request) {
	var req createOrgRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Name == "" {
		httputil.WriteBadRequest(w, "organization name is required")
		return
	}
	orgID, err := s.grafana.CreateOrg(r.Context(), req.Name)
	if err != nil {
		writeGrafanaError(r.Context(), w, err)
		return
	}
	httputil.WriteCreated(w, map[string]int64{"orgId": orgID})
}

func (s *Server) updateOrg(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.PathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var req createOrgRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Name == "" {
		httputil.WriteBadRequest(w, "organization name is required")
		return
	}
	if err := s.grafana.UpdateOrg(r.Context(), id, req.Name); err != nil {
		writeGrafanaError(r.Context(), w, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (s *Server) deleteOrg(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.PathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if err := s.grafana.DeleteOrg(r.Context(), id); err != nil {
		writeGrafanaError(r.Context(), w, err)
		return
	}
	_ = s.usersCache.Invalidate(r.Context(), id)
	httputil.WriteNoContent(w)
}

func (s *Server) addOrgUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.PathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var cmd grafana.AddOrgUserCommand
	if !httputil.ParseJSONOrError(w, r, &cmd) {
		return
	}
	if cmd.LoginOrEmail == "" {
		httputil.WriteBadRequest(w, "loginOrEmail is required")
		return
	}
	if err := s.grafana.AddOrgUser(r.Context(), id, cmd); err != nil {
		writeGrafanaError(r.Context(), w, err)
		return
	}
	_ = s.usersCache.Invalidate(r.Context(), id)
	httputil.WriteNoContent(w)
}

func (s *Server) updateOrgUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.PathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	userID, ok := httputil.PathInt64OrError(w, r, "userId")
	if !ok {
		return
	}
	var cmd grafana.UpdateOrgUserCommand
	if !httputil.ParseJSONOrError(w, r, &cmd) {
		return
	}
	if err := s.grafana.UpdateOrgUser(r.Context(), id, userID, cmd); err != nil {
		writeGrafanaError(r.Context(), w, err)
		return
	}
	_ = s.usersCache.Invalidate(r.Context(), id)
	httputil.WriteNoContent(w)
}

func (s *Server) removeOrgUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.PathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	userID, ok := httputil.PathInt64OrError(w, r, "userId")
	if !ok {
		return
	}
	if err := s.grafana.RemoveOrgUser(r.Context(), id, userID); err != nil {
		writeGrafanaError(r.Context(), w, err)
		return
	}
	_ = s.usersCache.Invalidate(r.Context(), id)
	httputil.WriteNoContent(w)
}
