package api

import (
	"net/http"

	"github.com/grafops/grafana-console/pkg/grafana"
	"github.com/grafops/grafana-console/pkg/httputil"
)

func (s *Server) searchDashboards(w http.ResponseWriter, r *http.Request) {
	opts := grafana.SearchOptions{
		Query: r.URL.Query().Get("query"),
	}
	if folderUID := r.URL.Query().Get("folderUid"); folderUID != "" {
		opts.FolderUIDs = []string{folderUID}
	}
	if r.URL.Query().Get("general") == "true" {
		opts.GeneralOnly = true
	}

	hits, err := s.grafana.SearchDashboards(r.Context(), opts)
	if err != nil {
		writeGrafanaError(r.Context(), w, err)
		return
	}
	httputil.WriteSuccess(w, hits)
}

func (s *Server) getDashboard(w http.ResponseWriter, r *http.Request) {
	uid := pathUID(w, r)
	if uid == "" {
		return
	}
	dash, err := s.grafana.GetDashboard(r.Context(), uid)
	if err != nil {
		writeGrafanaError(r.Context(), w, err)
		return
	}
	httputil.WriteSuccess(w, dash)
}

func (s *Server) saveDashboard(w http.ResponseWriter, r *http.Request) {
	var cmd grafana.SaveDashboardCommand
	if !httputil.ParseJSONOrError(w, r, &cmd) {
		return
	}
	if cmd.Dashboard == nil {
		httputil.WriteBadRequest(w, "dashboard body is required")
		return
	}
	result, err := s.grafana.SaveDashboard(r.Context(), cmd)
	if err != nil {
		writeGrafanaError(r.Context(), w, err)
		return
	}
	httputil.WriteSuccess(w, result)
}

func (s *Server) deleteDashboard(w http.ResponseWriter, r *http.Request) {
	uid := pathUID(w, r)
	if uid == "" {
		return
	}
	if err := s.grafana.DeleteDashboard(r.Context(), uid); err != nil {
		writeGrafanaError(r.Context(), w, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (s *Server) getDashboardPermissions(w http.ResponseWriter, r *http.Request) {
	uid := pathUID(w, r)
	if uid == "" {
		return
	}
	perms, err := s.grafana.GetDashboardPermissions(r.Context(), uid)
	if err != nil {
		writeGrafanaError(r.Context(), w, err)
		return
	}
	httputil.WriteSuccess(w, perms)
}

func (s *Server) setDashboardPermissions(w http.ResponseWriter, r *http.Request) {
	uid := pathUID(w, r)
	if uid == "" {
		return
	}
	var cmd grafana.SetPermissionsCommand
	if !httputil.ParseJSONOrError(w, r, &cmd) {
		return
	}
	if err := s.grafana.SetDashboardPermissions(r.Context(), uid, cmd); err != nil {
		writeGrafanaError(r.Context(), w, err)
		return
	}
	httputil.WriteNoContent(w)
}

type moveDashboardRequest struct {
	FolderUID string `json:"folderUid"`
}

func (s *Server) moveDashboard(w http.ResponseWriter, r *http.Request) {
	uid := pathUID(w, r)
	if uid == "" {
		return
	}
	var req moveDashboardRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	result, err := s.grafana.MoveDashboard(r.Context(), uid, req.FolderUID)
	if err != nil {
		writeGrafanaError(r.Context(), w, err)
		return
	}
	httputil.WriteSuccess(w, result)
}

func (s *Server) grafanaHealth(w http.ResponseWriter, r *http.Request) {
	status, err := s.grafana.Health(r.Context())
	if err != nil {
		writeGrafanaError(r.Context(), w, err)
		return
	}
	httputil.WriteSuccess(w, status)
}
