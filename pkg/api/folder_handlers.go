package api

import (
	"net/http"

	"github.com/grafops/grafana-console/pkg/grafana"
	"github.com/grafops/grafana-console/pkg/httputil"
)

func (s *Server) listFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := s.grafana.ListFolders(r.Context(), 0)
	if err != nil {
		writeGrafanaError(r.Context(), w, err)
		return
	}
	httputil.WriteSuccess(w, folders)
}

func (s *Server) getFolder(w http.ResponseWriter, r *http.Request) {
	uid := pathUID(w, r)
	if uid == "" {
		return
	}
	folder, err := s.grafana.GetFolder(r.Context(), uid)
	if err != nil {
		writeGrafanaError(r.Context(), w, err)
		return
	}
	httputil.WriteSuccess(w, folder)
}

func (s *Server) createFolder(w http.ResponseWriter, r *http.Request) {
	var cmd grafana.CreateFolderCommand
	if !httputil.ParseJSONOrError(w, r, &cmd) {
		return
	}
	if cmd.Title == "" {
		httputil.WriteBadRequest(w, "folder title is required")
		return
	}
	folder, err := s.grafana.CreateFolder(r.Context(), cmd)
	if err != nil {
		writeGrafanaError(r.Context(), w, err)
		return
	}
	httputil.WriteCreated(w, folder)
}

func (s *Server) updateFolder(w http.ResponseWriter, r *http.Request) {
	uid := pathUID(w, r)
	if uid == "" {
		return
	}
	var cmd grafana.UpdateFolderCommand
	if !httputil.ParseJSONOrError(w, r, &cmd) {
		return
	}
	if cmd.Title == "" {
		httputil.WriteBadRequest(w, "folder title is required")
		return
	}
	folder, err := s.grafana.UpdateFolder(r.Context(), uid, cmd)
	if err != nil {
		writeGrafanaError(r.Context(), w, err)
		return
	}
	httputil.WriteSuccess(w, folder)
}

func (s *Server) deleteFolder(w http.ResponseWriter, r *http.Request) {
	uid := pathUID(w, r)
	if uid == "" {
		return
	}
	if err := s.grafana.DeleteFolder(r.Context(), uid); err != nil {
		writeGrafanaError(r.Context(), w, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (s *Server) getFolderPermissions(w http.ResponseWriter, r *http.Request) {
	uid := pathUID(w, r)
	if uid == "" {
		return
	}
	perms, err := s.grafana.GetFolderPermissions(r.Context(), uid)
	if err != nil {
		writeGrafanaError(r.Context(), w, err)
		return
	}
	httputil.WriteSuccess(w, perms)
}

func (s *Server) setFolderPermissions(w http.ResponseWriter, r *http.Request) {
	uid := pathUID(w, r)
	if uid == "" {
		return
	}
	var cmd grafana.SetPermissionsCommand
	if !httputil.ParseJSONOrError(w, r, &cmd) {
		return
	}
	if err := s.grafana.SetFolderPermissions(r.Context(), uid, cmd); err != nil {
		writeGrafanaError(r.Context(), w, err)
		return
	}
	httputil.WriteNoContent(w)
}

// pathUID extracts the {uid} path variable, writing a 400 when missing
func pathUID(w http.ResponseWriter, r *http.Request) string {
	uid, err := httputil.PathString(r, "uid")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return ""
	}
	return uid
}
