package api

import (
	"net/http"

	"github.com/grafops/grafana-console/pkg/httputil"
	"github.com/grafops/grafana-console/pkg/mapping"
)

func (s *Server) listMappings(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, s.mappings.List())
}

func (s *Server) getMapping(w http.ResponseWriter, r *http.Request) {
	orgID, err := httputil.PathString(r, "orgId")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	m, ok := s.mappings.Get(orgID)
	if !ok {
		httputil.WriteNotFound(w, "no mapping for organization "+orgID)
		return
	}
	httputil.WriteSuccess(w, m)
}

func (s *Server) createMapping(w http.ResponseWriter, r *http.Request) {
	var m mapping.Mapping
	if !httputil.ParseJSONOrError(w, r, &m) {
		return
	}
	if _, exists := s.mappings.Get(m.OrgID); exists {
		httputil.WriteErrorMessage(w, http.StatusConflict, "mapping already exists for organization "+m.OrgID)
		return
	}
	if err := s.mappings.Upsert(m); err != nil {
		writeMappingError(w, err)
		return
	}
	httputil.WriteCreated(w, m)
}

func (s *Server) upsertMapping(w http.ResponseWriter, r *http.Request) {
	orgID, err := httputil.PathString(r, "orgId")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	var m mapping.Mapping
	if !httputil.ParseJSONOrError(w, r, &m) {
		return
	}
	if m.OrgID != "" && m.OrgID != orgID {
		httputil.WriteBadRequest(w, "orgId in body does not match path")
		return
	}
	m.OrgID = orgID
	if err := s.mappings.Upsert(m); err != nil {
		writeMappingError(w, err)
		return
	}
	httputil.WriteSuccess(w, m)
}

func (s *Server) deleteMapping(w http.ResponseWriter, r *http.Request) {
	orgID, err := httputil.PathString(r, "orgId")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	if err := s.mappings.Delete(orgID); err != nil {
		writeMappingError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (s *Server) assignDashboard(w http.ResponseWriter, r *http.Request) {
	s.mutateAssignment(w, r, s.mappings.AssignDashboard)
}

func (s *Server) removeAssignedDashboard(w http.ResponseWriter, r *http.Request) {
	s.mutateAssignment(w, r, s.mappings.RemoveDashboard)
}

func (s *Server) assignFolder(w http.ResponseWriter, r *http.Request) {
	s.mutateAssignment(w, r, s.mappings.AssignFolder)
}

func (s *Server) removeAssignedFolder(w http.ResponseWriter, r *http.Request) {
	s.mutateAssignment(w, r, s.mappings.RemoveFolder)
}

func (s *Server) mutateAssignment(w http.ResponseWriter, r *http.Request, op func(orgID, uid string) error) {
	orgID, err := httputil.PathString(r, "orgId")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	uid := pathUID(w, r)
	if uid == "" {
		return
	}
	if err := op(orgID, uid); err != nil {
		writeMappingError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (s *Server) recentAuditEvents(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		httputil.WriteSuccess(w, []struct{}{})
		return
	}
	events, err := s.audit.Recent(httputil.QueryInt(r, "limit", 100))
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, events)
}

func (s *Server) cacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.usersCache.Stats(r.Context())
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, stats)
}

func (s *Server) refreshCache(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.PathInt64OrError(w, r, "orgId")
	if !ok {
		return
	}
	users, err := s.usersCache.Refresh(r.Context(), id)
	if err != nil {
		writeGrafanaError(r.Context(), w, err)
		return
	}
	httputil.WriteSuccess(w, users)
}
