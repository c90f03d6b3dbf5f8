package api

import (
	"net/http"

	"github.com/grafops/grafana-console/pkg/httputil"
	"github.com/grafops/grafana-console/pkg/middleware"
)

// resolveAccess returns the caller's organization access. Non-superadmins
// may only query the organization on their own profile.
func (s *Server) resolveAccess(w http.ResponseWriter, r *http.Request) {
	orgID, err := httputil.PathString(r, "orgId")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	session := middleware.SessionFrom(r.Context())
	if !session.Role.CanAdminister() && session.Profile.Organization != orgID {
		httputil.WriteForbidden(w, "cannot query another organization's access")
		return
	}

	result, err := s.resolver.Resolve(r.Context(), orgID)
	if err != nil {
		writeResolveError(r.Context(), w, err)
		return
	}
	httputil.WriteSuccess(w, result)
}
