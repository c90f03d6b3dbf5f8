package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/grafops/grafana-console/pkg/audit"
	"github.com/grafops/grafana-console/pkg/authn"
	"github.com/grafops/grafana-console/pkg/httputil"
	"github.com/grafops/grafana-console/pkg/middleware"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token     string        `json:"token,omitempty"`
	User      authn.Profile `json:"user"`
	Role      authn.Role    `json:"role"`
	ExpiresAt time.Time     `json:"expiresAt"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		httputil.WriteBadRequest(w, "username and password are required")
		return
	}

	profile, backendToken, err := s.authBackend.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, authn.ErrBadCredentials) {
			s.recordAuth(r, audit.ActionLoginFailed, audit.StatusFailure, req.Username, 0, "backend rejected credentials")
			httputil.WriteUnauthorized(w, "invalid credentials")
			return
		}
		s.logger.WithError(err).Error("auth backend failure during login")
		httputil.WriteBadGateway(w, "authentication service unavailable")
		return
	}

	role := authn.ParseRole(profile.Role)
	if s.mappings.IsSuperAdmin(profile.Email) {
		role = authn.RoleSuperAdmin
	}

	token, session, err := s.sessions.Create(*profile, role, backendToken)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	s.recordAuth(r, audit.ActionLogin, audit.StatusSuccess, profile.Username, profile.ID, "")
	s.updateSessionsGauge()

	http.SetCookie(w, &http.Cookie{
		Name:     "console_session",
		Value:    token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	httputil.WriteSuccess(w, sessionResponse{
		Token:     token,
		User:      session.Profile,
		Role:      session.Role,
		ExpiresAt: session.ExpiresAt,
	})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFrom(r.Context())
	if token := requestToken(r); token != "" {
		s.sessions.Revoke(token)
	}
	if session != nil {
		s.recordAuth(r, audit.ActionLogout, audit.StatusSuccess, session.Profile.Username, session.Profile.ID, "")
	}
	s.updateSessionsGauge()

	http.SetCookie(w, &http.Cookie{
		Name:     "console_session",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	httputil.WriteNoContent(w)
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFrom(r.Context())
	httputil.WriteSuccess(w, sessionResponse{
		User:      session.Profile,
		Role:      session.Role,
		ExpiresAt: session.ExpiresAt,
	})
}

func (s *Server) recordAuth(r *http.Request, action, status, actor string, actorID int64, message string) {
	if s.audit != nil {
		_ = s.audit.RecordAuth(r.Context(), action, status, actor, actorID, message)
	}
}

func (s *Server) updateSessionsGauge() {
	if s.metrics != nil {
		s.metrics.SessionsActive.Set(float64(s.sessions.Count()))
	}
}

// requestToken mirrors the middleware's token extraction for logout
func requestToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	if cookie, err := r.Cookie("console_session"); err == nil {
		return cookie.Value
	}
	return ""
}
