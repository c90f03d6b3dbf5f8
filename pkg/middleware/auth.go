// Package middleware provides the authentication and authorization layers
// wrapped around the console's protected routes.
package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/grafops/grafana-console/pkg/audit"
	"github.com/grafops/grafana-console/pkg/authn"
	"github.com/grafops/grafana-console/pkg/contextkeys"
	"github.com/grafops/grafana-console/pkg/httputil"
	"github.com/grafops/grafana-console/pkg/observability"
)

// SessionValidator resolves a bearer token to a live session
type SessionValidator interface {
	Validate(token string) (*authn.Session, error)
}

// Auth guards routes behind a valid console session
type Auth struct {
	sessions SessionValidator
	logger   *observability.Logger
	audit    *audit.Logger // may be nil
}

// NewAuth creates the auth middleware. The audit logger may be nil.
func NewAuth(sessions SessionValidator, logger *observability.Logger, auditLogger *audit.Logger) *Auth {
	return &Auth{
		sessions: sessions,
		logger:   logger,
		audit:    auditLogger,
	}
}

// RequireSession rejects requests without a valid session token and stores
// the session plus user/org identifiers in the request context.
func (a *Auth) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			httputil.WriteUnauthorized(w, "missing session token")
			return
		}

		session, err := a.sessions.Validate(token)
		if err != nil {
			httputil.WriteUnauthorized(w, "invalid or expired session")
			return
		}

		ctx := context.WithValue(r.Context(), contextkeys.SessionKey, session)
		ctx = context.WithValue(ctx, contextkeys.UserIDKey, strconv.FormatInt(session.Profile.ID, 10))
		ctx = context.WithValue(ctx, contextkeys.OrgIDKey, session.Profile.Organization)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireSuperAdmin gates the management surface. Must run after
// RequireSession.
func (a *Auth) RequireSuperAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := SessionFrom(r.Context())
		if session == nil {
			httputil.WriteUnauthorized(w, "missing session token")
			return
		}
		if !session.Role.CanAdminister() {
			a.logger.WithFields(map[string]interface{}{
				"user": session.Profile.Username,
				"path": r.URL.Path,
			}).Warn("admin route denied")
			if a.audit != nil {
				_ = a.audit.RecordAuth(r.Context(), audit.ActionDenied, audit.StatusDenied,
					session.Profile.Username, session.Profile.ID, r.Method+" "+r.URL.Path)
			}
			httputil.WriteForbidden(w, "superadmin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SessionFrom returns the authenticated session, or nil outside
// RequireSession.
func SessionFrom(ctx context.Context) *authn.Session {
	session, _ := ctx.Value(contextkeys.SessionKey).(*authn.Session)
	return session
}

// bearerToken extracts the token from the Authorization header, falling
// back to the session cookie set at login.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	if cookie, err := r.Cookie("console_session"); err == nil {
		return cookie.Value
	}
	return ""
}
