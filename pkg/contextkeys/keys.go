// Package contextkeys provides centralized context key definitions.
//
// All context keys used across the application must be defined here.
// This prevents typos, documents dependencies, and makes key usage discoverable.
package contextkeys

// Key is the type for context keys to prevent collisions
type Key string

const (
	// SessionKey contains *authn.Session
	// Set by: middleware.SessionMiddleware (pkg/middleware/auth.go)
	// Required by: all protected console endpoints
	SessionKey Key = "session"

	// RequestIDKey contains the request ID string (UUID)
	// Set by: httputil.RequestIDMiddleware
	// Used by: logger, audit trail
	RequestIDKey Key = "request_id"

	// UserIDKey contains the application user ID string
	// Set by: middleware.SessionMiddleware after authentication
	// Used by: logger, audit trail
	UserIDKey Key = "user_id"

	// OrgIDKey contains the application organization ID string
	// Set by: middleware.SessionMiddleware from the user profile
	// Used by: org-scoped endpoints and the access resolver
	OrgIDKey Key = "org_id"

	// LoggerKey contains *observability.Logger
	LoggerKey Key = "logger"
)
