// Package audit records who did what through the console: logins, denied
// requests, and every mutation of the organization mapping table. Events are
// appended as JSON lines to a rotating file so they survive restarts and can
// be shipped by any log collector.
package audit

import "time"

// Auth actions
const (
	ActionLogin       = "auth.login"
	ActionLoginFailed = "auth.login_failed"
	ActionLogout      = "auth.logout"
	ActionDenied      = "auth.denied"
)

// Event statuses
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusDenied  = "denied"
)

// Event is one audit record. Action strings are dot-scoped, e.g.
// "auth.login" or "mapping.assign_dashboard".
type Event struct {
	ID        string                 `json:"id"`
	Timestamp time.Time              `json:"timestamp"`
	Action    string                 `json:"action"`
	Status    string                 `json:"status"`
	Actor     string                 `json:"actor,omitempty"`
	ActorID   int64                  `json:"actorId,omitempty"`
	OrgID     string                 `json:"orgId,omitempty"`
	Resource  string                 `json:"resource,omitempty"`
	RequestID string                 `json:"requestId,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Detail    map[string]interface{} `json:"detail,omitempty"`
}
