package grafana

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a failed Grafana API call. It carries the upstream status code
// and message so proxy handlers can forward both to the UI.
type APIError struct {
	Operation  string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("grafana: %s failed: %s (status %d)", e.Operation, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("grafana: %s failed with status %d", e.Operation, e.StatusCode)
}

// Hint returns an operator-facing suggestion for permission failures, or ""
// when the error needs no hint.
func (e *APIError) Hint() string {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return "The configured Grafana credential was rejected. Check GRAFCONSOLE_GRAFANA_USERNAME/PASSWORD or GRAFCONSOLE_GRAFANA_API_KEY."
	case http.StatusForbidden:
		return "The configured Grafana credential lacks the required admin permissions for this operation."
	default:
		return ""
	}
}

// AsAPIError unwraps err to an *APIError when possible
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsNotFound reports whether err is an upstream 404
func IsNotFound(err error) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.StatusCode == http.StatusNotFound
}

// IsForbidden reports whether err is an upstream 403
func IsForbidden(err error) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.StatusCode == http.StatusForbidden
}
