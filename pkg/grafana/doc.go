// Package grafana provides a typed client for the Grafana HTTP API covering
// users, organizations, teams, folders, dashboards, and permissions.
//
// All requests are authenticated with a single configured credential: basic
// server-admin credentials (valid across organizations) or a bearer API key
// (typically scoped to one organization). Org-scoped calls set the
// X-Grafana-Org-Id header instead of switching the session's org context.
package grafana
