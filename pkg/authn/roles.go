// Package authn authenticates console users against the backend auth
// service and manages the opaque sessions this service issues.
package authn

// Role is the console-level role of an authenticated user
type Role string

const (
	RoleSuperAdmin Role = "superadmin"
	RoleAdmin      Role = "admin"
	RoleViewer     Role = "viewer"
)

// Valid reports whether the role is one of the known values
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleViewer:
		return true
	}
	return false
}

// CanAdminister reports whether the role may use the management surface:
// users, organizations, teams, folders, and mappings.
func (r Role) CanAdminister() bool {
	return r == RoleSuperAdmin
}

// ParseRole normalizes a backend-supplied role string, defaulting unknown
// values to viewer so a new backend role never silently grants access.
func ParseRole(s string) Role {
	r := Role(s)
	if !r.Valid() {
		return RoleViewer
	}
	return r
}
