package mapping

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no mapping exists for an organization
	ErrNotFound = errors.New("mapping not found")
)

// Mapping associates an application organization with the Grafana teams
// whose folder permissions gate that organization's dashboard access.
type Mapping struct {
	OrgID       string      `json:"orgId" yaml:"orgId"`
	OrgName     string      `json:"orgName" yaml:"orgName"`
	TeamIDs     []int64     `json:"teamIds" yaml:"teamIds"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Assignments Assignments `json:"assignments,omitempty" yaml:"assignments,omitempty"`
}

// Assignments lists folders and dashboards granted to an organization
// directly, outside the team ACL path.
type Assignments struct {
	FolderUIDs    []string `json:"folderUids,omitempty" yaml:"folderUids,omitempty"`
	DashboardUIDs []string `json:"dashboardUids,omitempty" yaml:"dashboardUids,omitempty"`
}

// Validate checks a mapping for structural problems before it is stored
func (m *Mapping) Validate() error {
	if m.OrgID == "" {
		return fmt.Errorf("mapping orgId is required")
	}
	if m.OrgName == "" {
		return fmt.Errorf("mapping orgName is required")
	}
	seen := make(map[int64]bool, len(m.TeamIDs))
	for _, id := range m.TeamIDs {
		if id <= 0 {
			return fmt.Errorf("mapping %q: invalid team id %d", m.OrgID, id)
		}
		if seen[id] {
			return fmt.Errorf("mapping %q: duplicate team id %d", m.OrgID, id)
		}
		seen[id] = true
	}
	return nil
}

// HasTeam reports whether the mapping grants the given team
func (m *Mapping) HasTeam(teamID int64) bool {
	for _, id := range m.TeamIDs {
		if id == teamID {
			return true
		}
	}
	return false
}

// clone returns a deep copy so callers cannot mutate stored state
func (m Mapping) clone() Mapping {
	out := m
	out.TeamIDs = append([]int64(nil), m.TeamIDs...)
	out.Assignments.FolderUIDs = append([]string(nil), m.Assignments.FolderUIDs...)
	out.Assignments.DashboardUIDs = append([]string(nil), m.Assignments.DashboardUIDs...)
	return out
}

// File is the on-disk document shape
type File struct {
	SuperAdmins []string  `json:"superAdmins,omitempty" yaml:"superAdmins,omitempty"`
	Mappings    []Mapping `json:"mappings" yaml:"mappings"`
}
