package mapping

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/grafops/grafana-console/pkg/observability"
)

// Recorder receives an event for every store mutation. Implementations must
// not block; a nil Recorder disables recording.
type Recorder interface {
	RecordMappingEvent(action, orgID string, detail map[string]interface{})
}

// Store is the authoritative, file-backed mapping table. The file on disk is
// the single source of truth: mutations rewrite it atomically and reloads
// replace in-memory state wholesale.
type Store struct {
	path     string
	logger   *observability.Logger
	recorder Recorder

	mu   sync.RWMutex
	file File
}

// NewStore loads the mapping file at path. A missing file yields an empty
// store; the file is created on the first mutation.
func NewStore(path string, logger *observability.Logger, recorder Recorder) (*Store, error) {
	s := &Store{
		path:     path,
		logger:   logger,
		recorder: recorder,
	}
	if err := s.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		logger.WithField("path", path).Warn("mapping file does not exist, starting empty")
	}
	return s, nil
}

// Path returns the backing file path
func (s *Store) Path() string {
	return s.path
}

// Load re-reads the backing file, replacing in-memory state
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}

	var file File
	if err := unmarshalByExt(s.path, data, &file); err != nil {
		return fmt.Errorf("parse mapping file %s: %w", s.path, err)
	}
	for i := range file.Mappings {
		if err := file.Mappings[i].Validate(); err != nil {
			return fmt.Errorf("mapping file %s: %w", s.path, err)
		}
	}

	s.mu.Lock()
	s.file = file
	s.mu.Unlock()

	s.logger.WithFields(map[string]interface{}{
		"path":     s.path,
		"mappings": len(file.Mappings),
	}).Info("mapping file loaded")
	return nil
}

// List returns all mappings
func (s *Store) List() []Mapping {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Mapping, 0, len(s.file.Mappings))
	for _, m := range s.file.Mappings {
		out = append(out, m.clone())
	}
	return out
}

// Get returns the mapping for an organization
func (s *Store) Get(orgID string) (Mapping, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.file.Mappings {
		if m.OrgID == orgID {
			return m.clone(), true
		}
	}
	return Mapping{}, false
}

// SuperAdmins returns the configured super-admin emails
func (s *Store) SuperAdmins() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.file.SuperAdmins...)
}

// IsSuperAdmin reports whether the given email is on the super-admin list.
// Comparison is case-insensitive, matching how Grafana treats emails.
func (s *Store) IsSuperAdmin(email string) bool {
	if email == "" {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, admin := range s.file.SuperAdmins {
		if strings.EqualFold(admin, email) {
			return true
		}
	}
	return false
}

// Upsert creates or replaces the mapping for a given organization
func (s *Store) Upsert(m Mapping) error {
	if err := m.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	action := "mapping.create"
	replaced := false
	for i := range s.file.Mappings {
		if s.file.Mappings[i].OrgID == m.OrgID {
			s.file.Mappings[i] = m.clone()
			action = "mapping.update"
			replaced = true
			break
		}
	}
	if !replaced {
		s.file.Mappings = append(s.file.Mappings, m.clone())
	}

	if err := s.saveLocked(); err != nil {
		return err
	}
	s.record(action, m.OrgID, map[string]interface{}{
		"orgName": m.OrgName,
		"teamIds": m.TeamIDs,
	})
	return nil
}

// Delete removes the mapping for an organization
func (s *Store) Delete(orgID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.file.Mappings {
		if s.file.Mappings[i].OrgID == orgID {
			s.file.Mappings = append(s.file.Mappings[:i], s.file.Mappings[i+1:]...)
			if err := s.saveLocked(); err != nil {
				return err
			}
			s.record("mapping.delete", orgID, nil)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, orgID)
}

// AssignDashboard grants a dashboard directly to an organization
func (s *Store) AssignDashboard(orgID, dashboardUID string) error {
	return s.mutateAssignments(orgID, "mapping.assign_dashboard", dashboardUID, func(a *Assignments) bool {
		if containsString(a.DashboardUIDs, dashboardUID) {
			return false
		}
		a.DashboardUIDs = append(a.DashboardUIDs, dashboardUID)
		return true
	})
}

// RemoveDashboard revokes a direct dashboard grant
func (s *Store) RemoveDashboard(orgID, dashboardUID string) error {
	return s.mutateAssignments(orgID, "mapping.remove_dashboard", dashboardUID, func(a *Assignments) bool {
		next := removeString(a.DashboardUIDs, dashboardUID)
		changed := len(next) != len(a.DashboardUIDs)
		a.DashboardUIDs = next
		return changed
	})
}

// AssignFolder grants a folder directly to an organization
func (s *Store) AssignFolder(orgID, folderUID string) error {
	return s.mutateAssignments(orgID, "mapping.assign_folder", folderUID, func(a *Assignments) bool {
		if containsString(a.FolderUIDs, folderUID) {
			return false
		}
		a.FolderUIDs = append(a.FolderUIDs, folderUID)
		return true
	})
}

// RemoveFolder revokes a direct folder grant
func (s *Store) RemoveFolder(orgID, folderUID string) error {
	return s.mutateAssignments(orgID, "mapping.remove_folder", folderUID, func(a *Assignments) bool {
		next := removeString(a.FolderUIDs, folderUID)
		changed := len(next) != len(a.FolderUIDs)
		a.FolderUIDs = next
		return changed
	})
}

func (s *Store) mutateAssignments(orgID, action, uid string, mutate func(*Assignments) bool) error {
	if uid == "" {
		return fmt.Errorf("uid is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.file.Mappings {
		if s.file.Mappings[i].OrgID != orgID {
			continue
		}
		if !mutate(&s.file.Mappings[i].Assignments) {
			return nil // already in the desired state
		}
		if err := s.saveLocked(); err != nil {
			return err
		}
		s.record(action, orgID, map[string]interface{}{"uid": uid})
		return nil
	}
	return fmt.Errorf("%w: %s", ErrNotFound, orgID)
}

// saveLocked writes the current state atomically: marshal to a temp file in
// the same directory, keep a .backup of the previous contents, then rename
// over the original. Callers must hold the write lock.
func (s *Store) saveLocked() error {
	data, err := marshalByExt(s.path, s.file)
	if err != nil {
		return fmt.Errorf("encode mapping file: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create mapping dir: %w", err)
	}

	if prev, err := os.ReadFile(s.path); err == nil {
		if err := os.WriteFile(s.path+".backup", prev, 0o644); err != nil {
			s.logger.WithError(err).Warn("failed to write mapping backup")
		}
	}

	tmp, err := os.CreateTemp(dir, ".mappings-*")
	if err != nil {
		return fmt.Errorf("create temp mapping file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp mapping file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp mapping file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace mapping file: %w", err)
	}
	return nil
}

func (s *Store) record(action, orgID string, detail map[string]interface{}) {
	if s.recorder != nil {
		s.recorder.RecordMappingEvent(action, orgID, detail)
	}
}

func unmarshalByExt(path string, data []byte, dest *File) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, dest)
	default:
		return json.Unmarshal(data, dest)
	}
}

func marshalByExt(path string, file File) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Marshal(file)
	default:
		return json.MarshalIndent(file, "", "  ")
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func removeString(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
