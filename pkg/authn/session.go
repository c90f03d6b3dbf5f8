package authn

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// SessionTokenPrefix identifies console session tokens at a glance.
// Format: gac_<base64url(32 random bytes)>.
const SessionTokenPrefix = "gac_"

const sessionTokenBytes = 32

// DefaultSessionTTL bounds how long a session stays valid without re-login
const DefaultSessionTTL = 12 * time.Hour

// ErrInvalidSession covers unknown, expired, and revoked tokens alike so the
// caller cannot distinguish them.
var ErrInvalidSession = errors.New("invalid or expired session")

// Session is one authenticated console session. Only the SHA-256 hash of
// its token is kept server-side.
type Session struct {
	Profile      Profile
	Role         Role
	BackendToken string
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// SessionManager issues and validates opaque session tokens in memory.
// Sessions do not survive a restart; users simply log in again.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session // keyed by token hash
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionManager creates a session manager. A ttl <= 0 falls back to
// DefaultSessionTTL.
func NewSessionManager(ttl time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionManager{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create issues a new session token for a verified profile
func (m *SessionManager) Create(profile Profile, role Role, backendToken string) (string, *Session, error) {
	raw := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", nil, fmt.Errorf("generate session token: %w", err)
	}
	token := SessionTokenPrefix + base64.RawURLEncoding.EncodeToString(raw)

	now := m.now()
	session := &Session{
		Profile:      profile,
		Role:         role,
		BackendToken: backendToken,
		CreatedAt:    now,
		ExpiresAt:    now.Add(m.ttl),
	}

	m.mu.Lock()
	m.sessions[hashToken(token)] = session
	m.mu.Unlock()
	return token, session, nil
}

// Validate resolves a token to its session. Expired sessions are removed on
// the way out.
func (m *SessionManager) Validate(token string) (*Session, error) {
	if !strings.HasPrefix(token, SessionTokenPrefix) {
		return nil, ErrInvalidSession
	}
	hash := hashToken(token)

	m.mu.RLock()
	session, ok := m.sessions[hash]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrInvalidSession
	}

	if m.now().After(session.ExpiresAt) {
		m.mu.Lock()
		delete(m.sessions, hash)
		m.mu.Unlock()
		return nil, ErrInvalidSession
	}

	copy := *session
	return &copy, nil
}

// Revoke invalidates a token. Revoking an unknown token is a no-op.
func (m *SessionManager) Revoke(token string) {
	m.mu.Lock()
	delete(m.sessions, hashToken(token))
	m.mu.Unlock()
}

// Prune drops expired sessions and returns how many were removed
func (m *SessionManager) Prune() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for hash, session := range m.sessions {
		if now.After(session.ExpiresAt) {
			delete(m.sessions, hash)
			removed++
		}
	}
	return removed
}

// Count returns the number of live sessions, for the active-sessions gauge
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
