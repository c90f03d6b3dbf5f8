package audit

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grafops/grafana-console/pkg/contextkeys"
)

func newTestLogger(t *testing.T) *Logger {
	t.Helper()
	l, err := NewLogger(Config{Dir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestRecordAndRecent(t *testing.T) {
	l := newTestLogger(t)

	require.NoError(t, l.Record(Event{Action: ActionLogin, Actor: "alice"}))
	require.NoError(t, l.Record(Event{Action: ActionLogout, Actor: "alice"}))
	require.NoError(t, l.Record(Event{Action: ActionLogin, Actor: "bob"}))

	events, err := l.Recent(0)
	require.NoError(t, err)
	require.Len(t, events, 3)

	// newest first
	assert.Equal(t, "bob", events[0].Actor)
	assert.Equal(t, ActionLogout, events[1].Action)

	for _, e := range events {
		assert.NotEmpty(t, e.ID)
		assert.False(t, e.Timestamp.IsZero())
		assert.Equal(t, StatusSuccess, e.Status)
	}
}

func TestRecentLimitsCount(t *testing.T) {
	l := newTestLogger(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, l.Record(Event{Action: ActionLogin}))
	}

	events, err := l.Recent(2)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestRecentEmptyLog(t *testing.T) {
	l, err := NewLogger(Config{Dir: filepath.Join(t.TempDir(), "fresh")})
	require.NoError(t, err)
	defer l.Close()

	events, err := l.Recent(10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestRecordAuthPicksRequestID(t *testing.T) {
	l := newTestLogger(t)

	ctx := context.WithValue(context.Background(), contextkeys.RequestIDKey, "req-42")
	require.NoError(t, l.RecordAuth(ctx, ActionLoginFailed, StatusFailure, "mallory", 0, "bad password"))

	events, err := l.Recent(1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "req-42", events[0].RequestID)
	assert.Equal(t, StatusFailure, events[0].Status)
}

func TestRecordMappingEvent(t *testing.T) {
	l := newTestLogger(t)

	l.RecordMappingEvent("mapping.create", "org-a", map[string]interface{}{"orgName": "Org A"})

	events, err := l.Recent(1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "mapping.create", events[0].Action)
	assert.Equal(t, "org-a", events[0].OrgID)
	assert.Equal(t, "Org A", events[0].Detail["orgName"])
}

func TestRotation(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLogger(Config{Dir: dir, MaxSize: 200, MaxFiles: 2})
	require.NoError(t, err)
	defer l.Close()

	for i := 0; i < 50; i++ {
		require.NoError(t, l.Record(Event{Action: ActionLogin, Actor: "alice", Message: "padding padding padding"}))
	}

	rotated, err := filepath.Glob(filepath.Join(dir, "audit-*.log"))
	require.NoError(t, err)
	assert.NotEmpty(t, rotated)
	assert.LessOrEqual(t, len(rotated), 2)
}
