package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/grafops/grafana-console/pkg/contextkeys"
)

const logFileName = "audit.log"

// Config configures the file audit logger
type Config struct {
	Dir      string // directory for audit log files
	MaxSize  int64  // max file size in bytes before rotation
	MaxFiles int    // rotated files to keep
}

// DefaultConfig returns the default file logger configuration
func DefaultConfig() Config {
	return Config{
		Dir:      "/var/log/grafana-console/audit",
		MaxSize:  100 * 1024 * 1024,
		MaxFiles: 10,
	}
}

// Logger appends audit events to a JSONL file, rotating by size
type Logger struct {
	dir      string
	maxSize  int64
	maxFiles int

	mu      sync.Mutex
	file    *os.File
	encoder *json.Encoder
}

// NewLogger opens (or creates) the audit log in cfg.Dir
func NewLogger(cfg Config) (*Logger, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create audit log directory: %w", err)
	}

	l := &Logger{
		dir:      cfg.Dir,
		maxSize:  cfg.MaxSize,
		maxFiles: cfg.MaxFiles,
	}
	if l.maxSize == 0 {
		l.maxSize = DefaultConfig().MaxSize
	}
	if l.maxFiles == 0 {
		l.maxFiles = DefaultConfig().MaxFiles
	}

	if err := l.openLocked(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Logger) openLocked() error {
	path := filepath.Join(l.dir, logFileName)

	if info, err := os.Stat(path); err == nil && info.Size() >= l.maxSize {
		if err := l.rotateLocked(); err != nil {
			return err
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	l.file = file
	l.encoder = json.NewEncoder(file)
	return nil
}

func (l *Logger) rotateLocked() error {
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}

	current := filepath.Join(l.dir, logFileName)
	rotated := filepath.Join(l.dir, fmt.Sprintf("audit-%s.log", time.Now().Format("2006-01-02-15-04-05")))
	if err := os.Rename(current, rotated); err != nil {
		return fmt.Errorf("rotate audit log: %w", err)
	}

	files, err := filepath.Glob(filepath.Join(l.dir, "audit-*.log"))
	if err != nil {
		return nil
	}
	sort.Strings(files) // timestamped names sort chronologically
	for len(files) > l.maxFiles {
		os.Remove(files[0])
		files = files[1:]
	}
	return nil
}

// Record writes one event, filling in ID and timestamp when absent
func (l *Logger) Record(event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.Status == "" {
		event.Status = StatusSuccess
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		if info, err := l.file.Stat(); err == nil && info.Size() >= l.maxSize {
			if err := l.openLocked(); err != nil {
				return err
			}
		}
	}

	if err := l.encoder.Encode(event); err != nil {
		return fmt.Errorf("write audit event: %w", err)
	}
	return nil
}

// RecordAuth writes an authentication event, picking the request id out of
// the context when present.
func (l *Logger) RecordAuth(ctx context.Context, action, status, actor string, actorID int64, message string) error {
	event := Event{
		Action:  action,
		Status:  status,
		Actor:   actor,
		ActorID: actorID,
		Message: message,
	}
	if requestID, ok := ctx.Value(contextkeys.RequestIDKey).(string); ok {
		event.RequestID = requestID
	}
	return l.Record(event)
}

// RecordMappingEvent satisfies the mapping store's Recorder interface.
// Write failures are swallowed: a mapping mutation must not fail because
// the audit disk is full.
func (l *Logger) RecordMappingEvent(action, orgID string, detail map[string]interface{}) {
	_ = l.Record(Event{
		Action: action,
		OrgID:  orgID,
		Detail: detail,
	})
}

// Recent returns the newest count events from the current log file,
// newest first.
func (l *Logger) Recent(count int) ([]Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	file, err := os.Open(filepath.Join(l.dir, logFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return []Event{}, nil
		}
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer file.Close()

	var events []Event
	decoder := json.NewDecoder(file)
	for {
		var event Event
		if err := decoder.Decode(&event); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("decode audit event: %w", err)
		}
		events = append(events, event)
	}

	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	if count > 0 && len(events) > count {
		events = events[:count]
	}
	return events, nil
}

// Close flushes and closes the log file
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}
