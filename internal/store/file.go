package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"goose/pkg/logging"
)

// DefaultSessionDir is the default directory, relative to the user's home,
// holding the session file.
const DefaultSessionDir = ".config/goose/session"

const sessionFileName = "session.json"

// File persists the store as one JSON object on disk.
//
// SECURITY: This store holds the bearer session token.
//   - The file is written with 0600 permissions (owner read/write only)
//   - The directory is created with 0700 permissions (owner only)
//   - Values are NEVER logged, only key names
type File struct {
	mu   sync.Mutex
	dir  string
	path string
}

// NewFile creates a file store in dir. An empty dir means
// ~/.config/goose/session.
func NewFile(dir string) (*File, error) {
	if dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(homeDir, DefaultSessionDir)
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create session storage directory: %w", err)
	}

	return &File{
		dir:  dir,
		path: filepath.Join(dir, sessionFileName),
	}, nil
}

// Path returns the location of the session file.
func (f *File) Path() string {
	return f.path
}

// Get re-reads the file on every call so that a login performed by another
// process is observed immediately.
func (f *File) Get(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.readLocked()
	if err != nil {
		logging.Warn("Store", "Session file %s unreadable, treating as empty: %v", f.path, err)
		return "", false
	}
	v, ok := values[key]
	return v, ok
}

// Set rewrites the file with key set to value.
func (f *File) Set(key, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.readLocked()
	if err != nil {
		// A corrupt file is replaced rather than blocking the write.
		values = make(map[string]string)
	}
	values[key] = value

	if err := f.writeLocked(values); err != nil {
		auditKey("key_store_failed", "failure", key, err)
		return
	}
	auditKey("key_stored", "success", key, nil)
}

// Remove rewrites the file without key.
func (f *File) Remove(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.readLocked()
	if err != nil {
		values = make(map[string]string)
	}
	if _, ok := values[key]; !ok && err == nil {
		return
	}
	delete(values, key)

	if len(values) == 0 {
		if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			auditKey("key_delete_failed", "failure", key, err)
			return
		}
	} else if err := f.writeLocked(values); err != nil {
		auditKey("key_delete_failed", "failure", key, err)
		return
	}
	auditKey("key_deleted", "success", key, nil)
}

// readLocked loads the session map. A missing file is an empty map.
// REQUIRES: f.mu held.
func (f *File) readLocked() (map[string]string, error) {
	// #nosec G304 -- path is derived from configuration, not request input
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return make(map[string]string), nil
		}
		return nil, err
	}

	values := make(map[string]string)
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session file: %w", err)
	}
	return values, nil
}

// writeLocked replaces the session file atomically via rename.
// REQUIRES: f.mu held.
func (f *File) writeLocked(values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session file: %w", err)
	}

	tmp, err := os.CreateTemp(f.dir, sessionFileName+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp session file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after successful rename

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to chmod session file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close session file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}

func auditKey(event, outcome, key string, err error) {
	attrs := []slog.Attr{
		slog.String("backend", "file"),
		slog.String("key", key),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	logging.Audit(logging.AuditEvent{
		Event:     event,
		Subsystem: "Store",
		Outcome:   outcome,
		Attrs:     attrs,
	})
}

var _ Store = (*File)(nil)
