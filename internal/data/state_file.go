package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"FailoverGuard/internal/model"
	pkglog "FailoverGuard/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
)

// FileStateStore keeps the record as a JSON file replaced atomically on every save.
type FileStateStore struct {
	path string
	log  *pkglog.LogHelper
	mu   sync.Mutex
	now  func() time.Time
}

// NewFileStateStore creates a store writing to path. The directory is created on first save.
func NewFileStateStore(path string, logger log.Logger) *FileStateStore {
	return &FileStateStore{
		path: path,
		log:  pkglog.NewLogHelper(logger),
		now:  time.Now,
	}
}

// Name identifies the store in status output.
func (s *FileStateStore) Name() string {
	return "file:" + s.path
}

// Load reads the record, falling back to defaults when it is missing or unparsable.
// An unparsable file is copied aside before anything overwrites it. Any other
// read error (permissions, I/O) is reported as ErrStateUnavailable.
func (s *FileStateStore) Load(_ context.Context) (model.FailoverState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.log.Persistence("first run: no failover state found, starting on primary", "path", s.path)
			return model.DefaultFailoverState(), nil
		}
		s.log.Errorw("msg", "failover state unreadable, starting from defaults without overwriting it",
			"path", s.path, "error", err, "type", "persistence")
		return model.DefaultFailoverState(), fmt.Errorf("%w: %w", ErrStateUnavailable, err)
	}

	var state model.FailoverState
	if err := json.Unmarshal(data, &state); err != nil {
		backup := s.backupCorrupt(data)
		s.log.Warnw("msg", "recovered from defaults: failover state is corrupt",
			"path", s.path, "backup", backup, "error", err, "type", "persistence")
		return model.DefaultFailoverState(), nil
	}

	state, fixes := normalizeState(state)
	for _, fix := range fixes {
		s.log.Warnw("msg", "failover state repaired on load", "path", s.path, "fix", fix, "type", "persistence")
	}

	s.log.Persistence("failover state loaded",
		"path", s.path,
		"active_replica", string(state.ActiveReplica),
		"last_switch_at", state.LastSwitchAt)

	return state, nil
}

// Save writes state to a temporary file in the target directory, fsyncs it
// and renames it over the previous record.
func (s *FileStateStore) Save(_ context.Context, state model.FailoverState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state.SchemaVersion = model.StateSchemaVersion

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal failover state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	if err := atomicWriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write failover state: %w", err)
	}

	return nil
}

func (s *FileStateStore) backupCorrupt(data []byte) string {
	backup := s.path + ".corrupt-" + s.now().UTC().Format("20060102T150405Z")
	if err := os.WriteFile(backup, data, 0o600); err != nil {
		s.log.Warnw("msg", "failed to back up corrupt failover state", "backup", backup, "error", err)
		return ""
	}
	return backup
}

func atomicWriteFile(path string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmpName, perm); err != nil {
		return err
	}
	if err = os.Rename(tmpName, path); err != nil {
		return err
	}

	// Persist the rename itself; not every platform supports syncing a directory.
	if d, derr := os.Open(dir); derr == nil {
		_ = d.Sync()
		_ = d.Close()
	}

	return nil
}
