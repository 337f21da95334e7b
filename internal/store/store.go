// Package store persists queue state as a JSON file in the state
// directory. Writes are atomic (temp file plus rename) and guarded by
// an flock(2) lock so concurrent processes sharing the directory never
// interleave a read-modify-write. A Watcher notices external rewrites
// of the state file so the in-memory queue can reload.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/reifying/untethered/internal/logging"
	"github.com/reifying/untethered/internal/queue"
)

const stateFileName = "queue-state.json"

// persistedState is the serializable representation of the queue.
type persistedState struct {
	Version int           `json:"version"`
	Entries []queue.Entry `json:"entries"`
}

const stateVersion = 1

// FileStore implements queue.Store over a JSON state file.
type FileStore struct {
	mu     sync.Mutex
	dir    string
	logger *logging.Logger
}

// NewFileStore opens (creating if needed) the state directory and
// returns a store over it.
func NewFileStore(dir string, logger *logging.Logger) (*FileStore, error) {
	if logger == nil {
		logger = logging.NopLogger()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &FileStore{
		dir:    dir,
		logger: logger.WithComponent("store"),
	}, nil
}

// Path returns the full path of the state file.
func (s *FileStore) Path() string {
	return filepath.Join(s.dir, stateFileName)
}

// FetchEntries reads all persisted entries. A missing state file is an
// empty queue, not an error.
func (s *FileStore) FetchEntries() ([]queue.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fl := NewFileLock(s.dir)
	if err := fl.Lock(); err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	defer func() { _ = fl.Unlock() }()

	state, err := s.loadLocked()
	if err != nil {
		return nil, err
	}
	return state.Entries, nil
}

// WriteEntry persists a single entry, replacing any existing entry for
// the same session. The whole file is rewritten under the lock.
func (s *FileStore) WriteEntry(entry queue.Entry) error {
	return s.update(func(state *persistedState) {
		for i, e := range state.Entries {
			if e.SessionID == entry.SessionID {
				state.Entries[i] = entry
				return
			}
		}
		state.Entries = append(state.Entries, entry)
	})
}

// WriteEntries persists a batch in one atomic rewrite.
func (s *FileStore) WriteEntries(entries []queue.Entry) error {
	return s.update(func(state *persistedState) {
		replaced := make(map[string]bool, len(entries))
		for _, entry := range entries {
			replaced[entry.SessionID] = true
		}
		kept := state.Entries[:0]
		for _, e := range state.Entries {
			if !replaced[e.SessionID] {
				kept = append(kept, e)
			}
		}
		state.Entries = append(kept, entries...)
	})
}

// DeleteEntry removes the entry for the session. Deleting an absent
// entry is a no-op.
func (s *FileStore) DeleteEntry(sessionID string) error {
	return s.update(func(state *persistedState) {
		kept := state.Entries[:0]
		for _, e := range state.Entries {
			if e.SessionID != sessionID {
				kept = append(kept, e)
			}
		}
		state.Entries = kept
	})
}

// update runs a read-modify-write cycle under both the process mutex
// and the cross-process file lock.
func (s *FileStore) update(mutate func(*persistedState)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fl := NewFileLock(s.dir)
	if err := fl.Lock(); err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	defer func() { _ = fl.Unlock() }()

	state, err := s.loadLocked()
	if err != nil {
		return err
	}
	mutate(state)
	return s.saveLocked(state)
}

// loadLocked reads and parses the state file. Caller holds the lock.
func (s *FileStore) loadLocked() (*persistedState, error) {
	data, err := os.ReadFile(s.Path())
	if os.IsNotExist(err) {
		return &persistedState{Version: stateVersion, Entries: []queue.Entry{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var state persistedState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("unmarshal queue state: %w", err)
	}
	if state.Entries == nil {
		state.Entries = []queue.Entry{}
	}
	return &state, nil
}

// saveLocked writes the state atomically: temp file first, then rename
// into place. Caller holds the lock.
func (s *FileStore) saveLocked(state *persistedState) error {
	state.Version = stateVersion
	// Stable file contents for the same logical state.
	sort.Slice(state.Entries, func(i, j int) bool {
		return state.Entries[i].Less(state.Entries[j])
	})

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal queue state: %w", err)
	}

	target := s.Path()
	tmp := target + ".tmp"

	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp) // best-effort cleanup
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
