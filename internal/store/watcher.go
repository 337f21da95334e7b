package store

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/reifying/untethered/internal/logging"
)

// Watcher observes the state file for rewrites and invokes a callback
// when its contents may have changed. Events are debounced because a
// single save produces several filesystem events, and the atomic
// rename used by FileStore shows up as Create rather than Write.
//
// The callback fires for this process's own writes too; reloading is
// idempotent, so callers do not need to tell them apart.
type Watcher struct {
	watcher  *fsnotify.Watcher
	dir      string
	onChange func()
	logger   *logging.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewWatcher watches the store's state file. The parent directory is
// watched, not the file itself, so the watch survives the rename that
// replaces the file on every save.
func NewWatcher(s *FileStore, onChange func(), logger *logging.Logger) (*Watcher, error) {
	if logger == nil {
		logger = logging.NopLogger()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(s.dir); err != nil {
		_ = w.Close()
		return nil, err
	}
	return &Watcher{
		watcher:  w,
		dir:      s.dir,
		onChange: onChange,
		logger:   logger.WithComponent("store.watcher"),
		stopCh:   make(chan struct{}),
	}, nil
}

// Start begins delivering change notifications.
func (w *Watcher) Start() {
	go w.watchLoop()
}

// Stop stops the watcher and releases its resources. Safe to call
// more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		_ = w.watcher.Close()
	})
}

// watchLoop processes filesystem events.
func (w *Watcher) watchLoop() {
	// Debounce: a save is a temp-file write followed by a rename.
	debounce := time.NewTimer(0)
	<-debounce.C // drain initial timer
	dirty := false

	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.isStateFileEvent(event) {
				continue
			}
			dirty = true
			debounce.Reset(50 * time.Millisecond)

		case <-debounce.C:
			if !dirty {
				continue
			}
			dirty = false
			w.logger.Debug("state file changed", "dir", w.dir)
			w.onChange()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

// isStateFileEvent reports whether the event concerns the state file.
func (w *Watcher) isStateFileEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	return filepath.Base(event.Name) == stateFileName
}
