// Package watcher turns filesystem events in the config directory into
// change notifications.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"keyly/internal/settings"
	"keyly/internal/sheets"
)

const relevantOps = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename

// Watcher reports changes to definition files and setting.conf. It does not
// debounce; the receiver of onChange is expected to.
type Watcher struct {
	dir      string
	onChange func()
	fsw      *fsnotify.Watcher

	closeOnce sync.Once
}

// New creates dir when missing and starts watching it.
func New(dir string, onChange func()) (*Watcher, error) {
	if onChange == nil {
		return nil, errors.New("watcher: onChange is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("watcher: create config dir: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watcher: add %s: %w", dir, err)
	}
	return &Watcher{dir: filepath.Clean(dir), onChange: onChange, fsw: fsw}, nil
}

// Run forwards relevant events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !isRelevant(event) {
				continue
			}
			slog.Debug("[DEBUG-WATCH] config change detected", "path", event.Name, "op", event.Op.String())
			w.onChange()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("[WARN-WATCH] watcher error", "dir", w.dir, "error", err)
		}
	}
}

// Close stops watching. Safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.fsw.Close()
	})
	return err
}

// isRelevant reports whether event touches a definition file or the settings
// file. Editors that save through temp file + rename produce a Create or
// Rename on the final name, which is enough.
func isRelevant(event fsnotify.Event) bool {
	if event.Op&relevantOps == 0 {
		return false
	}
	base := filepath.Base(filepath.Clean(event.Name))
	if strings.HasPrefix(base, ".") {
		return false
	}
	return base == settings.FileName || strings.EqualFold(filepath.Ext(base), sheets.Extension)
}
