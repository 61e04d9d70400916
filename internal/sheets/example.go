package sheets

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// ExampleFileName is the sample sheet written into an empty config directory.
const ExampleFileName = "example" + Extension

const exampleSheet = `# Sheet Name: Example Shortcuts
# App: /Applications/Safari.app

[Navigation]
> Moving between pages and tabs
CMD+L       Open Location
CMD+T       New Tab
CMD+W       Close Tab
CMD+SHIFT+T Reopen Last Tab

# Group: Bookmarks - Saved pages
[Bookmarks]
CMD+D       Add Bookmark
CMD+OPT+B   Show Bookmarks

# Group: Display
[View]
CMD++       Zoom In
CMD+-       Zoom Out
CMD+0       Actual Size
`

// writeTemp is replaced in tests to simulate a failed write.
var writeTemp = func(f *os.File, data string) error {
	_, err := f.WriteString(data)
	return err
}

// WriteExample creates dir (if needed) and writes the example sheet unless a
// file with that name already exists. created reports whether it was written.
// The sheet is written to a temp file and renamed into place, so a failed
// write never leaves a truncated example behind.
func WriteExample(dir string) (path string, created bool, err error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", false, fmt.Errorf("write example: mkdir: %w", err)
	}
	path = filepath.Join(dir, ExampleFileName)
	if _, err := os.Lstat(path); err == nil {
		return path, false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", false, fmt.Errorf("write example: %w", err)
	}

	// No sheet extension: directory scans skip the temp file.
	tmpFile, err := os.CreateTemp(dir, ".example.tmp.*")
	if err != nil {
		return "", false, fmt.Errorf("write example: create temp: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		if tmpFile != nil {
			if closeErr := tmpFile.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
				slog.Warn("[WARN-SHEETS] failed to close temp file", "path", tmpPath, "error", closeErr)
			}
		}
		if err != nil {
			if removeErr := os.Remove(tmpPath); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
				slog.Warn("[WARN-SHEETS] failed to remove temp file", "path", tmpPath, "error", removeErr)
			}
		}
	}()

	if err = tmpFile.Chmod(0o644); err != nil {
		return "", false, fmt.Errorf("write example: chmod temp: %w", err)
	}
	if err = writeTemp(tmpFile, exampleSheet); err != nil {
		return "", false, fmt.Errorf("write example: %w", err)
	}
	if err = tmpFile.Sync(); err != nil {
		return "", false, fmt.Errorf("write example: sync: %w", err)
	}
	err = tmpFile.Close()
	tmpFile = nil
	if err != nil {
		return "", false, fmt.Errorf("write example: close: %w", err)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return "", false, fmt.Errorf("write example: rename: %w", err)
	}
	slog.Info("[INFO-SHEETS] example sheet created", "path", path)
	return path, true, nil
}
