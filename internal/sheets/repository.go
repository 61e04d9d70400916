package sheets

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
)

const maxSheetFileBytes = 1 << 20 // 1MB

// Repository loads definition files from a directory.
type Repository struct {
	// AppID derives the application identifier for a sheet's App path.
	// Defaults to BundleID.
	AppID func(appPath string) string
}

// NewRepository returns a repository using BundleID for app identifiers.
func NewRepository() *Repository {
	return &Repository{AppID: BundleID}
}

// LoadAll scans dir for definition files in lexical order. It never fails:
// a missing directory yields an empty library, unreadable files are skipped
// with a warning.
func (r *Repository) LoadAll(dir string) Library {
	lib := Library{Global: GlobalSet{
		CategoryDescriptions: map[string]string{},
		GroupDescriptions:    map[string]string{},
	}}

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("[DEBUG-SHEETS] config directory absent, empty library", "dir", dir)
			return lib
		}
		slog.Warn("[WARN-SHEETS] failed to read config directory", "dir", dir, "error", err)
		lib.Warnings = append(lib.Warnings, Warning{File: dir, Message: fmt.Sprintf("read directory: %v", err)})
		return lib
	}

	names := make([]string, 0, len(dirEntries))
	for _, de := range dirEntries {
		if de.IsDir() || !strings.EqualFold(filepath.Ext(de.Name()), Extension) {
			continue
		}
		names = append(names, de.Name())
	}
	slices.Sort(names)

	for _, name := range names {
		path := filepath.Join(dir, name)
		raw, err := readLimitedFile(path, maxSheetFileBytes)
		if err != nil {
			slog.Warn("[WARN-SHEETS] skipping unreadable definition file", "path", path, "error", err)
			lib.Warnings = append(lib.Warnings, Warning{File: path, Message: fmt.Sprintf("skipped: %v", err)})
			continue
		}

		if strings.EqualFold(name, GlobalFileName) {
			doc := parseDocument(bytes.NewReader(raw), path, modeGlobal)
			lib.Global = GlobalSet{
				Entries:              doc.entries,
				CategoryDescriptions: doc.categoryDescriptions,
				GroupDescriptions:    doc.groupDescriptions,
				Source:               path,
			}
			lib.Warnings = append(lib.Warnings, doc.warnings...)
			continue
		}

		sheet, warnings, ok := r.buildSheet(raw, path)
		lib.Warnings = append(lib.Warnings, warnings...)
		if ok {
			lib.Sheets = append(lib.Sheets, sheet)
		}
	}

	for _, w := range lib.Warnings {
		slog.Warn("[WARN-SHEETS] " + w.String())
	}
	slog.Debug("[DEBUG-SHEETS] definitions loaded",
		"dir", dir,
		"sheets", len(lib.Sheets),
		"globalEntries", len(lib.Global.Entries),
		"warnings", len(lib.Warnings),
	)
	return lib
}

func (r *Repository) buildSheet(raw []byte, source string) (Sheet, []Warning, bool) {
	doc := parseDocument(bytes.NewReader(raw), source, modeSheet)
	name := doc.name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	}
	if doc.appPath == "" {
		doc.warnings = append(doc.warnings, Warning{File: source, Message: fmt.Sprintf("sheet %q has no App directive, discarded", name)})
		return Sheet{}, doc.warnings, false
	}

	appIDFn := r.AppID
	if appIDFn == nil {
		appIDFn = BundleID
	}
	return Sheet{
		ID:                   uuid.New(),
		Name:                 name,
		AppPath:              doc.appPath,
		AppID:                appIDFn(doc.appPath),
		Entries:              doc.entries,
		CategoryDescriptions: doc.categoryDescriptions,
		GroupDescriptions:    doc.groupDescriptions,
		HideDefaultShortcuts: doc.hideDefault,
		Source:               source,
	}, doc.warnings, true
}

func readLimitedFile(path string, maxBytes int64) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	raw, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(raw)) > maxBytes {
		return nil, fmt.Errorf("definition file exceeds %d bytes", maxBytes)
	}
	return raw, nil
}
