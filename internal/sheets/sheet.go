package sheets

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
)

const (
	// Extension is the file extension of definition files.
	Extension = ".keyly"
	// GlobalFileName is the reserved definition file holding the global set.
	GlobalFileName = "global" + Extension
)

// Sheet is the parsed content of one per-application definition file.
type Sheet struct {
	ID                   uuid.UUID
	Name                 string
	AppPath              string
	AppID                string
	Entries              []Entry
	CategoryDescriptions map[string]string
	GroupDescriptions    map[string]string
	HideDefaultShortcuts bool
	Source               string
}

// Matches reports whether the sheet targets appID, comparing against both the
// derived application identifier and the cleaned application path.
func (s Sheet) Matches(appID string) bool {
	if appID == "" {
		return false
	}
	if s.AppID != "" && s.AppID == appID {
		return true
	}
	return s.AppPath != "" && filepath.Clean(s.AppPath) == filepath.Clean(appID)
}

// GlobalSet holds entries that apply to every application.
type GlobalSet struct {
	Entries              []Entry
	CategoryDescriptions map[string]string
	GroupDescriptions    map[string]string
	Source               string
}

// Warning is a ParseWarning or a skipped-file notice.
type Warning struct {
	File    string
	Line    int
	Message string
}

func (w Warning) String() string {
	name := filepath.Base(w.File)
	if w.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", name, w.Line, w.Message)
	}
	return fmt.Sprintf("%s: %s", name, w.Message)
}

// Library is everything loaded from one definition directory. Sheets keep
// directory-scan order.
type Library struct {
	Sheets   []Sheet
	Global   GlobalSet
	Warnings []Warning
}

// SheetsFor returns the sheets matching appID in scan order.
func (l *Library) SheetsFor(appID string) []Sheet {
	if l == nil {
		return nil
	}
	var out []Sheet
	for _, s := range l.Sheets {
		if s.Matches(appID) {
			out = append(out, s)
		}
	}
	return out
}
