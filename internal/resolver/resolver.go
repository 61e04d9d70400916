// Package resolver merges the global set, per-application sheets and the
// natively extracted shortcuts into the ordered list shown by the overlay.
package resolver

import (
	"log/slog"

	"github.com/samber/lo"

	"keyly/internal/sheets"
)

// Result is the ordered shortcut list for one application plus the merged
// description maps.
type Result struct {
	AppID                string
	Entries              []sheets.Entry
	CategoryDescriptions map[string]string
	GroupDescriptions    map[string]string
	// UsedDefaults is set when nothing matched and the built-in set was used.
	UsedDefaults bool
	// HidDefaults is set when a matching sheet suppressed extracted shortcuts.
	HidDefaults bool
}

// defaultEntries is shown when every source is empty.
var defaultEntries = []sheets.Entry{
	sheets.MustEntry("File", "New", "cmd+n"),
	sheets.MustEntry("File", "Open", "cmd+o"),
	sheets.MustEntry("File", "Save", "cmd+s"),
	sheets.MustEntry("File", "Close", "cmd+w"),
	sheets.MustEntry("Edit", "Copy", "cmd+c"),
	sheets.MustEntry("Edit", "Paste", "cmd+v"),
	sheets.MustEntry("Edit", "Cut", "cmd+x"),
	sheets.MustEntry("Edit", "Undo", "cmd+z"),
	sheets.MustEntry("Edit", "Redo", "shift+cmd+z"),
	sheets.MustEntry("View", "Zoom In", "cmd++"),
	sheets.MustEntry("View", "Zoom Out", "cmd+-"),
}

// Defaults returns a copy of the built-in fallback set.
func Defaults() []sheets.Entry {
	return append([]sheets.Entry(nil), defaultEntries...)
}

// Resolve orders global entries first, then every sheet matching appID in
// scan order, then osExtracted unless a matching sheet hides defaults. An
// empty result is replaced by the built-in defaults. lib may be nil.
func Resolve(lib *sheets.Library, appID string, osExtracted []sheets.Entry) Result {
	res := Result{
		AppID:                appID,
		CategoryDescriptions: map[string]string{},
		GroupDescriptions:    map[string]string{},
	}

	var matching []sheets.Sheet
	if lib != nil {
		res.Entries = append(res.Entries, lib.Global.Entries...)
		mergeDescriptions(res.CategoryDescriptions, lib.Global.CategoryDescriptions)
		mergeDescriptions(res.GroupDescriptions, lib.Global.GroupDescriptions)
		matching = lo.Filter(lib.Sheets, func(s sheets.Sheet, _ int) bool {
			return s.Matches(appID)
		})
	}

	res.Entries = append(res.Entries, lo.FlatMap(matching, func(s sheets.Sheet, _ int) []sheets.Entry {
		return s.Entries
	})...)
	for _, s := range matching {
		mergeDescriptions(res.CategoryDescriptions, s.CategoryDescriptions)
		mergeDescriptions(res.GroupDescriptions, s.GroupDescriptions)
	}

	res.HidDefaults = lo.SomeBy(matching, func(s sheets.Sheet) bool {
		return s.HideDefaultShortcuts
	})
	if !res.HidDefaults {
		res.Entries = append(res.Entries, osExtracted...)
	}

	if len(res.Entries) == 0 {
		res.Entries = Defaults()
		res.UsedDefaults = true
	}

	slog.Debug("[DEBUG-RESOLVER] shortcuts resolved",
		"appId", appID,
		"matchingSheets", len(matching),
		"entries", len(res.Entries),
		"hidDefaults", res.HidDefaults,
		"usedDefaults", res.UsedDefaults,
	)
	return res
}

// mergeDescriptions copies src into dst without overwriting; the
// higher-priority source is merged first.
func mergeDescriptions(dst, src map[string]string) {
	for k, v := range src {
		if _, exists := dst[k]; !exists {
			dst[k] = v
		}
	}
}
