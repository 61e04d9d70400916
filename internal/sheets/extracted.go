package sheets

import "log/slog"

// ExtractedShortcut is one shortcut as supplied by the native menu
// extractor, before normalization.
type ExtractedShortcut struct {
	Category    string `json:"category" yaml:"category"`
	Action      string `json:"action" yaml:"action"`
	RawShortcut string `json:"shortcut" yaml:"shortcut"`
}

// ParseExtracted converts extracted shortcuts into entries, dropping those
// without an action or modifier.
func ParseExtracted(in []ExtractedShortcut) []Entry {
	out := make([]Entry, 0, len(in))
	for _, item := range in {
		entry, ok := NewEntry(item.Category, item.Action, item.RawShortcut, "")
		if !ok {
			slog.Debug("[DEBUG-SHEETS] extracted shortcut dropped", "action", item.Action, "shortcut", item.RawShortcut)
			continue
		}
		out = append(out, entry)
	}
	return out
}
