package sheets

import (
	"encoding/json"
	"strings"
)

// Default categories.
const (
	DefaultCategory       = "General"
	DefaultGlobalCategory = "Global"
)

// Entry is one displayable shortcut. Its shortcut is always normalized and
// carries at least one modifier glyph. Construct only via NewEntry.
type Entry struct {
	category string
	action   string
	shortcut string
	group    string
}

// NewEntry normalizes raw and builds an entry. ok is false when the action is
// blank or the normalized shortcut has no modifier glyph.
func NewEntry(category, action, raw, group string) (Entry, bool) {
	action = strings.TrimSpace(action)
	if action == "" {
		return Entry{}, false
	}
	shortcut := Normalize(raw)
	if !HasModifierGlyph(shortcut) {
		return Entry{}, false
	}
	category = strings.TrimSpace(category)
	if category == "" {
		category = DefaultCategory
	}
	return Entry{
		category: category,
		action:   action,
		shortcut: shortcut,
		group:    strings.TrimSpace(group),
	}, true
}

// MustEntry is NewEntry for static tables; it panics on invalid input.
func MustEntry(category, action, raw string) Entry {
	e, ok := NewEntry(category, action, raw, "")
	if !ok {
		panic("sheets: invalid static entry " + raw + " " + action)
	}
	return e
}

func (e Entry) Category() string { return e.category }
func (e Entry) Action() string   { return e.action }
func (e Entry) Shortcut() string { return e.shortcut }

// Group returns the group name and whether the entry belongs to one.
func (e Entry) Group() (string, bool) { return e.group, e.group != "" }

// entryDTO is the wire/YAML shape of an Entry.
type entryDTO struct {
	Category string `json:"category" yaml:"category"`
	Group    string `json:"group,omitempty" yaml:"group,omitempty"`
	Shortcut string `json:"shortcut" yaml:"shortcut"`
	Action   string `json:"action" yaml:"action"`
}

func (e Entry) dto() entryDTO {
	return entryDTO{Category: e.category, Group: e.group, Shortcut: e.shortcut, Action: e.action}
}

func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.dto())
}

func (e Entry) MarshalYAML() (any, error) {
	return e.dto(), nil
}
