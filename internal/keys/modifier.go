package keys

import "strings"

// Modifier is a bitmask over the fixed modifier vocabulary.
type Modifier uint8

const (
	ModCmd Modifier = 1 << iota
	ModCtrl
	ModAlt
	ModShift
	ModFn
	ModMeta

	// ModNone is the empty modifier set.
	ModNone Modifier = 0
	// ModAll covers every modifier the trigger logic looks at. Flags outside
	// this mask (caps lock, num pad) are ignored.
	ModAll = ModCmd | ModCtrl | ModAlt | ModShift | ModFn | ModMeta
)

// modifierOrder fixes the vocabulary order used by String and Names.
var modifierOrder = []struct {
	mod  Modifier
	name string
}{
	{ModCmd, "cmd"},
	{ModCtrl, "ctrl"},
	{ModAlt, "alt"},
	{ModShift, "shift"},
	{ModFn, "fn"},
	{ModMeta, "meta"},
}

var modifierByName = map[string]Modifier{
	"cmd":   ModCmd,
	"ctrl":  ModCtrl,
	"alt":   ModAlt,
	"shift": ModShift,
	"fn":    ModFn,
	"meta":  ModMeta,
}

// ModifierByName looks up a vocabulary token, case-insensitively.
func ModifierByName(name string) (Modifier, bool) {
	mod, ok := modifierByName[strings.ToLower(strings.TrimSpace(name))]
	return mod, ok
}

// IsModifierName reports whether name belongs to the modifier vocabulary.
func IsModifierName(name string) bool {
	_, ok := ModifierByName(name)
	return ok
}

// Has reports whether m contains every bit of mod.
func (m Modifier) Has(mod Modifier) bool {
	return m&mod == mod
}

// Relevant strips flags outside the vocabulary.
func (m Modifier) Relevant() Modifier {
	return m & ModAll
}

// IsEmpty reports whether no modifier is set.
func (m Modifier) IsEmpty() bool {
	return m.Relevant() == ModNone
}

// Names returns the vocabulary tokens set in m, in vocabulary order.
func (m Modifier) Names() []string {
	var names []string
	for _, entry := range modifierOrder {
		if m&entry.mod != 0 {
			names = append(names, entry.name)
		}
	}
	return names
}

// String renders m as tokens joined by "+", e.g. "cmd+shift".
func (m Modifier) String() string {
	return strings.Join(m.Names(), "+")
}

// ParseModifierNames folds a list of vocabulary tokens into a bitmask.
// Unknown tokens are returned separately so callers can report them.
func ParseModifierNames(names []string) (Modifier, []string) {
	var mods Modifier
	var unknown []string
	for _, name := range names {
		mod, ok := ModifierByName(name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		mods |= mod
	}
	return mods, unknown
}
