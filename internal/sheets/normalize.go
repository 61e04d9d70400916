package sheets

import "strings"

// Modifier glyphs.
const (
	GlyphCmd   = "⌘"
	GlyphCtrl  = "⌃"
	GlyphAlt   = "⌥"
	GlyphShift = "⇧"
)

// Special-key glyphs.
const (
	GlyphEnter  = "⏎"
	GlyphTab    = "⇥"
	GlyphEscape = "esc"
	GlyphSpace  = "Space"
	GlyphDelete = "⌫"
	GlyphUp     = "↑"
	GlyphDown   = "↓"
	GlyphLeft   = "←"
	GlyphRight  = "→"
)

type replacement struct {
	patterns []string
	glyph    string
}

// Within each table, longer aliases come before any alias they contain
// (OPTION before OPT, ESCAPE before ESC, BACKSPACE before SPACE) so the
// output does not depend on iteration order.
var (
	separatorAliases = []replacement{
		{patterns: []string{"COMMAND+", "COMMAND-", "CMD+", "CMD-"}, glyph: GlyphCmd},
		{patterns: []string{"CONTROL+", "CONTROL-", "CTRL+", "CTRL-"}, glyph: GlyphCtrl},
		{patterns: []string{"OPTION+", "OPTION-", "OPT+", "OPT-", "ALT+", "ALT-"}, glyph: GlyphAlt},
		{patterns: []string{"SHIFT+", "SHIFT-"}, glyph: GlyphShift},
	}
	bareAliases = []replacement{
		{patterns: []string{"COMMAND", "CMD"}, glyph: GlyphCmd},
		{patterns: []string{"CONTROL", "CTRL"}, glyph: GlyphCtrl},
		{patterns: []string{"OPTION", "OPT", "ALT"}, glyph: GlyphAlt},
		{patterns: []string{"SHIFT"}, glyph: GlyphShift},
	}
	specialKeys = []replacement{
		{patterns: []string{"RETURN", "ENTER"}, glyph: GlyphEnter},
		{patterns: []string{"TAB"}, glyph: GlyphTab},
		{patterns: []string{"ESCAPE", "ESC"}, glyph: GlyphEscape},
		{patterns: []string{"BACKSPACE", "DELETE"}, glyph: GlyphDelete},
		{patterns: []string{"SPACE"}, glyph: GlyphSpace},
		{patterns: []string{"UP"}, glyph: GlyphUp},
		{patterns: []string{"DOWN"}, glyph: GlyphDown},
		{patterns: []string{"LEFT"}, glyph: GlyphLeft},
		{patterns: []string{"RIGHT"}, glyph: GlyphRight},
	}
)

var modifierGlyphs = GlyphCmd + GlyphCtrl + GlyphAlt + GlyphShift

// Normalize converts a raw shortcut spec such as "cmd+shift+t" into glyph
// notation ("⌘⇧T"). Normalize(Normalize(s)) == Normalize(s).
func Normalize(raw string) string {
	result := strings.ToUpper(strings.TrimSpace(raw))
	result = applyReplacements(result, separatorAliases)
	result = applyReplacements(result, bareAliases)
	return applyReplacements(result, specialKeys)
}

func applyReplacements(s string, table []replacement) string {
	for _, r := range table {
		for _, pattern := range r.patterns {
			s = strings.ReplaceAll(s, pattern, r.glyph)
		}
	}
	return s
}

// HasModifierGlyph reports whether s contains at least one modifier glyph.
func HasModifierGlyph(s string) bool {
	return strings.ContainsAny(s, modifierGlyphs)
}
