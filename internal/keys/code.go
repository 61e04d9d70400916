package keys

import (
	"strconv"
	"strings"
)

// Code is a hardware virtual key code as reported by the keyboard tap.
type Code uint16

// Key pairs a code with its semantic name.
type Key struct {
	Code Code
	Name string
}

// unknownKeyName is the name carried by KeyUnknown lookups.
const unknownKeyName = "unknown"

// IsUnknown reports whether k is the explicit unknown-key variant.
func (k Key) IsUnknown() bool { return k.Name == unknownKeyName }

func (k Key) String() string {
	if k.IsUnknown() {
		return unknownKeyName + "(" + strconv.Itoa(int(k.Code)) + ")"
	}
	return k.Name
}

// Well-known codes referenced outside the table.
const (
	CodeEscape Code = 53
	CodeReturn Code = 36
	CodeSpace  Code = 49
	CodeTab    Code = 48
)

// codeNames is the static code -> name table. Modifier keys are listed so
// that flag-change events carrying their code resolve to a name, but they are
// never accepted as a main key.
var codeNames = map[Code]string{
	0: "a", 1: "s", 2: "d", 3: "f", 4: "h", 5: "g", 6: "z", 7: "x", 8: "c", 9: "v",
	11: "b", 12: "q", 13: "w", 14: "e", 15: "r", 16: "y", 17: "t",
	18: "1", 19: "2", 20: "3", 21: "4", 22: "6", 23: "5", 24: "=", 25: "9", 26: "7",
	27: "-", 28: "8", 29: "0", 30: "]", 31: "o", 32: "u", 33: "[", 34: "i", 35: "p",
	36: "return", 37: "l", 38: "j", 39: "'", 40: "k", 41: ";", 42: "\\", 43: ",",
	44: "/", 45: "n", 46: "m", 47: ".", 48: "tab", 49: "space", 50: "`",
	51: "delete", 53: "escape",
	54: "cmd_right", 55: "cmd_left", 56: "shift_left", 57: "capslock",
	58: "alt_left", 59: "ctrl_left", 60: "shift_right", 61: "alt_right",
	62: "ctrl_right", 63: "fn",
	76: "enter",
	96: "f5", 97: "f6", 98: "f7", 99: "f3", 100: "f8", 101: "f9", 103: "f11",
	109: "f10", 111: "f12", 115: "home", 116: "pageup", 117: "forwarddelete",
	118: "f4", 119: "end", 120: "f2", 121: "pagedown", 122: "f1",
	123: "left", 124: "right", 125: "down", 126: "up",
}

var modifierCodes = map[Code]struct{}{
	54: {}, 55: {}, 56: {}, 57: {}, 58: {}, 59: {}, 60: {}, 61: {}, 62: {}, 63: {},
}

// nameAliases maps alternate spellings accepted in combo specs.
var nameAliases = map[string]string{
	"esc":       "escape",
	"backspace": "delete",
	"pgup":      "pageup",
	"pgdn":      "pagedown",
	"grave":     "`",
	"backquote": "`",
}

var codeByName = func() map[string]Code {
	out := make(map[string]Code, len(codeNames))
	for code, name := range codeNames {
		if _, isMod := modifierCodes[code]; isMod {
			continue
		}
		out[name] = code
	}
	return out
}()

// LookupCode resolves a code to its key. Codes outside the table yield the
// unknown variant instead of failing.
func LookupCode(code Code) Key {
	if name, ok := codeNames[code]; ok {
		return Key{Code: code, Name: name}
	}
	return Key{Code: code, Name: unknownKeyName}
}

// IsModifierCode reports whether code belongs to a modifier key.
func IsModifierCode(code Code) bool {
	_, ok := modifierCodes[code]
	return ok
}

// CodeForName resolves a main-key token. Modifier keys are not returned.
func CodeForName(name string) (Code, bool) {
	token := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := nameAliases[token]; ok {
		token = alias
	}
	code, ok := codeByName[token]
	return code, ok
}
