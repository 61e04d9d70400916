package keys

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyCombo is returned when a combo spec names neither a modifier nor a key.
var ErrEmptyCombo = errors.New("combo must include at least one modifier or key")

// Combo describes the activation gesture: a modifier set plus an optional
// single main key. Construct via ParseCombo or DefaultCombo.
type Combo struct {
	modifiers Modifier
	mainKey   Key
	hasMain   bool
}

// DefaultCombo is the single-modifier fallback used whenever the configured
// combo is missing or unusable.
func DefaultCombo() Combo {
	return NewCombo(ModCmd, nil)
}

// NewCombo builds a combo from already-validated parts.
func NewCombo(mods Modifier, main *Key) Combo {
	c := Combo{modifiers: mods.Relevant()}
	if main != nil {
		c.mainKey = *main
		c.hasMain = true
	}
	return c
}

// Modifiers returns the required modifier set.
func (c Combo) Modifiers() Modifier { return c.modifiers }

// HasModifiers reports whether the combo requires at least one modifier.
func (c Combo) HasModifiers() bool { return !c.modifiers.IsEmpty() }

// MainKey returns the main key and whether one is configured.
func (c Combo) MainKey() (Key, bool) { return c.mainKey, c.hasMain }

// HasMainKey reports whether a non-modifier key is part of the combo.
func (c Combo) HasMainKey() bool { return c.hasMain }

// IsZero reports whether the combo is unusable (nothing to match).
func (c Combo) IsZero() bool { return c.modifiers.IsEmpty() && !c.hasMain }

// String renders the combo in spec form, e.g. "cmd+shift+a".
func (c Combo) String() string {
	parts := c.modifiers.Names()
	if c.hasMain {
		parts = append(parts, c.mainKey.Name)
	}
	return strings.Join(parts, "+")
}

// ParseCombo parses a spec like "cmd+a" or "Ctrl + Shift".
//
// Tokens are split on "+", trimmed and lowercased. Vocabulary tokens form the
// modifier set. The first remaining token becomes the main key; any further
// non-modifier tokens are discarded and reported in warnings.
func ParseCombo(spec string) (Combo, []string, error) {
	raw := strings.TrimSpace(spec)
	if raw == "" {
		return Combo{}, nil, ErrEmptyCombo
	}

	var (
		warnings []string
		mods     Modifier
		mainName string
	)
	for _, part := range strings.Split(raw, "+") {
		token := strings.ToLower(strings.TrimSpace(part))
		if token == "" {
			warnings = append(warnings, fmt.Sprintf("empty token in combo %q ignored", raw))
			continue
		}
		if mod, ok := ModifierByName(token); ok {
			mods |= mod
			continue
		}
		if mainName != "" {
			warnings = append(warnings, fmt.Sprintf("extra key %q in combo %q ignored, keeping %q", token, raw, mainName))
			continue
		}
		mainName = token
	}

	if mainName == "" {
		if mods == ModNone {
			return Combo{}, warnings, ErrEmptyCombo
		}
		return NewCombo(mods, nil), warnings, nil
	}

	code, ok := CodeForName(mainName)
	if !ok {
		return Combo{}, warnings, fmt.Errorf("unknown key %q in combo %q", mainName, raw)
	}
	main := LookupCode(code)
	return NewCombo(mods, &main), warnings, nil
}
