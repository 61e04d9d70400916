package settings

import (
	"fmt"
	"time"

	"keyly/internal/keys"
)

// TriggerType is the closed set of activation behaviours. The unexported
// method seals the interface to Hold, Press and AfterPress.
type TriggerType interface {
	triggerType()
	String() string
}

// Hold fires after the combo is held continuously for Duration.
type Hold struct {
	Duration time.Duration
}

// Press fires on the Count-th press of the combo within the double-press
// interval. The overlay is hidden again when the combo is released.
type Press struct {
	Count int
}

// AfterPress fires like Press but the overlay stays up after the combo is
// released, until the cancel key or the next completed press sequence.
type AfterPress struct {
	Count int
}

func (Hold) triggerType()       {}
func (Press) triggerType()      {}
func (AfterPress) triggerType() {}

func (h Hold) String() string       { return fmt.Sprintf("hold(%s)", h.Duration) }
func (p Press) String() string      { return fmt.Sprintf("press(%d)", p.Count) }
func (a AfterPress) String() string { return fmt.Sprintf("afterPress(%d)", a.Count) }

// TriggerSettings is the decoded activation configuration.
type TriggerSettings struct {
	Combo keys.Combo
	Type  TriggerType
}

// DefaultTriggerSettings returns the single-modifier hold fallback.
func DefaultTriggerSettings() TriggerSettings {
	return TriggerSettings{
		Combo: keys.DefaultCombo(),
		Type:  Hold{Duration: DefaultHoldDuration},
	}
}

// Valid reports whether ts satisfies the trigger invariants
// (usable combo, duration > 0, count >= 1).
func (ts TriggerSettings) Valid() bool {
	if ts.Combo.IsZero() {
		return false
	}
	switch tt := ts.Type.(type) {
	case Hold:
		return tt.Duration > 0
	case Press:
		return tt.Count >= minPressCount
	case AfterPress:
		return tt.Count >= minPressCount
	default:
		return false
	}
}

// OrDefault returns ts when valid, otherwise the default trigger settings.
func (ts TriggerSettings) OrDefault() TriggerSettings {
	if ts.Valid() {
		return ts
	}
	return DefaultTriggerSettings()
}
