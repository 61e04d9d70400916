// Package trigger decides from a stream of keyboard events when the
// activation gesture has happened.
package trigger

import (
	"fmt"
	"strings"
	"time"

	"keyly/internal/keys"
)

// Phase is the kind of keyboard event.
type Phase uint8

const (
	PhaseFlagsChanged Phase = iota + 1
	PhaseKeyDown
	PhaseKeyUp
)

var phaseNames = map[Phase]string{
	PhaseFlagsChanged: "flagsChanged",
	PhaseKeyDown:      "keyDown",
	PhaseKeyUp:        "keyUp",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("phase(%d)", uint8(p))
}

// ParsePhase accepts the names produced by String, case-insensitively.
func ParsePhase(s string) (Phase, error) {
	for p, name := range phaseNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown event phase %q", s)
}

// Event is one normalized keyboard event. Flags is the full modifier state
// after the event. KeyCode is meaningful only when HasKeyCode is set.
type Event struct {
	Time       time.Time
	Flags      keys.Modifier
	KeyCode    keys.Code
	HasKeyCode bool
	Phase      Phase
}

func (e Event) isKeyDown(code keys.Code) bool {
	return e.Phase == PhaseKeyDown && e.HasKeyCode && e.KeyCode == code
}

func (e Event) isKeyUp(code keys.Code) bool {
	return e.Phase == PhaseKeyUp && e.HasKeyCode && e.KeyCode == code
}

// sameAs compares events field by field; time.Time is compared with Equal so
// monotonic readings do not matter.
func (e Event) sameAs(o Event) bool {
	return e.Time.Equal(o.Time) &&
		e.Flags == o.Flags &&
		e.KeyCode == o.KeyCode &&
		e.HasKeyCode == o.HasKeyCode &&
		e.Phase == o.Phase
}

// State is the trigger state.
type State uint8

const (
	StateIdle State = iota
	StateComboActive
	StateSuppressed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateComboActive:
		return "comboActive"
	case StateSuppressed:
		return "suppressed"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}
