// Package overlay is the local websocket transport between the daemon and the
// native helper that taps keyboard events and draws the overlay.
//
// # Message protocol
//
// Every frame is a JSON text message with a "type" discriminator.
//
// Inbound (helper to daemon):
//
//	{"type":"key","event":{"time":12.5,"flags":["cmd"],"keyCode":53,"phase":"keyDown"}}
//	{"type":"focus","appId":"com.apple.Safari","extracted":[{"category":"File","action":"New","shortcut":"⌘N"}]}
//	{"type":"search","query":"tab"}
//
// "time" is seconds on any monotonic clock the helper chooses; 0 means
// unknown. "keyCode" is omitted for pure modifier changes.
//
// Outbound (daemon to helper): "reveal", "hide", "log" and "error".
package overlay

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"keyly/internal/keys"
	"keyly/internal/logtee"
	"keyly/internal/resolver"
	"keyly/internal/sheets"
	"keyly/internal/trigger"
)

const (
	typeKey    = "key"
	typeFocus  = "focus"
	typeSearch = "search"

	typeReveal = "reveal"
	typeHide   = "hide"
	typeLog    = "log"
	typeError  = "error"
)

// Inbound is a decoded helper message: KeyMessage, FocusMessage or SearchMessage.
type Inbound interface {
	inbound()
}

// KeyMessage carries one tapped keyboard event.
type KeyMessage struct {
	Event trigger.Event
}

// FocusMessage reports the frontmost application and the shortcuts the OS
// extracted from its menus.
type FocusMessage struct {
	AppID     string
	Extracted []sheets.ExtractedShortcut
}

// SearchMessage narrows the visible shortcut list.
type SearchMessage struct {
	Query string
}

func (KeyMessage) inbound()    {}
func (FocusMessage) inbound()  {}
func (SearchMessage) inbound() {}

type envelope struct {
	Type      string                     `json:"type"`
	Event     *wireEvent                 `json:"event,omitempty"`
	AppID     string                     `json:"appId,omitempty"`
	Extracted []sheets.ExtractedShortcut `json:"extracted,omitempty"`
	Query     string                     `json:"query,omitempty"`
}

type wireEvent struct {
	Time    float64  `json:"time"`
	Flags   []string `json:"flags"`
	KeyCode *int     `json:"keyCode,omitempty"`
	Phase   string   `json:"phase"`
}

// DecodeInbound parses one text frame from the helper.
func DecodeInbound(data []byte) (Inbound, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	switch env.Type {
	case typeKey:
		if env.Event == nil {
			return nil, errors.New("key message without event")
		}
		ev, err := decodeEvent(*env.Event)
		if err != nil {
			return nil, err
		}
		return KeyMessage{Event: ev}, nil
	case typeFocus:
		return FocusMessage{AppID: strings.TrimSpace(env.AppID), Extracted: env.Extracted}, nil
	case typeSearch:
		return SearchMessage{Query: env.Query}, nil
	case "":
		return nil, errors.New("message without type")
	default:
		return nil, fmt.Errorf("unknown message type %q", env.Type)
	}
}

func decodeEvent(w wireEvent) (trigger.Event, error) {
	phase, err := trigger.ParsePhase(w.Phase)
	if err != nil {
		return trigger.Event{}, err
	}
	flags, unknown := keys.ParseModifierNames(w.Flags)
	if len(unknown) > 0 {
		return trigger.Event{}, fmt.Errorf("unknown modifier flags %v", unknown)
	}
	ev := trigger.Event{Flags: flags, Phase: phase, Time: eventTime(w.Time)}
	if w.KeyCode != nil {
		if *w.KeyCode < 0 || *w.KeyCode > math.MaxUint16 {
			return trigger.Event{}, fmt.Errorf("key code %d out of range", *w.KeyCode)
		}
		ev.KeyCode = keys.Code(*w.KeyCode)
		ev.HasKeyCode = true
	}
	if phase != trigger.PhaseFlagsChanged && !ev.HasKeyCode {
		return trigger.Event{}, fmt.Errorf("%s event without keyCode", phase)
	}
	return ev, nil
}

// eventTime maps helper seconds onto a time.Time. Only equality and ordering
// matter to the trigger machine, so the epoch is arbitrary.
func eventTime(seconds float64) time.Time {
	if seconds <= 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return time.Time{}
	}
	return time.Unix(0, 0).Add(time.Duration(seconds * float64(time.Second)))
}

// RevealMessage is the payload that makes the helper draw the overlay.
type RevealMessage struct {
	Type                 string            `json:"type"`
	AppID                string            `json:"appId"`
	Query                string            `json:"query,omitempty"`
	Entries              []sheets.Entry    `json:"entries"`
	CategoryDescriptions map[string]string `json:"categoryDescriptions"`
	GroupDescriptions    map[string]string `json:"groupDescriptions"`
	ScreenWidthRatio     float64           `json:"screenWidthRatio"`
	UsedDefaults         bool              `json:"usedDefaults,omitempty"`
}

// NewReveal builds a reveal payload from a resolved (and possibly filtered) result.
func NewReveal(res resolver.Result, screenWidthRatio float64, query string) RevealMessage {
	msg := RevealMessage{
		Type:                 typeReveal,
		AppID:                res.AppID,
		Query:                query,
		Entries:              res.Entries,
		CategoryDescriptions: res.CategoryDescriptions,
		GroupDescriptions:    res.GroupDescriptions,
		ScreenWidthRatio:     screenWidthRatio,
		UsedDefaults:         res.UsedDefaults,
	}
	if msg.Entries == nil {
		msg.Entries = []sheets.Entry{}
	}
	if msg.CategoryDescriptions == nil {
		msg.CategoryDescriptions = map[string]string{}
	}
	if msg.GroupDescriptions == nil {
		msg.GroupDescriptions = map[string]string{}
	}
	return msg
}

type hideMsg struct {
	Type string `json:"type"`
}

type logMsg struct {
	Type  string       `json:"type"`
	Entry logtee.Entry `json:"entry"`
}

type errorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
