package overlay

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"keyly/internal/keys"
	"keyly/internal/resolver"
	"keyly/internal/sheets"
	"keyly/internal/trigger"
)

func TestDecodeInboundKey(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want trigger.Event
	}{
		{
			name: "flags changed",
			raw:  `{"type":"key","event":{"time":1.5,"flags":["cmd","Shift"],"phase":"flagsChanged"}}`,
			want: trigger.Event{
				Time:  time.Unix(0, 0).Add(1500 * time.Millisecond),
				Flags: keys.ModCmd | keys.ModShift,
				Phase: trigger.PhaseFlagsChanged,
			},
		},
		{
			name: "escape key down",
			raw:  `{"type":"key","event":{"time":2,"flags":[],"keyCode":53,"phase":"keyDown"}}`,
			want: trigger.Event{
				Time:       time.Unix(2, 0),
				KeyCode:    keys.CodeEscape,
				HasKeyCode: true,
				Phase:      trigger.PhaseKeyDown,
			},
		},
		{
			name: "zero time stays unknown",
			raw:  `{"type":"key","event":{"time":0,"flags":["ctrl"],"phase":"flagsChanged"}}`,
			want: trigger.Event{Flags: keys.ModCtrl, Phase: trigger.PhaseFlagsChanged},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := DecodeInbound([]byte(tt.raw))
			if err != nil {
				t.Fatalf("DecodeInbound() error = %v", err)
			}
			key, ok := msg.(KeyMessage)
			if !ok {
				t.Fatalf("DecodeInbound() = %T, want KeyMessage", msg)
			}
			got := key.Event
			if !got.Time.Equal(tt.want.Time) || got.Flags != tt.want.Flags ||
				got.KeyCode != tt.want.KeyCode || got.HasKeyCode != tt.want.HasKeyCode ||
				got.Phase != tt.want.Phase {
				t.Fatalf("event = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDecodeInboundErrors(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr string
	}{
		{name: "not json", raw: `{bad`, wantErr: "invalid JSON"},
		{name: "missing type", raw: `{}`, wantErr: "without type"},
		{name: "unknown type", raw: `{"type":"subscribe"}`, wantErr: "unknown message type"},
		{name: "key without event", raw: `{"type":"key"}`, wantErr: "without event"},
		{name: "bad phase", raw: `{"type":"key","event":{"flags":[],"phase":"tap"}}`, wantErr: "phase"},
		{name: "unknown flag", raw: `{"type":"key","event":{"flags":["hyper"],"phase":"flagsChanged"}}`, wantErr: "hyper"},
		{name: "keydown without code", raw: `{"type":"key","event":{"flags":[],"phase":"keyDown"}}`, wantErr: "without keyCode"},
		{name: "code out of range", raw: `{"type":"key","event":{"flags":[],"keyCode":70000,"phase":"keyUp"}}`, wantErr: "out of range"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeInbound([]byte(tt.raw))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("DecodeInbound() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestDecodeInboundFocusAndSearch(t *testing.T) {
	msg, err := DecodeInbound([]byte(`{"type":"focus","appId":" com.apple.Safari ","extracted":[{"category":"File","action":"New Tab","shortcut":"cmd+t"}]}`))
	if err != nil {
		t.Fatalf("DecodeInbound(focus) error = %v", err)
	}
	focus, ok := msg.(FocusMessage)
	if !ok {
		t.Fatalf("got %T, want FocusMessage", msg)
	}
	if focus.AppID != "com.apple.Safari" || len(focus.Extracted) != 1 || focus.Extracted[0].RawShortcut != "cmd+t" {
		t.Fatalf("focus = %+v", focus)
	}

	msg, err = DecodeInbound([]byte(`{"type":"search","query":"tab"}`))
	if err != nil {
		t.Fatalf("DecodeInbound(search) error = %v", err)
	}
	if search, ok := msg.(SearchMessage); !ok || search.Query != "tab" {
		t.Fatalf("got %#v, want SearchMessage{tab}", msg)
	}
}

func TestNewRevealNeverEncodesNull(t *testing.T) {
	data, err := json.Marshal(NewReveal(resolver.Result{AppID: "x"}, 0.7, ""))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	s := string(data)
	for _, want := range []string{`"type":"reveal"`, `"entries":[]`, `"categoryDescriptions":{}`, `"groupDescriptions":{}`, `"screenWidthRatio":0.7`} {
		if !strings.Contains(s, want) {
			t.Fatalf("reveal JSON %s missing %s", s, want)
		}
	}

	res := resolver.Result{
		AppID:   "com.apple.Safari",
		Entries: []sheets.Entry{sheets.MustEntry("Tabs", "New Tab", "cmd+t")},
	}
	data, err = json.Marshal(NewReveal(res, 0.5, "tab"))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(data), `"shortcut":"⌘T"`) || !strings.Contains(string(data), `"query":"tab"`) {
		t.Fatalf("reveal JSON = %s", data)
	}
}
