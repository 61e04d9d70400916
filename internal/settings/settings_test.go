package settings

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"keyly/internal/keys"
	"keyly/internal/testutil"
)

func TestParseHoldWithMainKey(t *testing.T) {
	got, warnings := Parse(strings.NewReader("super_key=cmd+a\ntrigger_type=hold\nhold_duration=0.5"))
	if len(warnings) != 0 {
		t.Fatalf("warnings = %v, want none", warnings)
	}
	if got.Trigger.Combo.Modifiers() != keys.ModCmd {
		t.Fatalf("modifiers = %v, want cmd", got.Trigger.Combo.Modifiers())
	}
	main, ok := got.Trigger.Combo.MainKey()
	if !ok || main.Name != "a" {
		t.Fatalf("main key = %+v (ok=%v), want a", main, ok)
	}
	hold, ok := got.Trigger.Type.(Hold)
	if !ok {
		t.Fatalf("trigger type = %T, want Hold", got.Trigger.Type)
	}
	if hold.Duration != 500*time.Millisecond {
		t.Fatalf("hold duration = %v, want 500ms", hold.Duration)
	}
}

func TestParseFallsBackOnInvalidValues(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		wantType     TriggerType
		wantRatio    float64
		wantCombo    string
		wantWarnings int
	}{
		{
			name:         "negative hold duration",
			input:        "hold_duration=-1",
			wantType:     Hold{Duration: DefaultHoldDuration},
			wantRatio:    DefaultScreenWidthRatio,
			wantCombo:    "cmd",
			wantWarnings: 1,
		},
		{
			name:         "zero hold duration",
			input:        "hold_duration=0",
			wantType:     Hold{Duration: DefaultHoldDuration},
			wantRatio:    DefaultScreenWidthRatio,
			wantCombo:    "cmd",
			wantWarnings: 1,
		},
		{
			name:         "non numeric hold duration",
			input:        "hold_duration=soon",
			wantType:     Hold{Duration: DefaultHoldDuration},
			wantRatio:    DefaultScreenWidthRatio,
			wantCombo:    "cmd",
			wantWarnings: 1,
		},
		{
			name:         "press count below one",
			input:        "trigger_type=press\npress_count=0",
			wantType:     Press{Count: DefaultPressCount},
			wantRatio:    DefaultScreenWidthRatio,
			wantCombo:    "cmd",
			wantWarnings: 1,
		},
		{
			name:         "unknown trigger type",
			input:        "trigger_type=tap",
			wantType:     Hold{Duration: DefaultHoldDuration},
			wantRatio:    DefaultScreenWidthRatio,
			wantCombo:    "cmd",
			wantWarnings: 1,
		},
		{
			name:         "invalid super key",
			input:        "super_key=cmd+nope",
			wantType:     Hold{Duration: DefaultHoldDuration},
			wantRatio:    DefaultScreenWidthRatio,
			wantCombo:    "cmd",
			wantWarnings: 1,
		},
		{
			name:         "ratio clamped high",
			input:        "screen_width_ratio=3",
			wantType:     Hold{Duration: DefaultHoldDuration},
			wantRatio:    1.0,
			wantCombo:    "cmd",
			wantWarnings: 1,
		},
		{
			name:         "ratio clamped low",
			input:        "screen_width_ratio=0.01",
			wantType:     Hold{Duration: DefaultHoldDuration},
			wantRatio:    0.1,
			wantCombo:    "cmd",
			wantWarnings: 1,
		},
		{
			name:         "malformed lines",
			input:        "super_key\na=b=c\nfoo=bar\n=1",
			wantType:     Hold{Duration: DefaultHoldDuration},
			wantRatio:    DefaultScreenWidthRatio,
			wantCombo:    "cmd",
			wantWarnings: 4,
		},
		{
			name:      "comments and blank lines",
			input:     "# comment\n\n  \nsuper_key = Ctrl + Shift \ntrigger_type = AfterPress\npress_count = 3\nscreen_width_ratio = 0.5",
			wantType:  AfterPress{Count: 3},
			wantRatio: 0.5,
			wantCombo: "ctrl+shift",
		},
		{
			name:      "equals sign as main key",
			input:     "super_key=cmd+=\ntrigger_type=press",
			wantType:  Press{Count: DefaultPressCount},
			wantRatio: DefaultScreenWidthRatio,
			wantCombo: "cmd+=",
		},
		{
			name:         "extra main key keeps first",
			input:        "super_key=cmd+a+b\ntrigger_type=press",
			wantType:     Press{Count: DefaultPressCount},
			wantRatio:    DefaultScreenWidthRatio,
			wantCombo:    "cmd+a",
			wantWarnings: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, warnings := Parse(strings.NewReader(tt.input))
			if got.Trigger.Type != tt.wantType {
				t.Fatalf("trigger type = %v, want %v", got.Trigger.Type, tt.wantType)
			}
			if got.ScreenWidthRatio != tt.wantRatio {
				t.Fatalf("ScreenWidthRatio = %v, want %v", got.ScreenWidthRatio, tt.wantRatio)
			}
			if got.Trigger.Combo.String() != tt.wantCombo {
				t.Fatalf("combo = %q, want %q", got.Trigger.Combo.String(), tt.wantCombo)
			}
			if len(warnings) != tt.wantWarnings {
				t.Fatalf("warnings = %v, want %d", warnings, tt.wantWarnings)
			}
			if !got.Trigger.Valid() {
				t.Fatalf("parsed trigger settings are invalid: %+v", got.Trigger)
			}
		})
	}
}

func TestTriggerSettingsOrDefault(t *testing.T) {
	invalid := []TriggerSettings{
		{},
		{Combo: keys.DefaultCombo()},
		{Combo: keys.DefaultCombo(), Type: Hold{Duration: 0}},
		{Combo: keys.DefaultCombo(), Type: Press{Count: 0}},
		{Combo: keys.DefaultCombo(), Type: AfterPress{Count: -1}},
		{Type: Hold{Duration: time.Second}},
	}
	for i, ts := range invalid {
		got := ts.OrDefault()
		if got.Combo.String() != "cmd" || got.Type != (Hold{Duration: DefaultHoldDuration}) {
			t.Fatalf("case %d: OrDefault() = %+v, want default", i, got)
		}
	}

	valid := TriggerSettings{Combo: keys.DefaultCombo(), Type: Press{Count: 3}}
	if got := valid.OrDefault(); got.Type != (Press{Count: 3}) {
		t.Fatalf("OrDefault() replaced a valid trigger: %+v", got)
	}
}

func TestStoreMissingFileUsesDefaults(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), FileName))
	got := store.Load()
	if got != Default() {
		t.Fatalf("Load() = %+v, want defaults", got)
	}
}

func TestStoreLoadCachesUntilReload(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, FileName, "trigger_type=press\npress_count=2\n")
	store := NewStore(path)

	if _, ok := store.Load().Trigger.Type.(Press); !ok {
		t.Fatalf("first Load() type = %T, want Press", store.Load().Trigger.Type)
	}

	testutil.WriteFile(t, dir, FileName, "trigger_type=hold\nhold_duration=1.5\n")
	if _, ok := store.Load().Trigger.Type.(Press); !ok {
		t.Fatal("Load() should return the cached settings before Reload")
	}

	reloaded, warnings := store.Reload()
	if len(warnings) != 0 {
		t.Fatalf("Reload() warnings = %v", warnings)
	}
	if reloaded.Trigger.Type != (Hold{Duration: 1500 * time.Millisecond}) {
		t.Fatalf("Reload() type = %v, want hold(1.5s)", reloaded.Trigger.Type)
	}
	if store.Load() != reloaded {
		t.Fatal("Load() after Reload() should return the reloaded settings")
	}
}

func TestStoreLogsWarnings(t *testing.T) {
	logBuf := testutil.CaptureLogBuffer(t, slog.LevelWarn)
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, FileName, "hold_duration=-1\n")

	got, warnings := NewStore(path).Reload()
	if got.Trigger.Type != (Hold{Duration: DefaultHoldDuration}) {
		t.Fatalf("type = %v, want default hold", got.Trigger.Type)
	}
	if len(warnings) != 1 {
		t.Fatalf("warnings = %v, want 1", warnings)
	}
	if !strings.Contains(logBuf.String(), "[WARN-SETTINGS]") {
		t.Fatalf("expected [WARN-SETTINGS] log, got %q", logBuf.String())
	}
}

func TestStoreRejectsOversizedFile(t *testing.T) {
	dir := t.TempDir()
	payload := "# " + strings.Repeat("x", int(maxSettingsFileBytes)) + "\n"
	path := testutil.WriteFile(t, dir, FileName, payload)

	got, warnings := NewStore(path).Reload()
	if got != Default() {
		t.Fatalf("Reload() = %+v, want defaults", got)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0].Message, "exceeds") {
		t.Fatalf("warnings = %v, want size warning", warnings)
	}
}

func TestReadLimitedFileMissing(t *testing.T) {
	_, err := readLimitedFile(filepath.Join(t.TempDir(), "absent"), 10)
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want ErrNotExist", err)
	}
}

func TestDefaultDir(t *testing.T) {
	t.Run("xdg config home", func(t *testing.T) {
		base := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", base)
		if got := DefaultDir(); got != filepath.Join(base, "keyly") {
			t.Fatalf("DefaultDir() = %q", got)
		}
	})

	t.Run("home fallback", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		orig := userHomeDirFn
		t.Cleanup(func() { userHomeDirFn = orig })
		userHomeDirFn = func() (string, error) { return "/home/tester", nil }
		if got := DefaultDir(); got != filepath.Join("/home/tester", ".config", "keyly") {
			t.Fatalf("DefaultDir() = %q", got)
		}
	})

	t.Run("temp fallback", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		orig := userHomeDirFn
		t.Cleanup(func() { userHomeDirFn = orig })
		userHomeDirFn = func() (string, error) { return "", errors.New("no home") }
		if got := DefaultDir(); got != filepath.Join(os.TempDir(), "keyly") {
			t.Fatalf("DefaultDir() = %q", got)
		}
	})
}
