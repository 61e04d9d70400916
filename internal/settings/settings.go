package settings

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"keyly/internal/keys"
)

const (
	// FileName is the settings file inside the config directory.
	FileName = "setting.conf"

	maxSettingsFileBytes int64 = 1 << 20 // 1MB

	DefaultSuperKey         = "cmd"
	DefaultHoldDuration     = 500 * time.Millisecond
	DefaultPressCount       = 2
	DefaultScreenWidthRatio = 0.7

	minPressCount    = 1
	minScreenRatio   = 0.1
	maxScreenRatio   = 1.0
	keyValueSplitter = "="
)

// Recognized keys.
const (
	keySuperKey         = "super_key"
	keyTriggerType      = "trigger_type"
	keyHoldDuration     = "hold_duration"
	keyPressCount       = "press_count"
	keyScreenWidthRatio = "screen_width_ratio"
)

var userHomeDirFn = os.UserHomeDir

// Settings is everything parsed from setting.conf.
type Settings struct {
	Trigger TriggerSettings
	// ScreenWidthRatio is only consumed by the renderer; validated here.
	ScreenWidthRatio float64
}

// Default returns the built-in settings used when the file is absent.
func Default() Settings {
	return Settings{
		Trigger:          DefaultTriggerSettings(),
		ScreenWidthRatio: DefaultScreenWidthRatio,
	}
}

// Warning describes one rejected line or value. Parsing always continues.
type Warning struct {
	Line    int // 0 when the warning is about a value rather than a line
	Key     string
	Message string
}

func (w Warning) String() string {
	if w.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", FileName, w.Line, w.Message)
	}
	return fmt.Sprintf("%s: %s", FileName, w.Message)
}

// DefaultDir resolves the keyly config directory, preferring
// $XDG_CONFIG_HOME, then ~/.config, then the temp dir.
func DefaultDir() string {
	if base := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); base != "" {
		return filepath.Join(base, "keyly")
	}
	home, err := userHomeDirFn()
	if err != nil {
		slog.Warn("[WARN-SETTINGS] using temp dir as config dir fallback", "error", err)
		return filepath.Join(os.TempDir(), "keyly")
	}
	return filepath.Join(home, ".config", "keyly")
}

// Parse reads key=value settings from r. Every malformed line or invalid
// value is reported as a Warning and replaced by its default.
func Parse(r io.Reader) (Settings, []Warning) {
	raw, warnings := scanPairs(r)
	return decode(raw, warnings)
}

type rawValue struct {
	value string
	line  int
}

func scanPairs(r io.Reader) (map[string]rawValue, []Warning) {
	var warnings []Warning
	pairs := map[string]rawValue{}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// Split on the first "=" only; a value may itself contain "=".
		key, value, found := strings.Cut(line, keyValueSplitter)
		if !found {
			warnings = append(warnings, Warning{Line: lineNo, Message: fmt.Sprintf("invalid settings line format: %q", line)})
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			warnings = append(warnings, Warning{Line: lineNo, Key: key, Message: fmt.Sprintf("empty key or value in settings line: %q", line)})
			continue
		}
		switch key {
		case keySuperKey, keyTriggerType, keyHoldDuration, keyPressCount, keyScreenWidthRatio:
		default:
			warnings = append(warnings, Warning{Line: lineNo, Key: key, Message: fmt.Sprintf("unknown settings key %q ignored", key)})
			continue
		}
		pairs[key] = rawValue{value: value, line: lineNo}
	}
	if err := scanner.Err(); err != nil {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("read settings: %v", err)})
	}
	return pairs, warnings
}

func decode(raw map[string]rawValue, warnings []Warning) (Settings, []Warning) {
	out := Default()
	warn := func(rv rawValue, key, format string, args ...any) {
		warnings = append(warnings, Warning{Line: rv.line, Key: key, Message: fmt.Sprintf(format, args...)})
	}

	combo := keys.DefaultCombo()
	if rv, ok := raw[keySuperKey]; ok {
		parsed, comboWarnings, err := keys.ParseCombo(rv.value)
		for _, msg := range comboWarnings {
			warn(rv, keySuperKey, "%s", msg)
		}
		if err != nil {
			warn(rv, keySuperKey, "invalid super_key %q, using default %q: %v", rv.value, DefaultSuperKey, err)
		} else {
			combo = parsed
		}
	}

	holdDuration := DefaultHoldDuration
	if rv, ok := raw[keyHoldDuration]; ok {
		seconds, err := strconv.ParseFloat(rv.value, 64)
		if err != nil || math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds <= 0 {
			warn(rv, keyHoldDuration, "invalid hold_duration %q, using default %s", rv.value, DefaultHoldDuration)
		} else if d := time.Duration(seconds * float64(time.Second)); d <= 0 {
			warn(rv, keyHoldDuration, "hold_duration %q rounds to zero, using default %s", rv.value, DefaultHoldDuration)
		} else {
			holdDuration = d
		}
	}

	pressCount := DefaultPressCount
	if rv, ok := raw[keyPressCount]; ok {
		count, err := strconv.Atoi(rv.value)
		if err != nil || count < minPressCount {
			warn(rv, keyPressCount, "invalid press_count %q, using default %d", rv.value, DefaultPressCount)
		} else {
			pressCount = count
		}
	}

	var triggerType TriggerType = Hold{Duration: holdDuration}
	if rv, ok := raw[keyTriggerType]; ok {
		switch strings.ToLower(rv.value) {
		case "hold":
		case "press":
			triggerType = Press{Count: pressCount}
		case "afterpress":
			triggerType = AfterPress{Count: pressCount}
		default:
			warn(rv, keyTriggerType, "invalid trigger_type %q, using default %q", rv.value, "hold")
		}
	}

	if rv, ok := raw[keyScreenWidthRatio]; ok {
		ratio, err := strconv.ParseFloat(rv.value, 64)
		switch {
		case err != nil || math.IsNaN(ratio) || math.IsInf(ratio, 0):
			warn(rv, keyScreenWidthRatio, "invalid screen_width_ratio %q, using default %v", rv.value, DefaultScreenWidthRatio)
		default:
			clamped := max(minScreenRatio, min(maxScreenRatio, ratio))
			if clamped != ratio {
				warn(rv, keyScreenWidthRatio, "screen_width_ratio %v clamped to %v (valid range: %v-%v)", ratio, clamped, minScreenRatio, maxScreenRatio)
			}
			out.ScreenWidthRatio = clamped
		}
	}

	out.Trigger = TriggerSettings{Combo: combo, Type: triggerType}
	return out, warnings
}

// Store loads setting.conf from one path and caches the result.
type Store struct {
	path string

	mu      sync.Mutex
	current *Settings
}

// NewStore creates a store for the settings file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the settings file path.
func (s *Store) Path() string { return s.path }

// Load returns the cached settings, reading the file on first use.
func (s *Store) Load() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		return *s.current
	}
	loaded, _ := s.read()
	s.current = &loaded
	return loaded
}

// Reload re-reads the file and replaces the cached settings.
func (s *Store) Reload() (Settings, []Warning) {
	loaded, warnings := s.read()
	s.mu.Lock()
	s.current = &loaded
	s.mu.Unlock()
	return loaded, warnings
}

// read never fails: a missing file yields defaults, anything else degrades
// to defaults with a warning.
func (s *Store) read() (Settings, []Warning) {
	if s.path == "" {
		return Default(), nil
	}
	raw, err := readLimitedFile(s.path, maxSettingsFileBytes)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("[DEBUG-SETTINGS] settings file absent, using defaults", "path", s.path)
			return Default(), nil
		}
		slog.Warn("[WARN-SETTINGS] failed to read settings, using defaults", "path", s.path, "error", err)
		return Default(), []Warning{{Message: fmt.Sprintf("read settings: %v", err)}}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		slog.Warn("[WARN-SETTINGS] settings file is empty, using defaults", "path", s.path)
		return Default(), nil
	}

	loaded, warnings := Parse(bytes.NewReader(raw))
	for _, w := range warnings {
		slog.Warn("[WARN-SETTINGS] "+w.Message, "path", s.path, "line", w.Line, "key", w.Key)
	}
	slog.Debug("[DEBUG-SETTINGS] settings loaded",
		"path", s.path,
		"combo", loaded.Trigger.Combo.String(),
		"trigger", loaded.Trigger.Type.String(),
		"screenWidthRatio", loaded.ScreenWidthRatio,
	)
	return loaded, warnings
}

func readLimitedFile(path string, maxBytes int64) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	limited := io.LimitReader(file, maxBytes+1)
	raw, err := io.ReadAll(limited)
	if err != nil {
		return nil, err
	}
	if int64(len(raw)) > maxBytes {
		return nil, fmt.Errorf("settings file exceeds %d bytes", maxBytes)
	}
	return raw, nil
}
