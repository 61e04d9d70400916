package sheets

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"howett.net/plist"
)

const (
	infoPlistRelPath  = "Contents/Info.plist"
	maxInfoPlistBytes = 4 << 20
)

// BundleID derives an application identifier from an application bundle
// path. It reads CFBundleIdentifier from the bundle's Info.plist and
// falls back to the cleaned path when the plist is absent or unreadable.
func BundleID(appPath string) string {
	trimmed := strings.TrimSpace(appPath)
	if trimmed == "" {
		return ""
	}
	cleaned := filepath.Clean(trimmed)

	id, err := readBundleIdentifier(filepath.Join(cleaned, filepath.FromSlash(infoPlistRelPath)))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Debug("[DEBUG-SHEETS] Info.plist unreadable, using app path as identifier", "app", cleaned, "error", err)
		}
		return cleaned
	}
	if id == "" {
		return cleaned
	}
	return id
}

// infoPlist is the part of Info.plist keyly reads. The decoder accepts the
// XML, binary and OpenStep encodings.
type infoPlist struct {
	BundleIdentifier string `plist:"CFBundleIdentifier"`
}

func readBundleIdentifier(plistPath string) (string, error) {
	file, err := os.Open(plistPath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxInfoPlistBytes+1))
	if err != nil {
		return "", fmt.Errorf("read plist: %w", err)
	}
	if len(data) > maxInfoPlistBytes {
		return "", fmt.Errorf("plist exceeds %d bytes", maxInfoPlistBytes)
	}
	var info infoPlist
	if _, err := plist.Unmarshal(data, &info); err != nil {
		return "", fmt.Errorf("decode plist: %w", err)
	}
	return strings.TrimSpace(info.BundleIdentifier), nil
}
