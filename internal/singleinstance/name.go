// Package singleinstance keeps a second keyly daemon from starting for the
// same user.
package singleinstance

import (
	"errors"
	"os"
	"os/user"
	"regexp"
	"strings"
)

// ErrAlreadyRunning is returned by TryLock when another instance holds the lock.
var ErrAlreadyRunning = errors.New("another instance is already running")

var invalidNameRune = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// sanitizeUsername makes a username safe to embed in lock file and mutex names.
func sanitizeUsername(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return invalidNameRune.ReplaceAllString(value, "_")
}

func currentUsername() string {
	for _, env := range []string{"USER", "USERNAME", "LOGNAME"} {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			return v
		}
	}
	if current, err := user.Current(); err == nil {
		return current.Username
	}
	return ""
}
