//go:build unix

package singleinstance

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/sys/unix"
)

// Lock holds an exclusive flock on a lock file. The kernel drops the lock
// when the owning process exits, so a stale file never blocks a restart.
type Lock struct {
	file *os.File
}

// TryLock takes a non-blocking exclusive lock on the file at name, creating it
// if needed. It returns ErrAlreadyRunning when another holder exists.
func TryLock(name string) (*Lock, error) {
	if name == "" {
		return nil, errors.New("lock file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(name), 0o700); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file %q: %w", name, err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, ErrAlreadyRunning
		}
		return nil, fmt.Errorf("flock %q: %w", name, err)
	}
	// Best effort: the pid only helps a human looking at the file.
	if err := f.Truncate(0); err == nil {
		_, _ = f.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0)
	}
	return &Lock{file: f}, nil
}

// Release unlocks and closes the lock file. Safe on a nil receiver and idempotent.
// The file itself is left in place; removing it would race with a new holder.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	f := l.file
	l.file = nil
	unlockErr := unix.Flock(int(f.Fd()), unix.LOCK_UN)
	closeErr := f.Close()
	return errors.Join(unlockErr, closeErr)
}

// DefaultName returns the per-user lock file path, preferring XDG_RUNTIME_DIR.
func DefaultName() string {
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "keyly-"+sanitizeUsername(currentUsername())+".lock")
}
