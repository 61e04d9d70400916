//go:build windows

package singleinstance

import (
	"errors"
	"strings"
	"testing"
)

func TestTryLockMutex(t *testing.T) {
	const name = `Local\keyly-test-mutex`
	lock1, err := TryLock(name)
	if err != nil {
		t.Fatalf("first TryLock failed: %v", err)
	}
	if _, err := TryLock(name); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second TryLock: got err=%v, want ErrAlreadyRunning", err)
	}
	if err := lock1.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if err := lock1.Release(); err != nil {
		t.Fatalf("second Release should be no-op, got: %v", err)
	}
	if _, err := TryLock(""); err == nil {
		t.Fatal("TryLock with empty name should fail")
	}
}

func TestDefaultNameWindows(t *testing.T) {
	if name := DefaultName(); !strings.HasPrefix(name, `Local\keyly-`) {
		t.Fatalf("DefaultName() = %q", name)
	}
}
