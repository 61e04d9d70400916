//go:build !unix && !windows

package singleinstance

// Lock is a no-op where neither flock nor named mutexes exist.
type Lock struct{}

func TryLock(_ string) (*Lock, error) { return &Lock{}, nil }

func (l *Lock) Release() error { return nil }

func DefaultName() string { return "" }
