package trigger

import "time"

// Timer is a cancellable scheduled task.
type Timer interface {
	Stop() bool
}

// Scheduler schedules f to run once after d. f may run on any goroutine.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealScheduler is backed by time.AfterFunc.
var RealScheduler Scheduler = realScheduler{}
