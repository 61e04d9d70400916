package trigger

import (
	"context"
	"log/slog"
	"sync"
)

const (
	eventQueueSize = 256
	taskQueueSize  = 16
)

// Loop owns a Machine and serializes every event and timer callback onto the
// goroutine running Run. Both event sources submit to the same loop.
type Loop struct {
	machine *Machine
	events  chan Event
	tasks   chan func()

	stopped  chan struct{}
	stopOnce sync.Once
}

// NewLoop creates a loop around a new Machine. Timer callbacks are always
// routed through the loop.
func NewLoop(source SettingsSource, listener Listener, opts ...MachineOption) *Loop {
	l := &Loop{
		events:  make(chan Event, eventQueueSize),
		tasks:   make(chan func(), taskQueueSize),
		stopped: make(chan struct{}),
	}
	opts = append(opts, WithPoster(l.post))
	l.machine = NewMachine(source, listener, opts...)
	return l
}

// Submit enqueues ev without blocking. It reports false when the queue is
// full and the event was dropped.
func (l *Loop) Submit(ev Event) bool {
	select {
	case l.events <- ev:
		return true
	default:
		slog.Warn("[WARN-TRIGGER] event queue full, event dropped", "phase", ev.Phase.String())
		return false
	}
}

// Do runs f on the loop goroutine, with access to the machine. It returns
// false if the loop has stopped.
func (l *Loop) Do(f func(m *Machine)) bool {
	select {
	case <-l.stopped:
		return false
	default:
	}
	select {
	case l.tasks <- func() { f(l.machine) }:
		return true
	case <-l.stopped:
		return false
	}
}

func (l *Loop) post(f func()) {
	select {
	case l.tasks <- f:
	case <-l.stopped:
	}
}

// Run processes events until ctx is done.
func (l *Loop) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			l.machine.cancelHold()
			l.stopOnce.Do(func() { close(l.stopped) })
			return
		case ev := <-l.events:
			l.machine.Handle(ev)
		case f := <-l.tasks:
			f()
		}
	}
}
