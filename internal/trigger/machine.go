package trigger

import (
	"log/slog"
	"time"

	"keyly/internal/keys"
	"keyly/internal/settings"
)

// DoublePressInterval is the maximum spacing between counted presses.
const DoublePressInterval = 500 * time.Millisecond

// recentEventWindow is how many processed events are remembered for
// duplicate detection across two delivery sources.
const recentEventWindow = 8

// Listener receives the machine's output. Calls happen on the goroutine
// driving the machine.
type Listener interface {
	Reveal()
	Hide()
}

// SettingsSource supplies the current trigger settings; it is consulted on
// every event so reloads take effect immediately.
type SettingsSource interface {
	TriggerSettings() settings.TriggerSettings
}

// Machine is the trigger state machine. It is not safe for concurrent use;
// Loop serializes access to it.
type Machine struct {
	source        SettingsSource
	listener      Listener
	scheduler     Scheduler
	post          func(func())
	pressInterval time.Duration

	state      State
	cycle      uint64
	start      time.Time
	entryExtra keys.Modifier
	holdTimer  Timer

	flags      keys.Modifier
	mainDown   bool
	pressCount int
	lastPress  time.Time

	visible     bool
	sticky      bool
	revealCycle uint64

	recent    [recentEventWindow]Event
	recentLen int
	recentPos int
	newest    time.Time
}

// MachineOption configures a Machine.
type MachineOption func(*Machine)

// WithScheduler replaces RealScheduler.
func WithScheduler(s Scheduler) MachineOption {
	return func(m *Machine) {
		if s != nil {
			m.scheduler = s
		}
	}
}

// WithPoster routes timer callbacks through post so they run on the same
// serialized context as events. The default runs them directly.
func WithPoster(post func(func())) MachineOption {
	return func(m *Machine) {
		if post != nil {
			m.post = post
		}
	}
}

// WithPressInterval overrides DoublePressInterval.
func WithPressInterval(d time.Duration) MachineOption {
	return func(m *Machine) {
		if d > 0 {
			m.pressInterval = d
		}
	}
}

// NewMachine creates an idle machine. A nil source means default settings.
func NewMachine(source SettingsSource, listener Listener, opts ...MachineOption) *Machine {
	m := &Machine{
		source:        source,
		listener:      listener,
		scheduler:     RealScheduler,
		post:          func(f func()) { f() },
		pressInterval: DoublePressInterval,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Visible reports whether the overlay is currently revealed.
func (m *Machine) Visible() bool { return m.visible }

func (m *Machine) triggerSettings() settings.TriggerSettings {
	if m.source == nil {
		return settings.DefaultTriggerSettings()
	}
	return m.source.TriggerSettings().OrDefault()
}

// Handle processes one event. Re-delivery of an already processed event and
// events older than the newest one seen are ignored.
func (m *Machine) Handle(ev Event) {
	if m.isDuplicate(ev) {
		slog.Debug("[DEBUG-TRIGGER] duplicate or stale event ignored", "phase", ev.Phase.String(), "time", ev.Time)
		return
	}
	m.remember(ev)

	if ev.isKeyDown(keys.CodeEscape) && m.visible {
		m.hide("escape")
	}

	ts := m.triggerSettings()
	combo := ts.Combo
	mainKey, hasMain := combo.MainKey()
	if hasMain {
		switch {
		case ev.isKeyDown(mainKey.Code):
			m.mainDown = true
		case ev.isKeyUp(mainKey.Code):
			m.mainDown = false
		}
	}

	required := combo.Modifiers()
	mods := ev.Flags.Relevant()
	prevFlags := m.flags
	m.flags = mods
	hasRequired := mods.Has(required)
	extra := mods &^ required
	held := hasRequired && (!hasMain || m.mainDown)

	switch m.state {
	case StateIdle:
		switch {
		case held && (hasMain || extra == keys.ModNone):
			m.enterActive(ev, ts, extra)
		case held && !required.IsEmpty():
			m.cycle++
			m.suppress("extra modifier at entry")
		}

	case StateComboActive:
		switch {
		case !held:
			slog.Debug("[DEBUG-TRIGGER] combo released", "cycle", m.cycle, "heldFor", ev.Time.Sub(m.start))
			m.exitToIdle("released")
		case extra&^m.entryExtra != keys.ModNone:
			m.suppress("extra modifier")
		case ev.Phase == PhaseKeyDown && ev.HasKeyCode && !keys.IsModifierCode(ev.KeyCode) &&
			(!hasMain || ev.KeyCode != mainKey.Code):
			m.suppress("other key")
		case ev.Phase == PhaseFlagsChanged && mods == prevFlags:
			// Unchanged flags while active: the same modifier on the other
			// side of the keyboard went down, which counts as another press.
			m.repress(ev, ts)
		}

	case StateSuppressed:
		if !held {
			m.exitToIdle("released")
		}
	}
}

func (m *Machine) enterActive(ev Event, ts settings.TriggerSettings, extra keys.Modifier) {
	m.cycle++
	m.state = StateComboActive
	m.start = ev.Time
	m.entryExtra = extra
	slog.Debug("[DEBUG-TRIGGER] combo active", "cycle", m.cycle, "combo", ts.Combo.String(), "trigger", ts.Type.String())

	switch tt := ts.Type.(type) {
	case settings.Hold:
		m.scheduleHold(tt.Duration)
	case settings.Press, settings.AfterPress:
		m.repress(ev, ts)
	}
}

func (m *Machine) repress(ev Event, ts settings.TriggerSettings) {
	switch tt := ts.Type.(type) {
	case settings.Press:
		if m.countPress(ev.Time, tt.Count) {
			m.reveal(false)
		}
	case settings.AfterPress:
		if m.countPress(ev.Time, tt.Count) {
			m.toggleSticky()
		}
	}
}

func (m *Machine) toggleSticky() {
	if m.visible && m.sticky {
		m.hide("press sequence completed again")
		return
	}
	m.reveal(true)
}

// countPress records a press at t and reports whether the threshold was
// reached, resetting the counter when it was.
func (m *Machine) countPress(t time.Time, threshold int) bool {
	gap := t.Sub(m.lastPress)
	if m.pressCount > 0 && gap >= 0 && gap <= m.pressInterval {
		m.pressCount++
	} else {
		m.pressCount = 1
	}
	m.lastPress = t
	if m.pressCount >= threshold {
		m.pressCount = 0
		return true
	}
	return false
}

func (m *Machine) scheduleHold(d time.Duration) {
	m.cancelHold()
	cycle := m.cycle
	m.holdTimer = m.scheduler.AfterFunc(d, func() {
		m.post(func() { m.holdElapsed(cycle) })
	})
}

// holdElapsed re-validates state at fire time; the timer may have raced with
// a release or suppression that already ended the cycle.
func (m *Machine) holdElapsed(cycle uint64) {
	if m.state != StateComboActive || m.cycle != cycle {
		slog.Debug("[DEBUG-TRIGGER] stale hold timer ignored", "cycle", cycle, "current", m.cycle, "state", m.state.String())
		return
	}
	m.holdTimer = nil
	if !m.visible {
		m.reveal(false)
	}
}

func (m *Machine) cancelHold() {
	if m.holdTimer != nil {
		m.holdTimer.Stop()
		m.holdTimer = nil
	}
}

// suppress disqualifies the current cycle. Presses counted so far are
// dropped, and a sticky overlay survives only if an earlier cycle revealed it.
func (m *Machine) suppress(reason string) {
	m.cancelHold()
	m.state = StateSuppressed
	m.pressCount = 0
	if m.visible && (!m.sticky || m.revealCycle == m.cycle) {
		m.hide(reason)
	}
	slog.Debug("[DEBUG-TRIGGER] cycle suppressed", "cycle", m.cycle, "reason", reason)
}

func (m *Machine) exitToIdle(reason string) {
	m.cancelHold()
	m.state = StateIdle
	if m.visible && !m.sticky {
		m.hide(reason)
	}
}

func (m *Machine) reveal(sticky bool) {
	m.visible = true
	m.sticky = sticky
	m.revealCycle = m.cycle
	slog.Debug("[DEBUG-TRIGGER] reveal", "cycle", m.cycle, "sticky", sticky)
	if m.listener != nil {
		m.listener.Reveal()
	}
}

func (m *Machine) hide(reason string) {
	m.visible = false
	m.sticky = false
	slog.Debug("[DEBUG-TRIGGER] hide", "reason", reason)
	if m.listener != nil {
		m.listener.Hide()
	}
}

// isDuplicate reports whether ev was already processed or is older than the
// newest processed event. Events without a timestamp are only compared with
// the previous one.
func (m *Machine) isDuplicate(ev Event) bool {
	if m.recentLen == 0 {
		return false
	}
	if ev.Time.IsZero() {
		last := m.recent[(m.recentPos+recentEventWindow-1)%recentEventWindow]
		return last.sameAs(ev)
	}
	if ev.Time.Before(m.newest) {
		return true
	}
	for i := range m.recentLen {
		if m.recent[i].sameAs(ev) {
			return true
		}
	}
	return false
}

func (m *Machine) remember(ev Event) {
	m.recent[m.recentPos] = ev
	m.recentPos = (m.recentPos + 1) % recentEventWindow
	if m.recentLen < recentEventWindow {
		m.recentLen++
	}
	if ev.Time.After(m.newest) {
		m.newest = ev.Time
	}
}
