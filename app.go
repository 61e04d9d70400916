package main

import (
	"errors"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"keyly/internal/configstore"
	"keyly/internal/overlay"
	"keyly/internal/resolver"
	"keyly/internal/settings"
	"keyly/internal/sheets"
	"keyly/internal/trigger"
	"keyly/internal/watcher"
)

// overlayClient is the part of overlay.Hub the app drives.
type overlayClient interface {
	SendReveal(msg overlay.RevealMessage) error
	SendHide() error
}

// App wires the trigger loop, the config snapshot service and the overlay
// helper connection together. It is the trigger loop's Listener and the
// hub's inbound Handler.
type App struct {
	opts        options
	baseHandler slog.Handler

	// Lock ordering (outer -> inner):
	//   overlayMu -> focusMu
	//
	// overlayMu also serializes outbound reveal/hide so a late re-send can
	// never follow a hide.
	overlayMu sync.Mutex
	visible   bool
	query     string

	focusMu   sync.RWMutex
	appID     string
	extracted []sheets.Entry

	svc     *configstore.Service
	client  overlayClient
	hub     *overlay.Hub
	loop    *trigger.Loop
	watcher *watcher.Watcher

	bgWG         sync.WaitGroup
	cancel       func()
	shuttingDown atomic.Bool
}

// NewApp creates an App. Nothing runs until startup.
func NewApp(opts options, baseHandler slog.Handler) *App {
	return &App{opts: opts, baseHandler: baseHandler}
}

// Reveal is called on the trigger loop when the combo fires.
func (a *App) Reveal() {
	a.overlayMu.Lock()
	defer a.overlayMu.Unlock()
	a.visible = true
	a.query = ""
	a.sendRevealLocked("trigger")
}

// Hide is called on the trigger loop when the overlay should go away.
func (a *App) Hide() {
	a.overlayMu.Lock()
	defer a.overlayMu.Unlock()
	a.visible = false
	a.query = ""
	if a.client == nil {
		return
	}
	if err := a.client.SendHide(); err != nil {
		a.logSendError("hide", err)
	}
}

// HandleKey feeds a tapped event into the trigger loop.
func (a *App) HandleKey(msg overlay.KeyMessage) {
	if a.loop == nil {
		return
	}
	a.loop.Submit(msg.Event)
}

// HandleFocus records the frontmost application. An open overlay is redrawn
// for the new application.
func (a *App) HandleFocus(msg overlay.FocusMessage) {
	extracted := sheets.ParseExtracted(msg.Extracted)

	a.overlayMu.Lock()
	defer a.overlayMu.Unlock()
	a.focusMu.Lock()
	a.appID = msg.AppID
	a.extracted = extracted
	a.focusMu.Unlock()
	slog.Debug("[DEBUG-APP] focus changed", "appId", msg.AppID, "extracted", len(extracted))

	if a.visible {
		a.query = ""
		a.sendRevealLocked("focus")
	}
}

// HandleSearch filters the open overlay. It is ignored while hidden.
func (a *App) HandleSearch(msg overlay.SearchMessage) {
	a.overlayMu.Lock()
	defer a.overlayMu.Unlock()
	if !a.visible {
		return
	}
	a.query = msg.Query
	a.sendRevealLocked("search")
}

// handleReload re-sends the open overlay against the new snapshot.
func (a *App) handleReload(snap *configstore.Snapshot) {
	a.overlayMu.Lock()
	defer a.overlayMu.Unlock()
	if !a.visible {
		return
	}
	a.sendRevealLocked("reload", snap)
}

// handleConnect restores the overlay for a helper that reconnected while it
// was open.
func (a *App) handleConnect() {
	a.overlayMu.Lock()
	defer a.overlayMu.Unlock()
	if a.visible {
		a.sendRevealLocked("reconnect")
	}
}

func (a *App) focus() (string, []sheets.Entry) {
	a.focusMu.RLock()
	defer a.focusMu.RUnlock()
	return a.appID, slices.Clone(a.extracted)
}

// revealMessage resolves against a single snapshot so entries and the width
// ratio always come from the same load.
func (a *App) revealMessage(snap *configstore.Snapshot, query string) overlay.RevealMessage {
	appID, extracted := a.focus()
	res := snap.Resolve(appID, extracted)
	if query != "" {
		res = resolver.Filter(res, query)
	}
	ratio := settings.DefaultScreenWidthRatio
	if snap != nil {
		ratio = snap.Settings.ScreenWidthRatio
	}
	return overlay.NewReveal(res, ratio, query)
}

// sendRevealLocked requires overlayMu. An explicit snapshot wins over the
// service's current one.
func (a *App) sendRevealLocked(reason string, snap ...*configstore.Snapshot) {
	if a.client == nil {
		return
	}
	var current *configstore.Snapshot
	if len(snap) > 0 {
		current = snap[0]
	} else if a.svc != nil {
		current = a.svc.Current()
	}
	msg := a.revealMessage(current, a.query)
	slog.Debug("[DEBUG-APP] reveal", "reason", reason, "appId", msg.AppID, "entries", len(msg.Entries))
	if err := a.client.SendReveal(msg); err != nil {
		a.logSendError("reveal", err)
	}
}

func (a *App) logSendError(what string, err error) {
	if errors.Is(err, overlay.ErrNoClient) {
		slog.Debug("[DEBUG-APP] overlay helper not connected", "message", what)
		return
	}
	// Debug only: a warning would be forwarded to the same failing client.
	slog.Debug("[DEBUG-APP] overlay send failed", "message", what, "error", err)
}
