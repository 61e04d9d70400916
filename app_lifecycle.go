package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"keyly/internal/configstore"
	"keyly/internal/logtee"
	"keyly/internal/overlay"
	"keyly/internal/sheets"
	"keyly/internal/trigger"
	"keyly/internal/watcher"
	"keyly/internal/workerutil"
)

const shutdownWaitTimeout = 10 * time.Second

var newWatcherFn = watcher.New

func (a *App) startup(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	a.cancel = cancel

	dir := a.opts.dir
	_, statErr := os.Stat(dir)
	firstRun := errors.Is(statErr, os.ErrNotExist)

	a.svc = configstore.New(dir)
	if firstRun {
		a.bootstrapExample(dir)
	}

	// Everything the hub's read goroutine touches is set before Start.
	a.loop = trigger.NewLoop(a.svc, a)
	a.hub = overlay.NewHub(overlay.HubOptions{Addr: a.opts.addr, OnConnect: a.handleConnect}, a)
	a.client = a.hub
	if err := a.hub.Start(ctx); err != nil {
		cancel()
		return fmt.Errorf("start overlay hub: %w", err)
	}
	if a.baseHandler != nil {
		slog.SetDefault(slog.New(logtee.New(a.baseHandler, slog.LevelWarn, a.hub.SendLog)))
	}

	recovery := workerutil.RecoveryOptions{IsShutdown: a.shuttingDown.Load}

	workerutil.RunWithPanicRecovery(ctx, "trigger-loop", &a.bgWG, a.loop.Run, recovery)

	a.svc.Subscribe(a.handleReload)
	a.svc.Start(ctx, &a.bgWG)

	w, err := newWatcherFn(dir, a.svc.OnChange)
	if err != nil {
		// Non-fatal: the daemon keeps the startup snapshot.
		slog.Warn("[WARN-WATCH] config watcher unavailable, hot reload disabled", "dir", dir, "error", err)
	} else {
		a.watcher = w
		workerutil.RunWithPanicRecovery(ctx, "config-watcher", &a.bgWG, w.Run, recovery)
	}

	snap := a.svc.Current()
	slog.Info("[DEBUG-APP] keyly started",
		"dir", dir,
		"url", a.hub.URL(),
		"trigger", snap.TriggerSettings().Combo.String(),
		"triggerType", snap.TriggerSettings().Type.String(),
		"sheets", len(snap.Library.Sheets),
	)
	return nil
}

func (a *App) bootstrapExample(dir string) {
	path, created, err := sheets.WriteExample(dir)
	if err != nil {
		slog.Warn("[WARN-SHEETS] failed to write example sheet", "dir", dir, "error", err)
		return
	}
	if created {
		slog.Info("[INFO-CONFIG] example sheet written", "path", path)
		a.svc.Reload()
	}
}

func (a *App) shutdown() error {
	a.shuttingDown.Store(true)
	if a.cancel != nil {
		a.cancel()
	}

	var errs []error
	if a.watcher != nil {
		if err := a.watcher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close watcher: %w", err))
		}
	}
	if a.hub != nil {
		// Drop log forwarding before the hub goes away.
		if a.baseHandler != nil {
			slog.SetDefault(slog.New(a.baseHandler))
		}
		if err := a.hub.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	if !waitWithTimeout(a.bgWG.Wait, shutdownWaitTimeout) {
		errs = append(errs, errors.New("timed out waiting for background workers"))
	}
	return errors.Join(errs...)
}

func waitWithTimeout(waitFn func(), timeout time.Duration) bool {
	// The waiting goroutine may outlive timeout; this only runs at process exit.
	done := make(chan struct{})
	go func() {
		waitFn()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}
