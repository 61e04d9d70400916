// Package configstore owns the immutable configuration snapshot shared by the
// trigger loop and the resolver, and rebuilds it on change notifications.
package configstore

import (
	"context"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bep/debounce"
	"github.com/google/uuid"

	"keyly/internal/resolver"
	"keyly/internal/settings"
	"keyly/internal/sheets"
	"keyly/internal/workerutil"
)

// DefaultDebounce is the minimum spacing between reloads triggered by
// change notifications.
const DefaultDebounce = 500 * time.Millisecond

// Snapshot is one consistent view of settings and definitions. It is never
// mutated after it has been published.
type Snapshot struct {
	ID       uuid.UUID
	LoadedAt time.Time
	Settings settings.Settings
	Library  sheets.Library
}

// TriggerSettings returns the snapshot's trigger settings, or the defaults
// when they are unusable.
func (s *Snapshot) TriggerSettings() settings.TriggerSettings {
	if s == nil {
		return settings.DefaultTriggerSettings()
	}
	return s.Settings.Trigger.OrDefault()
}

// Resolve resolves shortcuts for appID against this snapshot only.
func (s *Snapshot) Resolve(appID string, extracted []sheets.Entry) resolver.Result {
	if s == nil {
		return resolver.Resolve(nil, appID, extracted)
	}
	return resolver.Resolve(&s.Library, appID, extracted)
}

// Service loads the config directory into snapshots and swaps them in
// atomically.
type Service struct {
	dir      string
	settings *settings.Store
	repo     *sheets.Repository
	now      func() time.Time

	current   atomic.Pointer[Snapshot]
	reloadMu  sync.Mutex
	debounced func(f func())
	reloadCh  chan struct{}

	subMu       sync.Mutex
	subscribers []func(*Snapshot)
}

// Option configures a Service.
type Option func(*Service)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.debounced = debounce.New(d)
		}
	}
}

// WithRepository overrides the definition repository.
func WithRepository(repo *sheets.Repository) Option {
	return func(s *Service) {
		if repo != nil {
			s.repo = repo
		}
	}
}

// New creates a service for dir and loads the first snapshot synchronously,
// so Current never returns nil.
func New(dir string, opts ...Option) *Service {
	s := &Service{
		dir:       dir,
		settings:  settings.NewStore(filepath.Join(dir, settings.FileName)),
		repo:      sheets.NewRepository(),
		now:       time.Now,
		debounced: debounce.New(DefaultDebounce),
		reloadCh:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Reload()
	return s
}

// Dir returns the watched configuration directory.
func (s *Service) Dir() string { return s.dir }

// Current returns the latest published snapshot.
func (s *Service) Current() *Snapshot {
	return s.current.Load()
}

// TriggerSettings returns the current trigger settings with default fallback.
func (s *Service) TriggerSettings() settings.TriggerSettings {
	return s.Current().TriggerSettings()
}

// Resolve resolves shortcuts against the current snapshot.
func (s *Service) Resolve(appID string, extracted []sheets.Entry) resolver.Result {
	return s.Current().Resolve(appID, extracted)
}

// Subscribe registers fn to run after every published reload. fn runs on the
// reloading goroutine and must not block.
func (s *Service) Subscribe(fn func(*Snapshot)) {
	if fn == nil {
		return
	}
	s.subMu.Lock()
	s.subscribers = append(s.subscribers, fn)
	s.subMu.Unlock()
}

// Reload rebuilds the whole snapshot from disk and publishes it. Concurrent
// reloads are serialized; the last one to finish wins.
func (s *Service) Reload() *Snapshot {
	s.reloadMu.Lock()
	loaded, _ := s.settings.Reload()
	snap := &Snapshot{
		ID:       uuid.New(),
		LoadedAt: s.now(),
		Settings: loaded,
		Library:  s.repo.LoadAll(s.dir),
	}
	s.current.Store(snap)
	s.reloadMu.Unlock()

	slog.Info("[INFO-CONFIG] configuration loaded",
		"dir", s.dir,
		"snapshot", snap.ID,
		"trigger", snap.Settings.Trigger.Type.String(),
		"combo", snap.Settings.Trigger.Combo.String(),
		"sheets", len(snap.Library.Sheets),
		"warnings", len(snap.Library.Warnings),
	)

	s.subMu.Lock()
	subs := slices.Clone(s.subscribers)
	s.subMu.Unlock()
	for _, fn := range subs {
		fn(snap)
	}
	return snap
}

// OnChange is the change-notification entry point. Bursts are collapsed by
// the debouncer; the reload itself runs on the worker started by Start.
func (s *Service) OnChange() {
	s.debounced(s.requestReload)
}

func (s *Service) requestReload() {
	select {
	case s.reloadCh <- struct{}{}:
	default:
		// a reload is already queued
	}
}

// Start launches the background reload worker.
func (s *Service) Start(ctx context.Context, wg *sync.WaitGroup) {
	workerutil.RunWithPanicRecovery(ctx, "config-reload", wg, s.runReloads, workerutil.RecoveryOptions{})
}

func (s *Service) runReloads(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.reloadCh:
			s.Reload()
		}
	}
}
