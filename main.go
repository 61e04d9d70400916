package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"keyly/internal/settings"
	"keyly/internal/singleinstance"
)

// options are the daemon's command-line settings. Everything else is read
// from the watched config directory.
type options struct {
	dir      string
	addr     string
	logLevel slog.Level
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("keyly", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dir := fs.String("dir", "", "config directory (default $XDG_CONFIG_HOME/keyly)")
	addr := fs.String("addr", "127.0.0.1:0", "listen address for the overlay helper")
	level := fs.String("log-level", "info", "log level: debug, info, warn, error")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	opts := options{dir: strings.TrimSpace(*dir), addr: strings.TrimSpace(*addr)}
	if opts.dir == "" {
		opts.dir = settings.DefaultDir()
	}
	if err := opts.logLevel.UnmarshalText([]byte(*level)); err != nil {
		return options{}, fmt.Errorf("invalid -log-level %q: %w", *level, err)
	}
	return opts, nil
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	opts, err := parseFlags(args, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	base := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: opts.logLevel})
	slog.SetDefault(slog.New(base))

	lock, err := singleinstance.TryLock(singleinstance.DefaultName())
	if errors.Is(err, singleinstance.ErrAlreadyRunning) {
		slog.Info("[DEBUG-SINGLE] another instance is already running")
		return 1
	}
	if err != nil {
		slog.Warn("[DEBUG-SINGLE] lock failed, proceeding without single-instance guard", "error", err)
	}
	defer func() {
		if releaseErr := lock.Release(); releaseErr != nil {
			slog.Warn("[DEBUG-SINGLE] lock release failed", "error", releaseErr)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := NewApp(opts, base)
	if err := app.startup(ctx); err != nil {
		slog.Error("[DEBUG-APP] startup failed", "error", err)
		return 1
	}
	<-ctx.Done()
	slog.Info("[DEBUG-APP] shutting down")
	if err := app.shutdown(); err != nil {
		slog.Warn("[DEBUG-APP] shutdown finished with errors", "error", err)
	}
	return 0
}
