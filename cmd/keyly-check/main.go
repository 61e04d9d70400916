// Command keyly-check loads a keyly config directory offline, reports every
// warning and prints the shortcuts that would be shown for an application.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"keyly/internal/resolver"
	"keyly/internal/settings"
	"keyly/internal/sheets"
)

const (
	exitOK       = 0
	exitWarnings = 1
	exitUsage    = 2
)

type cliOptions struct {
	dir           string
	appID         string
	extractedPath string
	format        string
	search        string
	strict        bool
	writeExample  bool
	verbose       bool
}

func parseArgs(args []string, stderr io.Writer) (cliOptions, error) {
	fs := flag.NewFlagSet("keyly-check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var opts cliOptions
	fs.StringVar(&opts.dir, "dir", "", "config directory (default $XDG_CONFIG_HOME/keyly)")
	fs.StringVar(&opts.appID, "app", "", "bundle identifier or application path to resolve")
	fs.StringVar(&opts.extractedPath, "extracted", "", "YAML or JSON file with OS-extracted shortcuts")
	fs.StringVar(&opts.format, "format", "yaml", "output format: yaml or json")
	fs.StringVar(&opts.search, "search", "", "filter resolved shortcuts")
	fs.BoolVar(&opts.strict, "strict", false, "exit 1 when any warning was reported")
	fs.BoolVar(&opts.writeExample, "write-example", false, "write "+sheets.ExampleFileName+" into the config directory first")
	fs.BoolVar(&opts.verbose, "v", false, "debug logging on stderr")
	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}
	if fs.NArg() > 0 {
		return cliOptions{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	opts.format = strings.ToLower(strings.TrimSpace(opts.format))
	if opts.format != "yaml" && opts.format != "json" {
		return cliOptions{}, fmt.Errorf("unsupported -format %q", opts.format)
	}
	if opts.dir == "" {
		opts.dir = settings.DefaultDir()
	}
	return opts, nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseArgs(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintln(stderr, "keyly-check:", err)
		return exitUsage
	}

	level := slog.LevelError
	if opts.verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})))

	if opts.writeExample {
		path, created, err := sheets.WriteExample(opts.dir)
		if err != nil {
			fmt.Fprintln(stderr, "keyly-check:", err)
			return exitUsage
		}
		if created {
			fmt.Fprintln(stderr, "wrote", path)
		}
	}

	var extracted []sheets.ExtractedShortcut
	if opts.extractedPath != "" {
		extracted, err = readExtracted(opts.extractedPath)
		if err != nil {
			fmt.Fprintln(stderr, "keyly-check:", err)
			return exitUsage
		}
	}

	rep := buildReport(opts, extracted)
	if err := writeReport(stdout, opts.format, rep); err != nil {
		fmt.Fprintln(stderr, "keyly-check:", err)
		return exitUsage
	}
	if opts.strict && len(rep.Warnings) > 0 {
		return exitWarnings
	}
	return exitOK
}

// readExtracted accepts YAML or JSON; JSON is valid YAML.
func readExtracted(path string) ([]sheets.ExtractedShortcut, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read extracted shortcuts: %w", err)
	}
	var out []sheets.ExtractedShortcut
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse extracted shortcuts %s: %w", filepath.Base(path), err)
	}
	return out, nil
}

func buildReport(opts cliOptions, extracted []sheets.ExtractedShortcut) report {
	cfg, settingWarnings := settings.NewStore(filepath.Join(opts.dir, settings.FileName)).Reload()
	lib := sheets.NewRepository().LoadAll(opts.dir)

	rep := report{
		Dir:      opts.dir,
		Settings: newSettingsReport(cfg),
		Global:   len(lib.Global.Entries),
	}
	for _, w := range settingWarnings {
		rep.Warnings = append(rep.Warnings, w.String())
	}
	for _, w := range lib.Warnings {
		rep.Warnings = append(rep.Warnings, w.String())
	}
	for _, s := range lib.Sheets {
		rep.Sheets = append(rep.Sheets, sheetReport{
			Name:        s.Name,
			App:         s.AppPath,
			AppID:       s.AppID,
			Source:      filepath.Base(s.Source),
			Entries:     len(s.Entries),
			HideDefault: s.HideDefaultShortcuts,
		})
	}

	if opts.appID != "" || len(extracted) > 0 {
		res := resolver.Resolve(&lib, opts.appID, sheets.ParseExtracted(extracted))
		if opts.search != "" {
			res = resolver.Filter(res, opts.search)
		}
		rep.Resolved = newResolvedReport(res, opts.search)
	}
	return rep
}

func writeReport(w io.Writer, format string, rep report) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(rep)
	default:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rep); err != nil {
			return err
		}
		return enc.Close()
	}
}
