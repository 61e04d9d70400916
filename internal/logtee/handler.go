// Package logtee forwards warning and error log records to the overlay client
// while still writing every record to the base handler.
package logtee

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"time"
)

// Entry is the forwarded view of one log record. Attrs are flattened to
// strings, group-qualified with dots.
type Entry struct {
	Time    time.Time         `json:"time"`
	Level   string            `json:"level"`
	Message string            `json:"message"`
	Attrs   map[string]string `json:"attrs,omitempty"`
}

// Sink receives forwarded entries. It runs on the logging goroutine and must
// not log through the same handler.
type Sink func(Entry)

// Handler wraps a base handler and passes records at or above minLevel to
// sink. The base handler alone decides which records are enabled.
type Handler struct {
	base     slog.Handler
	sink     Sink
	minLevel slog.Level
	prefix   string
	attrs    []slog.Attr
}

// New returns a Handler. A nil sink turns it into a plain pass-through.
func New(base slog.Handler, minLevel slog.Level, sink Sink) *Handler {
	return &Handler{base: base, sink: sink, minLevel: minLevel}
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

// Handle writes to the base handler first; the sink sees the record even if
// that write failed.
func (h *Handler) Handle(ctx context.Context, record slog.Record) error {
	err := h.base.Handle(ctx, record)
	if h.sink == nil || record.Level < h.minLevel {
		return err
	}

	entry := Entry{
		Time:    record.Time,
		Level:   record.Level.String(),
		Message: record.Message,
	}
	if n := len(h.attrs) + record.NumAttrs(); n > 0 {
		entry.Attrs = make(map[string]string, n)
		for _, a := range h.attrs {
			flatten(entry.Attrs, "", a)
		}
		record.Attrs(func(a slog.Attr) bool {
			flatten(entry.Attrs, h.prefix, a)
			return true
		})
	}
	h.deliver(entry)
	return err
}

func (h *Handler) deliver(entry Entry) {
	defer func() {
		if r := recover(); r != nil {
			// stderr, not slog: logging here would re-enter this handler.
			fmt.Fprintf(os.Stderr, "[logtee] sink panicked: %v\n%s\n", r, debug.Stack())
		}
	}()
	h.sink(entry)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	next := *h
	next.base = h.base.WithAttrs(attrs)
	next.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	next.attrs = append(next.attrs, h.attrs...)
	for _, a := range attrs {
		if h.prefix != "" {
			a.Key = h.prefix + a.Key
		}
		next.attrs = append(next.attrs, a)
	}
	return &next
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.base = h.base.WithGroup(name)
	next.prefix = h.prefix + name + "."
	return &next
}

func flatten(dst map[string]string, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Value.Kind() == slog.KindGroup {
		groupPrefix := prefix
		if a.Key != "" {
			groupPrefix = prefix + a.Key + "."
		}
		for _, child := range a.Value.Group() {
			flatten(dst, groupPrefix, child)
		}
		return
	}
	if a.Key == "" {
		return
	}
	dst[prefix+a.Key] = a.Value.String()
}
