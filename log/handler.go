// Package log routes slog records from a guest to its host.
//
// Each record is serialized to a LogMessageWire JSON document and published
// through the LOG register of the process environment. Level filtering
// happens in the guest, so filtered records never cost a register write.
package log

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime"
	"slices"

	"github.com/reglet-dev/zkguest/env"
)

// Handler implements slog.Handler on top of the LOG register.
type Handler struct {
	opts   handlerConfig
	attrs  []LogAttrWire
	prefix string
}

// HandlerOption configures the Handler.
type HandlerOption func(*handlerConfig)

type handlerConfig struct {
	level     slog.Level
	addSource bool
	publish   func(string)
}

func defaultHandlerConfig() handlerConfig {
	return handlerConfig{
		level:   slog.LevelInfo,
		publish: env.Log,
	}
}

// WithLevel sets the minimum log level to report.
// Records below this level will be filtered on the guest side.
func WithLevel(level slog.Level) HandlerOption {
	return func(c *handlerConfig) {
		c.level = level
	}
}

// WithSource enables reporting of source location (file:line).
func WithSource(enabled bool) HandlerOption {
	return func(c *handlerConfig) {
		c.addSource = enabled
	}
}

// WithEnv publishes through e instead of the process environment.
func WithEnv(e *env.Env) HandlerOption {
	return func(c *handlerConfig) {
		c.publish = e.Log
	}
}

// NewHandler creates a Handler with the given options.
func NewHandler(opts ...HandlerOption) *Handler {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Handler{opts: cfg}
}

// Install makes a Handler the slog default and returns its logger.
func Install(opts ...HandlerOption) *slog.Logger {
	logger := slog.New(NewHandler(opts...))
	slog.SetDefault(logger)
	return logger
}

// Enabled reports whether the handler handles records at the given level.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.level
}

// Handle serializes record and publishes it.
func (h *Handler) Handle(_ context.Context, record slog.Record) error {
	msg := LogMessageWire{
		Timestamp: record.Time,
		Level:     record.Level.String(),
		Message:   record.Message,
		Attrs:     slices.Clip(h.attrs),
	}
	if h.opts.addSource && record.PC != 0 {
		frames := runtime.CallersFrames([]uintptr{record.PC})
		f, _ := frames.Next()
		msg.Source = fmt.Sprintf("%s:%d", f.File, f.Line)
	}
	record.Attrs(func(a slog.Attr) bool {
		msg.Attrs = appendAttrWire(msg.Attrs, h.prefix, a)
		return true
	})

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("log: marshal record: %w", err)
	}
	h.opts.publish(string(data))
	return nil
}

// WithAttrs returns a handler that adds attrs to every record.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	next := *h
	next.attrs = slices.Clip(h.attrs)
	for _, a := range attrs {
		next.attrs = appendAttrWire(next.attrs, h.prefix, a)
	}
	return &next
}

// WithGroup returns a handler that qualifies later attribute keys with name.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	if h.prefix == "" {
		next.prefix = name
	} else {
		next.prefix = h.prefix + "." + name
	}
	return &next
}
