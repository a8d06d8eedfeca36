package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nerrad567/docbind/internal/infrastructure/config"
)

// ServiceName is attached to every log entry.
const ServiceName = "docbind"

// redacted replaces the value of sensitive attributes.
const redacted = "[REDACTED]"

// sensitiveKeys are attribute keys whose values are never written, at any
// nesting depth.
var sensitiveKeys = map[string]bool{
	"password": true,
	"secret":   true,
	"token":    true,
}

// Logger is the process logger. Every entry carries service and version,
// and values under sensitive keys are masked.
type Logger struct {
	*slog.Logger
}

// New builds the logger described by cfg, writing to stdout or stderr.
func New(cfg config.LoggingConfig, version string) *Logger {
	var w io.Writer = os.Stdout
	if strings.EqualFold(cfg.Output, "stderr") {
		w = os.Stderr
	}
	return NewWithWriter(cfg, version, w)
}

// NewWithWriter is New with an explicit destination; cfg.Output is ignored.
// Format "text" selects logfmt-style output, anything else JSON.
func NewWithWriter(cfg config.LoggingConfig, version string, w io.Writer) *Logger {
	opts := &slog.HandlerOptions{
		Level:       parseLevel(cfg.Level),
		ReplaceAttr: maskSensitive,
	}

	var h slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}

	return &Logger{slog.New(h).With("service", ServiceName, "version", version)}
}

// parseLevel accepts slog's level names in any case, plus "warning".
// Anything unrecognised is info.
func parseLevel(s string) slog.Level {
	if strings.EqualFold(s, "warning") {
		return slog.LevelWarn
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func maskSensitive(_ []string, a slog.Attr) slog.Attr {
	if sensitiveKeys[strings.ToLower(a.Key)] {
		return slog.String(a.Key, redacted)
	}
	return a
}

// With returns a child logger carrying args on every entry.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{l.Logger.With(args...)}
}

// Default is the startup logger used until the config file is loaded.
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json"}, "dev")
}
