// Package logging wires the process-wide slog pipeline: console plus log
// file, with optional GELF shipping to Graylog. A zerolog adapter bridges the
// dispatcher's Logger interface onto the same sinks.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Manager owns the configured slog pipeline.
type Manager struct {
	logger *slog.Logger
}

// NewManager creates an empty logging manager; call Setup before use.
func NewManager() *Manager {
	return &Manager{}
}

// parseLevel converts a string log level to slog.Level, defaulting to Info.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup initializes the pipeline: console always, file when non-nil, plus any
// extra handlers (GELF, context wrappers). Timestamps are RFC3339 UTC on
// every sink.
func (m *Manager) Setup(file io.Writer, level string, extra ...slog.Handler) {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}

	handlers := []slog.Handler{slog.NewTextHandler(os.Stdout, opts)}
	if file != nil {
		handlers = append(handlers, slog.NewTextHandler(file, opts))
	}
	handlers = append(handlers, extra...)

	m.logger = slog.New(NewMultiHandler(handlers...))
	m.logger.Info("Logging initialized", "level", level)
}

// Logger returns the configured logger, or slog.Default before Setup.
func (m *Manager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// WriteLog logs a pre-formatted line attributed to a named component at the
// given textual level. Used by collaborators that report through a plain
// string interface rather than structured calls.
func (m *Manager) WriteLog(component, data, level string) {
	if m.logger == nil {
		return
	}
	switch parseLevel(level) {
	case slog.LevelDebug:
		m.logger.Debug(data, "component", component)
	case slog.LevelWarn:
		m.logger.Warn(data, "component", component)
	case slog.LevelError:
		m.logger.Error(data, "component", component)
	default:
		m.logger.Info(data, "component", component)
	}
}
