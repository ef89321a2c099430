package logging

import (
	"context"
	"log/slog"
	"os"

	"github.com/Graylog2/go-gelf/gelf"
)

// syslog severities per the GELF spec.
const (
	gelfLevelError = 3
	gelfLevelWarn  = 4
	gelfLevelInfo  = 6
	gelfLevelDebug = 7
)

// gelfSender is the part of *gelf.Writer the handler needs; an interface so
// tests can capture messages without a Graylog endpoint.
type gelfSender interface {
	WriteMessage(*gelf.Message) error
}

// GelfHandler ships slog records to Graylog as GELF messages over UDP.
// Delivery is best-effort: send errors are dropped, the console and file
// sinks remain authoritative.
type GelfHandler struct {
	sender gelfSender
	host   string
	level  slog.Level
	attrs  []slog.Attr
	group  string
}

// NewGelfHandler dials the Graylog address and returns a handler emitting
// records at or above level.
func NewGelfHandler(addr, level string) (*GelfHandler, error) {
	w, err := gelf.NewWriter(addr)
	if err != nil {
		return nil, err
	}
	w.Facility = "qrstage"
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return &GelfHandler{sender: w, host: host, level: parseLevel(level)}, nil
}

func (h *GelfHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *GelfHandler) Handle(_ context.Context, r slog.Record) error {
	extra := make(map[string]interface{}, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		extra[h.extraKey(a.Key)] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		extra[h.extraKey(a.Key)] = a.Value.Any()
		return true
	})

	// Errors are intentionally dropped; GELF is a best-effort mirror.
	_ = h.sender.WriteMessage(&gelf.Message{
		Version:  "1.1",
		Host:     h.host,
		Short:    r.Message,
		TimeUnix: float64(r.Time.UnixNano()) / 1e9,
		Level:    gelfLevel(r.Level),
		Extra:    extra,
	})
	return nil
}

func (h *GelfHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

func (h *GelfHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	if h.group != "" {
		clone.group = h.group + "." + name
	} else {
		clone.group = name
	}
	return &clone
}

// extraKey maps an attribute key to a GELF additional field, which must start
// with an underscore.
func (h *GelfHandler) extraKey(key string) string {
	if h.group != "" {
		key = h.group + "." + key
	}
	return "_" + key
}

func gelfLevel(level slog.Level) int32 {
	switch {
	case level >= slog.LevelError:
		return gelfLevelError
	case level >= slog.LevelWarn:
		return gelfLevelWarn
	case level >= slog.LevelInfo:
		return gelfLevelInfo
	default:
		return gelfLevelDebug
	}
}
