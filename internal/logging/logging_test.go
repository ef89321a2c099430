package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"invalid", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.input))
		})
	}
}

func TestSetup_FileReceivesRecords(t *testing.T) {
	var fileBuf bytes.Buffer
	m := NewManager()
	m.Setup(&fileBuf, "info")
	m.Logger().Info("hello file")

	assert.Contains(t, fileBuf.String(), "hello file")
}

func TestSetup_InfoLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	m := NewManager()
	m.Setup(&buf, "info")

	m.Logger().Debug("should be filtered")
	m.Logger().Info("should appear")

	output := buf.String()
	assert.NotContains(t, output, "should be filtered")
	assert.Contains(t, output, "should appear")
}

func TestSetup_ReplacesLogger(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	m := NewManager()

	m.Setup(&buf1, "info")
	m.Logger().Info("first")

	m.Setup(&buf2, "info")
	m.Logger().Info("second")

	assert.Contains(t, buf1.String(), "first")
	assert.NotContains(t, buf1.String(), "second")
	assert.Contains(t, buf2.String(), "second")
}

func TestLogger_DefaultBeforeSetup(t *testing.T) {
	m := NewManager()
	assert.Equal(t, slog.Default(), m.Logger())
}

func TestWriteLog_AllLevels(t *testing.T) {
	levels := []string{"debug", "info", "warn", "error", "unknown"}

	for _, level := range levels {
		t.Run(level, func(t *testing.T) {
			var buf bytes.Buffer
			m := NewManager()
			m.Setup(&buf, "debug")

			m.WriteLog("probe", level+" message", level)

			output := buf.String()
			assert.Contains(t, output, level+" message")
			assert.Contains(t, output, "probe")
		})
	}
}

func TestWriteLog_NilLogger(t *testing.T) {
	m := NewManager()
	m.WriteLog("probe", "data", "info")
}

func TestMultiHandler_FansOut(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	h1 := slog.NewTextHandler(&buf1, &slog.HandlerOptions{Level: slog.LevelInfo})
	h2 := slog.NewTextHandler(&buf2, &slog.HandlerOptions{Level: slog.LevelInfo})

	logger := slog.New(NewMultiHandler(h1, h2))
	logger.Info("fanned out")

	assert.Contains(t, buf1.String(), "fanned out")
	assert.Contains(t, buf2.String(), "fanned out")
}

func TestMultiHandler_FiltersNilHandlers(t *testing.T) {
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, nil)

	multi := NewMultiHandler(nil, h, nil)
	require.Len(t, multi.handlers, 1)
}

func TestMultiHandler_Enabled(t *testing.T) {
	infoHandler := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelInfo})
	debugHandler := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelDebug})

	infoOnly := NewMultiHandler(infoHandler)
	assert.False(t, infoOnly.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, infoOnly.Enabled(context.Background(), slog.LevelInfo))

	both := NewMultiHandler(infoHandler, debugHandler)
	assert.True(t, both.Enabled(context.Background(), slog.LevelDebug))
}

// errorHandler always fails Handle; the sibling sink must still receive the
// record.
type errorHandler struct {
	slog.Handler
}

func (h *errorHandler) Handle(_ context.Context, _ slog.Record) error {
	return errors.New("handler error")
}

func (h *errorHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

func TestMultiHandler_SinkErrorDoesNotSilenceOthers(t *testing.T) {
	var buf bytes.Buffer
	spy := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})

	logger := slog.New(NewMultiHandler(&errorHandler{}, spy))
	logger.Info("should reach spy")

	assert.Contains(t, buf.String(), "should reach spy")
}

func TestContextHandler_AddsDynamicAttrs(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})

	active := "qr-anchor-1"
	h := NewContextHandler(inner, func() []slog.Attr {
		return []slog.Attr{slog.String("active", active)}
	})

	logger := slog.New(h)
	logger.Info("pass complete")
	active = "qr-anchor-2"
	logger.Info("pass complete")

	output := buf.String()
	assert.Contains(t, output, "active=qr-anchor-1")
	assert.Contains(t, output, "active=qr-anchor-2")
}

func TestContextHandler_NilProvider(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewTextHandler(&buf, nil)

	logger := slog.New(NewContextHandler(inner, nil))
	logger.Info("still works")

	assert.Contains(t, buf.String(), "still works")
}

// captureSender records GELF messages instead of sending them.
type captureSender struct {
	messages []*gelf.Message
	err      error
}

func (c *captureSender) WriteMessage(m *gelf.Message) error {
	c.messages = append(c.messages, m)
	return c.err
}

func newTestGelfHandler(sender gelfSender, level slog.Level) *GelfHandler {
	return &GelfHandler{sender: sender, host: "testhost", level: level}
}

func TestGelfHandler_MapsRecord(t *testing.T) {
	sender := &captureSender{}
	h := newTestGelfHandler(sender, slog.LevelInfo)

	logger := slog.New(h)
	logger.Warn("marker lost", "identity", "qr-anchor-1")

	require.Len(t, sender.messages, 1)
	msg := sender.messages[0]
	assert.Equal(t, "1.1", msg.Version)
	assert.Equal(t, "testhost", msg.Host)
	assert.Equal(t, "marker lost", msg.Short)
	assert.Equal(t, int32(gelfLevelWarn), msg.Level)
	assert.Equal(t, "qr-anchor-1", msg.Extra["_identity"])
}

func TestGelfHandler_LevelFilter(t *testing.T) {
	sender := &captureSender{}
	h := newTestGelfHandler(sender, slog.LevelWarn)

	logger := slog.New(h)
	logger.Info("below threshold")
	logger.Error("above threshold")

	require.Len(t, sender.messages, 1)
	assert.Equal(t, "above threshold", sender.messages[0].Short)
}

func TestGelfHandler_WithAttrsCarriesOver(t *testing.T) {
	sender := &captureSender{}
	h := newTestGelfHandler(sender, slog.LevelInfo)

	logger := slog.New(h).With("session", "abc123")
	logger.Info("spawned")

	require.Len(t, sender.messages, 1)
	assert.Equal(t, "abc123", sender.messages[0].Extra["_session"])
}

func TestGelfHandler_SendErrorIsSwallowed(t *testing.T) {
	sender := &captureSender{err: errors.New("graylog down")}
	h := newTestGelfHandler(sender, slog.LevelInfo)

	err := h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "msg", 0))
	assert.NoError(t, err)
}

func TestGelfLevelMapping(t *testing.T) {
	tests := []struct {
		level slog.Level
		want  int32
	}{
		{slog.LevelDebug, gelfLevelDebug},
		{slog.LevelInfo, gelfLevelInfo},
		{slog.LevelWarn, gelfLevelWarn},
		{slog.LevelError, gelfLevelError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, gelfLevel(tt.level))
	}
}

func TestDispatcherLogger_Fields(t *testing.T) {
	fields := toFields([]any{"key", "value", "n", 3})
	assert.Equal(t, "value", fields["key"])
	assert.Equal(t, 3, fields["n"])

	// Odd trailing element and non-string keys are dropped.
	fields = toFields([]any{"key", "value", 42, "x", "dangling"})
	assert.Len(t, fields, 1)
}
