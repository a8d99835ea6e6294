// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// decodeLine parses the single JSON line written to buf.
func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	return line
}

func TestAppendCtx(t *testing.T) {
	ctx := AppendCtx(context.Background(), slog.String("delivery_id", "msg_1"))
	ctx = AppendCtx(ctx, slog.String("owner_id", "user-1"))

	attrs, ok := ctx.Value(slogFields).([]slog.Attr)
	require.True(t, ok)
	require.Len(t, attrs, 2)
	assert.Equal(t, "delivery_id", attrs[0].Key)
	assert.Equal(t, "user-1", attrs[1].Value.String())
}

func TestAppendCtx_NilParent(t *testing.T) {
	//nolint:staticcheck // a nil parent is tolerated
	ctx := AppendCtx(nil, slog.String("provider", "zoom"))

	attrs, ok := ctx.Value(slogFields).([]slog.Attr)
	require.True(t, ok)
	assert.Equal(t, []slog.Attr{slog.String("provider", "zoom")}, attrs)
}

func TestAppendCtx_DoesNotLeakIntoSiblings(t *testing.T) {
	parent := AppendCtx(context.Background(), slog.String("provider", "fathom"))
	first := AppendCtx(parent, slog.String("record_uid", "a"))
	second := AppendCtx(parent, slog.String("record_uid", "b"))

	parentAttrs := parent.Value(slogFields).([]slog.Attr)
	firstAttrs := first.Value(slogFields).([]slog.Attr)
	secondAttrs := second.Value(slogFields).([]slog.Attr)

	assert.Len(t, parentAttrs, 1)
	assert.Equal(t, "a", firstAttrs[1].Value.String())
	assert.Equal(t, "b", secondAttrs[1].Value.String())
}

func TestContextHandler_AddsContextAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(contextHandler{newHandler(&buf, nil)})

	ctx := AppendCtx(context.Background(), slog.String("delivery_id", "msg_1"))
	logger.InfoContext(ctx, "delivery accepted", "provider", "fathom")

	line := decodeLine(t, &buf)
	assert.Equal(t, "delivery accepted", line["msg"])
	assert.Equal(t, "msg_1", line["delivery_id"])
	assert.Equal(t, "fathom", line["provider"])
	assert.NotContains(t, line, "trace_id")
}

func TestHandler_AddsTraceAndSpanIDs(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx, span := tp.Tracer("ingest-test").Start(context.Background(), "process delivery")
	defer span.End()

	var buf bytes.Buffer
	logger := slog.New(contextHandler{newHandler(&buf, nil)})
	logger.InfoContext(AppendCtx(ctx, slog.String("delivery_id", "msg_1")), "record stored")

	line := decodeLine(t, &buf)
	assert.Equal(t, span.SpanContext().TraceID().String(), line["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), line["span_id"])
	assert.Equal(t, "msg_1", line["delivery_id"])
}

func TestLevelFromEnv(t *testing.T) {
	tests := []struct {
		value string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", logLevelDefault},
		{"verbose", logLevelDefault},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, levelFromEnv(tt.value))
		})
	}
}

func TestHandler_HonorsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newHandler(&buf, &slog.HandlerOptions{Level: levelFromEnv("warn")}))

	logger.Info("skipped")
	assert.Zero(t, buf.Len())

	logger.Warn("delivery rejected", ErrKey, "bad signature")
	line := decodeLine(t, &buf)
	assert.Equal(t, "WARN", line["level"])
	assert.Equal(t, "bad signature", line[ErrKey])
}

func TestInitStructureLogConfig(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LOG_ADD_SOURCE", "t")

	h := InitStructureLogConfig()
	require.NotNil(t, h)
	assert.IsType(t, contextHandler{}, slog.Default().Handler())
	assert.False(t, h.Enabled(context.Background(), slog.LevelWarn))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}

func TestPriorityCritical(t *testing.T) {
	assert.Equal(t, slog.String("priority", "critical"), PriorityCritical())
}
