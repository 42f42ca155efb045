package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"scriptflow/internal/services"
)

func TestConsoleHandlerFormatsComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl))

	logger = logger.With(String(FieldComponent, "encoding"))
	logger.Info("transcode complete", Int64("session_id", 42), String("output", "/tmp/out file.mp4"))

	line := buf.String()
	if !strings.Contains(line, "INFO encoding: transcode complete") {
		t.Fatalf("unexpected line: %q", line)
	}
	if !strings.Contains(line, "session_id=42") {
		t.Fatalf("missing session_id field: %q", line)
	}
	if !strings.Contains(line, `output="/tmp/out file.mp4"`) {
		t.Fatalf("value with space should be quoted: %q", line)
	}
}

func TestConsoleHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelWarn)
	logger := slog.New(newConsoleHandler(&buf, lvl))

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info record should be filtered: %q", out)
	}
	if !strings.Contains(out, "WARN") || !strings.Contains(out, "shown") {
		t.Fatalf("warn record missing: %q", out)
	}
}

func TestJSONHandlerRenamesCoreKeys(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newJSONHandler(&buf, lvl))

	logger.Error("upload failed", Error(errors.New("disk full")))

	line := buf.String()
	for _, want := range []string{`"ts":`, `"level":"error"`, `"msg":"upload failed"`, `"error":"disk full"`} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %s in %q", want, line)
		}
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewComponentLoggerPullsContextFields(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	base := slog.New(newConsoleHandler(&buf, lvl))

	ctx := services.WithSessionID(context.Background(), 7)
	ctx = services.WithJob(ctx, "script")
	ctx = services.WithCorrelationID(ctx, "abc-123")

	NewComponentLogger(ctx, base, "scheduler").Info("tick")

	line := buf.String()
	for _, want := range []string{"scheduler: tick", "session_id=7", "job=script", "correlation_id=abc-123"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %s in %q", want, line)
		}
	}
}

func TestWithContextLeavesBareContextAlone(t *testing.T) {
	base := slog.New(newConsoleHandler(&bytes.Buffer{}, new(slog.LevelVar)))
	if got := WithContext(context.Background(), base); got != base {
		t.Fatal("logger should be returned unchanged when ctx carries no identifiers")
	}
	if got := WithContext(context.Background(), nil); got == nil {
		t.Fatal("nil logger should fall back to the nop logger")
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := NewNop()
	logger.Info("ignored")
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("nop logger should report disabled")
	}
}
