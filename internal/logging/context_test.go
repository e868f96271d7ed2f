package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"slidecast/internal/services"
)

func captureLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestWithContextAttachesPipelineFields(t *testing.T) {
	ctx := services.WithJobID(context.Background(), 9)
	ctx = services.WithStage(ctx, "composer")
	ctx = services.WithRequestID(ctx, "abc123")

	var buf bytes.Buffer
	WithContext(ctx, captureLogger(&buf)).Info("stage started")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if record[FieldJobID] != float64(9) {
		t.Fatalf("job id missing: %v", record)
	}
	if record[FieldStage] != "composer" {
		t.Fatalf("stage missing: %v", record)
	}
	if record[FieldCorrelationID] != "abc123" {
		t.Fatalf("correlation id missing: %v", record)
	}
}

func TestWithContextBareContextReturnsLoggerUnchanged(t *testing.T) {
	var buf bytes.Buffer
	logger := captureLogger(&buf)
	if got := WithContext(context.Background(), logger); got != logger {
		t.Fatal("bare context should not wrap the logger")
	}
}

func TestWarnWithContextRequiresEventType(t *testing.T) {
	var buf bytes.Buffer
	WarnWithContext(captureLogger(&buf), "tts failed for slide", "tts_failed", Int(FieldSlide, 3))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if record[FieldEventType] != "tts_failed" {
		t.Fatalf("event type missing: %v", record)
	}
	if record[FieldSlide] != float64(3) {
		t.Fatalf("slide attr missing: %v", record)
	}
	if record["level"] != "WARN" {
		t.Fatalf("expected warn level: %v", record)
	}
}

func TestNewComponentLogger(t *testing.T) {
	var buf bytes.Buffer
	NewComponentLogger(captureLogger(&buf), "workflow-manager").Info("started")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if record[FieldComponent] != "workflow-manager" {
		t.Fatalf("component missing: %v", record)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"junk":  slog.LevelInfo,
	}
	for input, want := range cases {
		if got := parseLevel(input); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}
