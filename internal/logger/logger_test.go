package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestSetup_ReturnsJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(&buf, nil)

	if l == nil {
		t.Fatal("expected non-nil logger")
	}

	l.Info("test message", slog.String("key", "value"))

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected valid JSON log output, got error: %v\nraw output: %s", err, buf.String())
	}

	if entry["msg"] != "test message" {
		t.Errorf("msg = %q, want %q", entry["msg"], "test message")
	}
	if entry["key"] != "value" {
		t.Errorf("key = %q, want %q", entry["key"], "value")
	}
}

func TestSetup_IncludesTimeField(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(&buf, nil)

	l.Info("test")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}

	if _, ok := entry["time"]; !ok {
		t.Error("expected 'time' field in JSON log output")
	}
}

func TestSetup_IncludesLevelField(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(&buf, nil)

	l.Warn("warning test")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}

	if entry["level"] != "WARN" {
		t.Errorf("level = %q, want %q", entry["level"], "WARN")
	}
}

func TestSetup_MultipleAttributes(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(&buf, nil)

	l.Info("message sent",
		slog.String("user_id", "u-123"),
		slog.String("chat_key", "chat_u-123_u-456"),
		slog.String("path", "/chat/u-456"),
		slog.Int("status", 303),
		slog.Int("messages", 25),
	)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}

	if entry["user_id"] != "u-123" {
		t.Errorf("user_id = %q, want %q", entry["user_id"], "u-123")
	}
	if entry["chat_key"] != "chat_u-123_u-456" {
		t.Errorf("chat_key = %q, want %q", entry["chat_key"], "chat_u-123_u-456")
	}
	if entry["path"] != "/chat/u-456" {
		t.Errorf("path = %q, want %q", entry["path"], "/chat/u-456")
	}
	if entry["status"] != float64(303) {
		t.Errorf("status = %v, want %v", entry["status"], 303)
	}
	if entry["messages"] != float64(25) {
		t.Errorf("messages = %v, want %v", entry["messages"], 25)
	}
}

func TestSetup_RespectsLevel(t *testing.T) {
	tests := []struct {
		name    string
		level   slog.Level
		logFn   func(l *slog.Logger)
		wantOut bool
	}{
		{"debug suppressed at info", slog.LevelInfo, func(l *slog.Logger) { l.Debug("x") }, false},
		{"debug shown at debug", slog.LevelDebug, func(l *slog.Logger) { l.Debug("x") }, true},
		{"info suppressed at warn", slog.LevelWarn, func(l *slog.Logger) { l.Info("x") }, false},
		{"error shown at warn", slog.LevelWarn, func(l *slog.Logger) { l.Error("x") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.logFn(Setup(&buf, tt.level))

			if got := buf.Len() > 0; got != tt.wantOut {
				t.Errorf("output written = %v, want %v (raw: %s)", got, tt.wantOut, buf.String())
			}
		})
	}
}

func TestSetupDefault_SetsGlobalLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	SetupDefault(&buf, slog.LevelInfo)

	slog.Default().Info("global test", slog.String("test_key", "test_val"))

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON: %v\nraw: %s", err, buf.String())
	}

	if entry["msg"] != "global test" {
		t.Errorf("msg = %q, want %q", entry["msg"], "global test")
	}
	if entry["test_key"] != "test_val" {
		t.Errorf("test_key = %q, want %q", entry["test_key"], "test_val")
	}
}
