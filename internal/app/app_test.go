package app

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/hitoshi/startupconnect/internal/kvstore"
)

// setTestEnv はメモリストアで起動できる最小限の環境変数を設定する。
func setTestEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"DATABASE_URL", "REDIS_URL", "BADGER_DIR", "SESSION_MAX_AGE", "COOKIE_DOMAIN", "CLEANUP_INTERVAL"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("BASE_URL", "http://localhost:8080")
	t.Setenv("LOG_LEVEL", "info")

	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
}

func TestInit_WithValidConfig_Succeeds(t *testing.T) {
	setTestEnv(t)

	var buf bytes.Buffer
	cfg, err := Init(&buf)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg == nil {
		t.Fatal("expected non-nil config")
	}
	if cfg.StoreBackend != kvstore.BackendMemory {
		t.Errorf("StoreBackend = %q, want %q", cfg.StoreBackend, kvstore.BackendMemory)
	}

	// slogのグローバルロガーがJSON出力に設定されていること
	slog.Default().Info("init test")
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log output, got error: %v\nraw: %s", err, buf.String())
	}
	if entry["msg"] != "init test" {
		t.Errorf("msg = %q, want %q", entry["msg"], "init test")
	}
}

func TestInit_AppliesLogLevel(t *testing.T) {
	setTestEnv(t)
	t.Setenv("LOG_LEVEL", "warn")

	var buf bytes.Buffer
	if _, err := Init(&buf); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	slog.Default().Info("should be suppressed")
	slog.Default().Warn("should be written")

	out := buf.String()
	if strings.Contains(out, "should be suppressed") {
		t.Error("info log should be suppressed at warn level")
	}
	if !strings.Contains(out, "should be written") {
		t.Error("warn log should be written at warn level")
	}
}

func TestInit_WithMissingConfig_ReturnsError(t *testing.T) {
	setTestEnv(t)
	os.Unsetenv("BASE_URL")

	var buf bytes.Buffer
	cfg, err := Init(&buf)
	if err == nil {
		t.Fatal("expected error for missing required env vars, got nil")
	}
	if cfg != nil {
		t.Error("expected nil config on error")
	}
}
