package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"quicdemo/internal/config"
)

func TestRuntime_FileOutputJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.log")
	rt, err := NewRuntime(config.LoggingConfig{Level: "info", Format: "json", Output: path})
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	rt.Logger().Debug("hidden")
	rt.Logger().Info("endpoint: bound", "addr", "127.0.0.1:4433")
	if err := rt.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) != 1 {
		t.Fatalf("lines=%d want 1: %q", len(lines), b)
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if rec["app"] != "quicdemo" || rec["addr"] != "127.0.0.1:4433" || rec["msg"] != "endpoint: bound" {
		t.Fatalf("record=%v", rec)
	}
}

func TestRuntime_SetLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.log")
	rt, err := NewRuntime(config.LoggingConfig{Level: "warn", Format: "text", Output: path})
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	defer rt.Close()

	rt.Logger().Info("before")
	if err := rt.SetLevel("debug"); err != nil {
		t.Fatalf("SetLevel: %v", err)
	}
	rt.Logger().Debug("after")

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if strings.Contains(string(b), "before") || !strings.Contains(string(b), "after") {
		t.Fatalf("unexpected log contents %q", b)
	}
	if err := rt.SetLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestRuntime_RejectsUnknownSettings(t *testing.T) {
	if _, err := NewRuntime(config.LoggingConfig{Level: "verbose"}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	if _, err := NewRuntime(config.LoggingConfig{Format: "xml", Output: "discard"}); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestRuntime_NilLoggerFallsBack(t *testing.T) {
	var rt *Runtime
	if rt.Logger() == nil {
		t.Fatalf("nil runtime should fall back to slog.Default")
	}
	if err := rt.Close(); err != nil {
		t.Fatalf("Close on nil runtime: %v", err)
	}
}
