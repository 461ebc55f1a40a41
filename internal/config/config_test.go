package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// envKeys lists every variable Load reads, so tests start from a clean slate.
var envKeys = []string{
	"PANE_RUNNER_SOCKET", "PANE_RUNNER_SESSION", "PANE_RUNNER_BUFFER_SIZE",
	"PANE_RUNNER_CAPTURE_LINES", "PANE_RUNNER_MAX_WAIT", "PANE_RUNNER_POLL_INTERVAL",
	"PANE_RUNNER_CACHE_TTL", "PANE_RUNNER_HISTORY_PATH", "PANE_RUNNER_LOG_LEVEL",
	"PANE_RUNNER_LOG_FORMAT", "PANE_RUNNER_THEME",
	"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_HEADERS",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
	// Keep the home lookup away from the developer's real config.
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_STATE_HOME", "")
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	origDir, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(origDir) })
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Socket != "/tmp/pane-runner.sock" {
		t.Errorf("Socket: got %q, want %q", cfg.Socket, "/tmp/pane-runner.sock")
	}
	if cfg.Session != "pane_runner" {
		t.Errorf("Session: got %q, want %q", cfg.Session, "pane_runner")
	}
	if cfg.BufferSize != 8192 {
		t.Errorf("BufferSize: got %d, want %d", cfg.BufferSize, 8192)
	}
	if cfg.CaptureLines != 100 {
		t.Errorf("CaptureLines: got %d, want %d", cfg.CaptureLines, 100)
	}
	if cfg.MaxWait != "600s" {
		t.Errorf("MaxWait: got %q, want %q", cfg.MaxWait, "600s")
	}
	if cfg.PollInterval != "500ms" {
		t.Errorf("PollInterval: got %q, want %q", cfg.PollInterval, "500ms")
	}
	if cfg.CacheTTL != "5s" {
		t.Errorf("CacheTTL: got %q, want %q", cfg.CacheTTL, "5s")
	}
	if cfg.LogFormat != "console" {
		t.Errorf("LogFormat: got %q, want %q", cfg.LogFormat, "console")
	}
}

func TestDefaultHistoryPath(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/var/state")
	if got, want := DefaultHistoryPath(), "/var/state/pane-runner/history.db"; got != want {
		t.Errorf("DefaultHistoryPath: got %q, want %q", got, want)
	}

	t.Setenv("XDG_STATE_HOME", "")
	t.Setenv("HOME", "/home/tim")
	if got, want := DefaultHistoryPath(), "/home/tim/.local/state/pane-runner/history.db"; got != want {
		t.Errorf("DefaultHistoryPath: got %q, want %q", got, want)
	}
}

func TestParseDurationOrDisable(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMs  int64
		wantErr bool
	}{
		{"empty returns fallback", "", 5000, false},
		{"zero disables", "0", 0, false},
		{"off disables", "off", 0, false},
		{"disable disables", "disable", 0, false},
		{"valid duration", "30s", 30000, false},
		{"valid short duration", "500ms", 500, false},
		{"invalid", "not-a-duration", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDurationOrDisable(tt.input, 5*time.Second)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseDurationOrDisable(%q): error = %v, wantErr = %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got.Milliseconds() != tt.wantMs {
				t.Errorf("parseDurationOrDisable(%q) = %v, want %dms", tt.input, got, tt.wantMs)
			}
		})
	}
}

func TestLoad_NoFile(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ConfigFile != "" {
		t.Errorf("ConfigFile: got %q, want empty", cfg.ConfigFile)
	}
	if cfg.MaxWaitDuration != 600*time.Second {
		t.Errorf("MaxWaitDuration: got %v, want 600s", cfg.MaxWaitDuration)
	}
	if cfg.PollIntervalDuration != 500*time.Millisecond {
		t.Errorf("PollIntervalDuration: got %v, want 500ms", cfg.PollIntervalDuration)
	}
	if cfg.CacheTTLDuration != 5*time.Second {
		t.Errorf("CacheTTLDuration: got %v, want 5s", cfg.CacheTTLDuration)
	}
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	content := `socket: /run/user/1000/runner.sock
session: ops
buffer_size: 16384
capture_lines: 200
max_wait: "120s"
poll_interval: "250ms"
cache_ttl: "off"
history_path: "off"
log_level: debug
log_format: json
theme: light
`
	if err := os.WriteFile(filepath.Join(dir, ".pane-runner.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	chdir(t, dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.ConfigFile != ".pane-runner.yaml" {
		t.Errorf("ConfigFile: got %q, want %q", cfg.ConfigFile, ".pane-runner.yaml")
	}
	if cfg.Socket != "/run/user/1000/runner.sock" {
		t.Errorf("Socket: got %q, want %q", cfg.Socket, "/run/user/1000/runner.sock")
	}
	if cfg.Session != "ops" {
		t.Errorf("Session: got %q, want %q", cfg.Session, "ops")
	}
	if cfg.BufferSize != 16384 {
		t.Errorf("BufferSize: got %d, want %d", cfg.BufferSize, 16384)
	}
	if cfg.CaptureLines != 200 {
		t.Errorf("CaptureLines: got %d, want %d", cfg.CaptureLines, 200)
	}
	if cfg.MaxWaitDuration != 120*time.Second {
		t.Errorf("MaxWaitDuration: got %v, want 120s", cfg.MaxWaitDuration)
	}
	if cfg.PollIntervalDuration != 250*time.Millisecond {
		t.Errorf("PollIntervalDuration: got %v, want 250ms", cfg.PollIntervalDuration)
	}
	if cfg.CacheTTLDuration != 0 {
		t.Errorf("CacheTTLDuration: got %v, want 0 (disabled)", cfg.CacheTTLDuration)
	}
	if cfg.HistoryPath != "" {
		t.Errorf("HistoryPath: got %q, want empty (disabled)", cfg.HistoryPath)
	}
	if cfg.LogLevel != "debug" || cfg.LogFormat != "json" || cfg.Theme != "light" {
		t.Errorf("output settings: got %q/%q/%q", cfg.LogLevel, cfg.LogFormat, cfg.Theme)
	}
}

func TestLoadFrom_ExplicitPath(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(path, []byte("session: custom\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error: %v", err)
	}
	if cfg.Session != "custom" {
		t.Errorf("Session: got %q, want %q", cfg.Session, "custom")
	}
	if cfg.ConfigFile != path {
		t.Errorf("ConfigFile: got %q, want %q", cfg.ConfigFile, path)
	}

	if _, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	content := `session: from-file
max_wait: "60s"
buffer_size: 4096
`
	if err := os.WriteFile(filepath.Join(dir, ".pane-runner.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	chdir(t, dir)

	t.Setenv("PANE_RUNNER_SESSION", "from-env")
	t.Setenv("PANE_RUNNER_MAX_WAIT", "30s")
	t.Setenv("PANE_RUNNER_BUFFER_SIZE", "2048")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4318")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Session != "from-env" {
		t.Errorf("Session: got %q, want %q (env should override file)", cfg.Session, "from-env")
	}
	if cfg.MaxWaitDuration != 30*time.Second {
		t.Errorf("MaxWaitDuration: got %v, want 30s (env should override file)", cfg.MaxWaitDuration)
	}
	if cfg.BufferSize != 2048 {
		t.Errorf("BufferSize: got %d, want %d (env should override file)", cfg.BufferSize, 2048)
	}
	if cfg.OTELEndpoint != "http://localhost:4318" {
		t.Errorf("OTELEndpoint: got %q, want %q", cfg.OTELEndpoint, "http://localhost:4318")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad duration", "PANE_RUNNER_MAX_WAIT", "soon"},
		{"bad int", "PANE_RUNNER_BUFFER_SIZE", "lots"},
		{"negative lines", "PANE_RUNNER_CAPTURE_LINES", "-5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			chdir(t, t.TempDir())
			t.Setenv(tt.key, tt.val)

			if _, err := Load(); err == nil {
				t.Errorf("Load() with %s=%q: expected error", tt.key, tt.val)
			}
		})
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".pane-runner.yaml"), []byte("session: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	chdir(t, dir)

	if _, err := Load(); err == nil {
		t.Error("expected error for malformed YAML")
	}
}
