// Package config loads pane-runner configuration from file and environment.
//
// Precedence (highest to lowest):
//  1. Command-line flags (applied by cmd/)
//  2. Environment variables (PANE_RUNNER_*)
//  3. Config file
//  4. Built-in defaults
//
// Config file search order:
//  1. .pane-runner.yaml in current directory
//  2. ~/.config/pane-runner/config.yaml
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all pane-runner configuration.
type Config struct {
	// Daemon settings
	Socket     string `yaml:"socket"`
	Session    string `yaml:"session"`     // default session for requests that name none
	BufferSize int    `yaml:"buffer_size"` // maximum request size in bytes

	// Completion detection
	CaptureLines int    `yaml:"capture_lines"`
	MaxWait      string `yaml:"max_wait"`      // Go duration string, e.g. "600s"
	PollInterval string `yaml:"poll_interval"` // Go duration string, e.g. "500ms"

	// Analysis cache and history
	CacheTTL    string `yaml:"cache_ttl"`
	HistoryPath string `yaml:"history_path"` // "off" disables history

	// Output
	LogLevel  string `yaml:"log_level"`  // debug, info, warn, error
	LogFormat string `yaml:"log_format"` // console or json
	Theme     string `yaml:"theme"`      // dark or light

	// OTEL
	OTELEndpoint string `yaml:"otel_endpoint"`
	OTELHeaders  string `yaml:"otel_headers"` // Comma-separated key=value pairs, e.g. "Authorization=Basic abc123"

	// Parsed durations (not from YAML, set after loading)
	MaxWaitDuration      time.Duration `yaml:"-"`
	PollIntervalDuration time.Duration `yaml:"-"`
	CacheTTLDuration     time.Duration `yaml:"-"`

	// ConfigFile is the path to the config file that was loaded (empty if none).
	ConfigFile string `yaml:"-"`
}

// Defaults returns a Config with all default values.
func Defaults() *Config {
	return &Config{
		Socket:       "/tmp/pane-runner.sock",
		Session:      "pane_runner",
		BufferSize:   8192,
		CaptureLines: 100,
		MaxWait:      "600s",
		PollInterval: "500ms",
		CacheTTL:     "5s",
		HistoryPath:  DefaultHistoryPath(),
		LogLevel:     "info",
		LogFormat:    "console",
		Theme:        "dark",
	}
}

// DefaultHistoryPath returns $XDG_STATE_HOME/pane-runner/history.db, falling
// back to ~/.local/state. Empty when neither can be determined.
func DefaultHistoryPath() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "pane-runner", "history.db")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", "pane-runner", "history.db")
}

// Load reads configuration from the searched config file and environment.
// Environment variables always override file values.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom is Load with an explicit config file. An empty path searches the
// default locations; a named file that cannot be read is an error.
func LoadFrom(path string) (*Config, error) {
	cfg := Defaults()

	var (
		data []byte
		err  error
	)
	if path != "" {
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else {
		path, data, err = findConfigFile()
	}
	if err == nil {
		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
		cfg.ConfigFile = path
		mergeFile(cfg, &fileCfg)
	}

	// Environment variables override everything
	if err := mergeEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Resolve(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Resolve parses the duration strings and checks the numeric limits. Call it
// again after changing fields, e.g. from flags.
func (c *Config) Resolve() error {
	var err error
	c.MaxWaitDuration, err = parseDurationOrDisable(c.MaxWait, 600*time.Second)
	if err != nil {
		return fmt.Errorf("invalid max wait %q: %w", c.MaxWait, err)
	}
	c.PollIntervalDuration, err = parseDurationOrDisable(c.PollInterval, 500*time.Millisecond)
	if err != nil {
		return fmt.Errorf("invalid poll interval %q: %w", c.PollInterval, err)
	}
	c.CacheTTLDuration, err = parseDurationOrDisable(c.CacheTTL, 5*time.Second)
	if err != nil {
		return fmt.Errorf("invalid cache TTL %q: %w", c.CacheTTL, err)
	}
	if isDisabled(c.HistoryPath) {
		c.HistoryPath = ""
	}

	if c.BufferSize <= 0 {
		return fmt.Errorf("buffer size must be positive, got %d", c.BufferSize)
	}
	if c.CaptureLines <= 0 {
		return fmt.Errorf("capture lines must be positive, got %d", c.CaptureLines)
	}
	if c.Socket == "" {
		return fmt.Errorf("socket path cannot be empty")
	}
	return nil
}

// findConfigFile searches for a config file and returns its path and contents.
func findConfigFile() (string, []byte, error) {
	// 1. Current directory
	if data, err := os.ReadFile(".pane-runner.yaml"); err == nil {
		return ".pane-runner.yaml", data, nil
	}

	// 2. XDG config dir / ~/.config
	if home, err := os.UserHomeDir(); err == nil {
		path := filepath.Join(home, ".config", "pane-runner", "config.yaml")
		if data, err := os.ReadFile(path); err == nil {
			return path, data, nil
		}
	}

	return "", nil, fmt.Errorf("no config file found")
}

// mergeFile applies non-zero file values onto cfg.
func mergeFile(cfg *Config, file *Config) {
	if file.Socket != "" {
		cfg.Socket = file.Socket
	}
	if file.Session != "" {
		cfg.Session = file.Session
	}
	if file.BufferSize > 0 {
		cfg.BufferSize = file.BufferSize
	}
	if file.CaptureLines > 0 {
		cfg.CaptureLines = file.CaptureLines
	}
	if file.MaxWait != "" {
		cfg.MaxWait = file.MaxWait
	}
	if file.PollInterval != "" {
		cfg.PollInterval = file.PollInterval
	}
	if file.CacheTTL != "" {
		cfg.CacheTTL = file.CacheTTL
	}
	if file.HistoryPath != "" {
		cfg.HistoryPath = file.HistoryPath
	}
	if file.LogLevel != "" {
		cfg.LogLevel = file.LogLevel
	}
	if file.LogFormat != "" {
		cfg.LogFormat = file.LogFormat
	}
	if file.Theme != "" {
		cfg.Theme = file.Theme
	}
	if file.OTELEndpoint != "" {
		cfg.OTELEndpoint = file.OTELEndpoint
	}
	if file.OTELHeaders != "" {
		cfg.OTELHeaders = file.OTELHeaders
	}
}

// mergeEnv applies environment variables onto cfg. Env always wins.
func mergeEnv(cfg *Config) error {
	strs := map[string]*string{
		"PANE_RUNNER_SOCKET":        &cfg.Socket,
		"PANE_RUNNER_SESSION":       &cfg.Session,
		"PANE_RUNNER_MAX_WAIT":      &cfg.MaxWait,
		"PANE_RUNNER_POLL_INTERVAL": &cfg.PollInterval,
		"PANE_RUNNER_CACHE_TTL":     &cfg.CacheTTL,
		"PANE_RUNNER_HISTORY_PATH":  &cfg.HistoryPath,
		"PANE_RUNNER_LOG_LEVEL":     &cfg.LogLevel,
		"PANE_RUNNER_LOG_FORMAT":    &cfg.LogFormat,
		"PANE_RUNNER_THEME":         &cfg.Theme,

		"OTEL_EXPORTER_OTLP_ENDPOINT": &cfg.OTELEndpoint,
		"OTEL_EXPORTER_OTLP_HEADERS":  &cfg.OTELHeaders,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"PANE_RUNNER_BUFFER_SIZE":   &cfg.BufferSize,
		"PANE_RUNNER_CAPTURE_LINES": &cfg.CaptureLines,
	}
	for key, dst := range ints {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, v, err)
		}
		*dst = n
	}
	return nil
}

func isDisabled(s string) bool {
	return s == "0" || s == "off" || s == "disable"
}

// parseDurationOrDisable parses a duration string. "0", "off", "disable" return 0.
// Empty string returns the fallback value.
func parseDurationOrDisable(s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}
	if isDisabled(s) {
		return 0, nil
	}
	return time.ParseDuration(s)
}
