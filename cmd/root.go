package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/timvw/pane-runner/internal/config"
	"github.com/timvw/pane-runner/internal/logging"
	"github.com/timvw/pane-runner/internal/mux"
)

var (
	// Global flags.
	flagConfig    string
	flagMux       string
	flagSocket    string
	flagSession   string
	flagLogLevel  string
	flagLogFormat string

	// Resolved in PersistentPreRunE.
	cfg    *config.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "pane-runner",
	Short: "Run shell commands in tmux sessions and analyze their output",
	Long: `pane-runner executes shell commands inside persistent tmux sessions,
waits until the output settles on a shell prompt, recognizes what kind of
output was produced (disk usage, process lists, logs, JSON, ...) and returns
structured data with prioritized findings.

Run "pane-runner serve" to start the daemon that accepts JSON requests on a
unix socket, or use the one-shot commands directly.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", envOrDefault("PANE_RUNNER_CONFIG", ""), "config file (default: ./.pane-runner.yaml, then ~/.config/pane-runner/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagMux, "mux", envOrDefault("PANE_RUNNER_MUX", ""), "terminal multiplexer: tmux (default: auto-detect)")
	rootCmd.PersistentFlags().StringVar(&flagSocket, "socket", "", "daemon socket path (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagSession, "session", "", "default session name (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "log format: console, json (overrides config)")
}

// setup loads configuration, applies flag overrides and builds the logger.
func setup(cmd *cobra.Command) error {
	c, err := config.LoadFrom(flagConfig)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("socket") {
		c.Socket = flagSocket
	}
	if flags.Changed("session") {
		c.Session = flagSession
	}
	if flags.Changed("log-level") {
		c.LogLevel = flagLogLevel
	}
	if flags.Changed("log-format") {
		c.LogFormat = flagLogFormat
	}
	if err := c.Resolve(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	l, err := logging.New(c.LogLevel, c.LogFormat)
	if err != nil {
		return err
	}
	cfg, logger = c, l

	if c.ConfigFile != "" {
		logger.Debug("config loaded", zap.String("file", c.ConfigFile))
	}
	return nil
}

// getBackend returns the configured or auto-detected multiplexer.
func getBackend() (mux.Backend, error) {
	return mux.FromName(flagMux)
}

func envOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
