package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/timvw/pane-runner/internal/daemon"
	"github.com/timvw/pane-runner/internal/history"
)

var flagRetention time.Duration

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the daemon on a unix socket",
	Long: `Start the daemon. It listens on a unix stream socket (mode 0600) and
answers one JSON request per connection:

  {"action": "execute_and_wait", "data": {"command": "df -h", "session": "work"}}

Sessions are created on demand. Requests for different sessions run in
parallel; requests for the same session are serialized.

Stop with SIGINT or SIGTERM. In-flight waits are cancelled and the socket
file is removed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().DurationVar(&flagRetention, "history-retention", 30*24*time.Hour,
		"drop history entries older than this at startup (0 keeps everything)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := newStack(ctx)
	if err != nil {
		return err
	}
	defer s.Close(context.Background())

	opts := daemon.Options{
		SocketPath:     cfg.Socket,
		DefaultSession: cfg.Session,
		BufferSize:     cfg.BufferSize,
		Runner:         s.runner,
		Metrics:        s.metrics(),
		Logger:         logger.Named("daemon"),
	}
	if s.history != nil {
		opts.History = s.history
		pruneHistory(ctx, s.history)
	}

	srv := daemon.New(opts)
	if err := srv.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

func pruneHistory(ctx context.Context, store *history.Store) {
	if flagRetention <= 0 {
		return
	}
	n, err := store.Prune(ctx, time.Now().Add(-flagRetention))
	if err != nil {
		logger.Warn("prune history", zap.Error(err))
		return
	}
	if n > 0 {
		logger.Info("pruned history", zap.Int64("removed", n), zap.Duration("retention", flagRetention))
	}
}
