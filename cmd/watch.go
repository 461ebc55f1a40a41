package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/timvw/pane-runner/internal/render"
	"github.com/timvw/pane-runner/internal/watch"
)

var (
	flagRefresh      time.Duration
	flagTheme        string
	flagWatchCommand string
)

var watchCmd = &cobra.Command{
	Use:   "watch [session]",
	Short: "Interactive view of a session with live analysis",
	Long: `Launch a terminal UI that follows one session. The pane is captured and
analyzed on every refresh; detected format, findings and the last lines of
output are shown.

Keys:
  :   type a command to run in the session
  r   refresh now
  q   quit`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		session := cfg.Session
		if len(args) == 1 {
			session = args[0]
		}
		theme := cfg.Theme
		if cmd.Flags().Changed("theme") {
			theme = flagTheme
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel() // cancels in-flight captures and waits when the TUI exits

		s, err := newStack(ctx)
		if err != nil {
			return err
		}
		defer s.Close(context.Background())

		tui := &watch.TUI{
			Runner:  s.runner,
			Session: session,
			Command: flagWatchCommand,
			Lines:   cfg.CaptureLines,
			Refresh: flagRefresh,
			MaxWait: cfg.MaxWaitDuration,
			Theme:   render.ThemeByName(theme),
		}
		return tui.Run(ctx)
	},
}

func init() {
	watchCmd.Flags().DurationVar(&flagRefresh, "refresh", 2*time.Second, "refresh interval (0 disables auto-refresh)")
	watchCmd.Flags().StringVar(&flagTheme, "theme", "dark", "color theme: dark, light (default: config theme)")
	watchCmd.Flags().StringVar(&flagWatchCommand, "command", "", "classify captures as the output of this command")
	rootCmd.AddCommand(watchCmd)
}
