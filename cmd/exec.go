package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/timvw/pane-runner/internal/model"
	"github.com/timvw/pane-runner/internal/runner"
)

var (
	flagMaxWait  time.Duration
	flagInterval time.Duration
	flagJSON     bool
	flagPlain    bool
)

var execCmd = &cobra.Command{
	Use:   "exec [flags] -- <command...>",
	Short: "Run a command in a session and analyze its output",
	Long: `Run a shell command in a tmux session without going through the daemon,
wait for it to finish and print the analysis.

The session is created when it does not exist. Completion is detected when
the pane output stops changing and ends in a shell prompt.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := newStack(ctx)
		if err != nil {
			return err
		}
		defer s.Close(ctx)

		maxWait := cfg.MaxWaitDuration
		if cmd.Flags().Changed("max-wait") {
			maxWait = flagMaxWait
		}
		interval := cfg.PollIntervalDuration
		if cmd.Flags().Changed("interval") {
			interval = flagInterval
		}

		resp := s.runner.Run(ctx, runner.Exec{
			Session:       cfg.Session,
			Command:       strings.Join(args, " "),
			CreateSession: true,
			MaxWait:       maxWait,
			PollInterval:  interval,
		})
		return printResponse(cmd.OutOrStdout(), resp)
	},
}

func init() {
	execCmd.Flags().DurationVar(&flagMaxWait, "max-wait", 0, "how long to wait for the command (default: config max_wait)")
	execCmd.Flags().DurationVar(&flagInterval, "interval", 0, "poll interval (default: config poll_interval)")
	execCmd.Flags().BoolVar(&flagJSON, "json", false, "print the full JSON response")
	execCmd.Flags().BoolVar(&flagPlain, "plain", false, "print without colors")
	rootCmd.AddCommand(execCmd)
}

// printResponse writes resp as JSON or as its rendered display, and turns
// an unsuccessful response into an error.
func printResponse(w io.Writer, resp model.Response) error {
	if flagJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp); err != nil {
			return err
		}
	} else {
		text := displayText(resp)
		if resp.Analysis != nil && (flagPlain || termenv.EnvNoColor()) {
			text = resp.DisplayPlain
		}
		fmt.Fprint(w, text)
	}
	if !resp.Success {
		if resp.Analysis != nil && resp.Status == model.StatusTimeout {
			return fmt.Errorf("timed out waiting for %q", resp.Command)
		}
		return fmt.Errorf("command failed")
	}
	return nil
}
