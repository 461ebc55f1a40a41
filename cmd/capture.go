package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	flagLines   int
	flagAnalyze bool
	flagCommand string
)

var captureCmd = &cobra.Command{
	Use:   "capture [session]",
	Short: "Capture the recent content of a session",
	Long: `Capture the last lines of a tmux session and print them to stdout.

With --analyze the text is classified and rendered like the output of a
command; --command tells the classifier which command produced it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		session := cfg.Session
		if len(args) == 1 {
			session = args[0]
		}
		lines := cfg.CaptureLines
		if cmd.Flags().Changed("lines") {
			lines = flagLines
		}

		ctx := cmd.Context()
		s, err := newStack(ctx)
		if err != nil {
			return err
		}
		defer s.Close(ctx)

		if flagAnalyze {
			return printResponse(cmd.OutOrStdout(), s.runner.CaptureAnalyzed(ctx, session, flagCommand, lines))
		}

		resp := s.runner.Capture(ctx, session, lines)
		if !resp.Success {
			return fmt.Errorf("failed to capture session %q: %s", session, resp.Error)
		}
		fmt.Fprint(cmd.OutOrStdout(), resp.Output)
		return nil
	},
}

func init() {
	captureCmd.Flags().IntVar(&flagLines, "lines", 0, "number of lines to capture (default: config capture_lines)")
	captureCmd.Flags().BoolVar(&flagAnalyze, "analyze", false, "classify and analyze the captured text")
	captureCmd.Flags().StringVar(&flagCommand, "command", "", "command that produced the text, used as a classification hint")
	captureCmd.Flags().BoolVar(&flagJSON, "json", false, "with --analyze, print the full JSON response")
	captureCmd.Flags().BoolVar(&flagPlain, "plain", false, "with --analyze, print without colors")
	rootCmd.AddCommand(captureCmd)
}
