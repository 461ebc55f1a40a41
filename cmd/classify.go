package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/timvw/pane-runner/internal/parser"
	"github.com/timvw/pane-runner/internal/render"
)

var flagClassifyCommand string

var classifyCmd = &cobra.Command{
	Use:   "classify [file]",
	Short: "Classify and analyze text from a file or stdin",
	Long: `Run the output analysis on saved text without touching tmux.

Reads the file argument, or stdin when none is given. --command names the
command that produced the text and takes precedence over content sniffing.

Example:
  df -h | pane-runner classify --command "df -h"`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			data []byte
			err  error
		)
		if len(args) == 1 && args[0] != "-" {
			data, err = os.ReadFile(args[0])
		} else {
			data, err = io.ReadAll(cmd.InOrStdin())
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}

		parsed := parser.NewRegistry().Parse(string(data), flagClassifyCommand)
		resp := render.New(render.ThemeByName(cfg.Theme)).Analyzed(parsed, flagClassifyCommand, 0)
		return printResponse(cmd.OutOrStdout(), resp)
	},
}

func init() {
	classifyCmd.Flags().StringVar(&flagClassifyCommand, "command", "", "command that produced the text")
	classifyCmd.Flags().BoolVar(&flagJSON, "json", false, "print the full JSON response")
	classifyCmd.Flags().BoolVar(&flagPlain, "plain", false, "print without colors")
	rootCmd.AddCommand(classifyCmd)
}
