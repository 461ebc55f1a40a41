package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/timvw/pane-runner/internal/daemon"
	"github.com/timvw/pane-runner/internal/model"
)

var (
	flagSendTimeout time.Duration
	flagSendPretty  bool
)

var sendCmd = &cobra.Command{
	Use:   "send <action> [json-data|-]",
	Short: "Send one request to a running daemon",
	Long: `Send a single action to the daemon and print the JSON response.

The optional second argument is the request's data object. Pass "-" to read
it from stdin.

Examples:
  pane-runner send list_sessions
  pane-runner send execute_and_wait '{"command": "df -h", "session": "work"}'
  echo '{"commands": ["uptime", "free -m"]}' | pane-runner send execute_batch -`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		action := args[0]

		var data json.RawMessage
		if len(args) == 2 {
			raw, err := readData(args[1], cmd.InOrStdin())
			if err != nil {
				return err
			}
			data = raw
		}

		client := &daemon.Client{SocketPath: cfg.Socket, Timeout: flagSendTimeout}
		resp, err := client.Do(cmd.Context(), action, data)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if flagSendPretty {
			fmt.Fprint(out, displayText(resp))
		} else {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(resp); err != nil {
				return err
			}
		}
		if !resp.Success {
			return fmt.Errorf("%s failed", action)
		}
		return nil
	},
}

func init() {
	sendCmd.Flags().DurationVar(&flagSendTimeout, "timeout", 0, "give up after this long (default: wait for the daemon)")
	sendCmd.Flags().BoolVar(&flagSendPretty, "pretty", false, "print the rendered display instead of JSON")
	rootCmd.AddCommand(sendCmd)
}

// readData returns arg as a JSON object, reading stdin for "-".
func readData(arg string, stdin io.Reader) (json.RawMessage, error) {
	raw := []byte(arg)
	if arg == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		raw = b
	}
	if strings.TrimSpace(string(raw)) == "" {
		return nil, nil
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("data is not valid JSON")
	}
	return json.RawMessage(raw), nil
}

// displayText picks the human-readable part of a response.
func displayText(resp model.Response) string {
	var text string
	switch {
	case resp.Analysis != nil && resp.Display != "":
		text = resp.Display
	case resp.Output != "":
		text = resp.Output
	case resp.Error != "":
		text = "✗ " + resp.Error
	}
	if text != "" && !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	return text
}
