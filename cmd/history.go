package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/x/ansi"
	"github.com/spf13/cobra"

	"github.com/timvw/pane-runner/internal/history"
	"github.com/timvw/pane-runner/internal/model"
)

var (
	flagHistFormat   string
	flagHistCritical bool
	flagHistSince    time.Duration
	flagHistLimit    int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently analyzed executions",
	Long: `List executions recorded by the daemon and the exec command, newest
first. The database location is the history_path config value. --session
limits the list to one session.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.HistoryPath == "" {
			return fmt.Errorf("history is disabled (history_path is empty)")
		}
		store, err := history.Open(cfg.HistoryPath)
		if err != nil {
			return err
		}
		defer store.Close()

		q := history.Query{
			Format:       flagHistFormat,
			OnlyCritical: flagHistCritical,
			Limit:        flagHistLimit,
		}
		if cmd.Flags().Changed("session") {
			q.Session = cfg.Session
		}
		if flagHistSince > 0 {
			q.Since = time.Now().Add(-flagHistSince)
		}
		entries, err := store.Recent(cmd.Context(), q)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if flagJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}
		if len(entries) == 0 {
			fmt.Fprintln(out, "No executions recorded.")
			return nil
		}
		fmt.Fprintln(out, historyTable(entries))
		return nil
	},
}

func init() {
	historyCmd.Flags().StringVar(&flagHistFormat, "format", "", "only this detected format (e.g. disk_usage)")
	historyCmd.Flags().BoolVar(&flagHistCritical, "critical", false, "only executions with critical findings")
	historyCmd.Flags().DurationVar(&flagHistSince, "since", 0, "only executions newer than this (e.g. 1h)")
	historyCmd.Flags().IntVar(&flagHistLimit, "limit", history.DefaultLimit, "maximum number of entries")
	historyCmd.Flags().BoolVar(&flagJSON, "json", false, "print JSON")
	rootCmd.AddCommand(historyCmd)
}

func historyTable(entries []model.Execution) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("TIME", "SESSION", "STATUS", "FORMAT", "CRIT", "DURATION", "COMMAND", "SUMMARY")
	for _, e := range entries {
		t.Row(
			e.CreatedAt.Local().Format("01-02 15:04:05"),
			e.Session,
			e.Status,
			e.Format,
			strconv.Itoa(e.CriticalCount),
			(time.Duration(e.DurationMs) * time.Millisecond).String(),
			ansi.Truncate(e.Command, 40, "..."),
			ansi.Truncate(e.Summary, 50, "..."),
		)
	}
	return t.Render()
}
