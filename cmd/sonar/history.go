// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/sonar/internal/history"
	"github.com/pdiddy/sonar/internal/window"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent delivery history",
	Long: `History lists recent digest cycles recorded in the delivery history
database: which window was queried for whom, how many results it produced,
and whether the digest was sent. Requires HISTORY_DB in the configuration.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of entries to show")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.HistoryDB == "" {
		return fmt.Errorf("HISTORY_DB is not configured; history recording is disabled")
	}

	store, err := history.Open(cfg.HistoryDB)
	if err != nil {
		return err
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	entries, err := store.Recent(cmd.Context(), limit)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Println("No history recorded.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-19s  %-16s  %-19s  %-19s  %7s  %s\n",
		"When", "User", "From", "To", "Results", "Outcome")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 100))
	for _, e := range entries {
		fmt.Fprintf(os.Stdout, "%-19s  %-16s  %-19s  %-19s  %7d  %s\n",
			e.CreatedAt.Format(window.TimeFormat),
			e.User,
			e.WindowStart.Format(window.TimeFormat),
			e.WindowEnd.Format(window.TimeFormat),
			e.Results,
			e.Outcome)
	}
	return nil
}
