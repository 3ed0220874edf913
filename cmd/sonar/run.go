// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/sonar/internal/arxiv"
	"github.com/pdiddy/sonar/internal/history"
	"github.com/pdiddy/sonar/internal/mailer"
	"github.com/pdiddy/sonar/internal/runner"
	"github.com/pdiddy/sonar/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Query arXiv for every subscriber and email the digests",
	Long: `Run processes subscribers one at a time: it computes the window since the
subscriber's last successful run, queries arXiv, emails a digest, and then
advances the watermark. A failure for one subscriber never aborts the batch.

With --test the digest is printed instead of sent and the watermark is left
untouched, regardless of the other flags. With --print-only the digest is
printed but still counts as delivered, so the watermark advances.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().String("users-dir", "", "directory containing individual user YAML files")
	runCmd.Flags().String("user-file", "", "single YAML file containing one user record")
	runCmd.Flags().Bool("test", false, "print emails and skip watermark updates (implies --print-only and --no-update)")
	runCmd.Flags().Bool("print-only", false, "print emails instead of sending them")
	runCmd.Flags().Bool("no-update", false, "do not update the last run timestamp")
	runCmd.Flags().Int("max-results", 100, "maximum results per arXiv query")
	runCmd.MarkFlagsMutuallyExclusive("users-dir", "user-file")
	runCmd.MarkFlagsOneRequired("users-dir", "user-file")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	usersDir, _ := cmd.Flags().GetString("users-dir")
	userFile, _ := cmd.Flags().GetString("user-file")
	testMode, _ := cmd.Flags().GetBool("test")
	printOnly, _ := cmd.Flags().GetBool("print-only")
	noUpdate, _ := cmd.Flags().GetBool("no-update")
	maxResults, _ := cmd.Flags().GetInt("max-results")

	log := slog.Default()

	search := arxiv.NewClient(types.SearchConfig{
		Timeout:    30 * time.Second,
		UserAgent:  "sonar/" + version,
		MaxResults: maxResults,
	}, log)
	send := mailer.New(cfg.SMTP, os.Stdout, log)

	var recorder runner.Recorder
	if cfg.HistoryDB != "" {
		store, err := history.Open(cfg.HistoryDB)
		if err != nil {
			return err
		}
		defer store.Close()
		recorder = store
	}

	r := runner.New(search, send, recorder, runner.Options{
		Test:      testMode,
		PrintOnly: printOnly,
		NoUpdate:  noUpdate,
	}, log)

	return r.RunAll(cmd.Context(), runner.Source{Dir: usersDir, File: userFile})
}
