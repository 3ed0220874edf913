// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the sonar CLI: a periodic arXiv
// saved-search digest mailer. Each subscriber has a YAML record with a
// search query and a watermark; run queries the window since the watermark
// and emails a digest of new papers.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/sonar/internal/secrets"
	"github.com/pdiddy/sonar/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the sonar CLI.
var rootCmd = &cobra.Command{
	Use:   "sonar",
	Short: "Email digests of new arXiv papers matching saved searches",
	Long: `sonar periodically queries the arXiv API for new papers matching each
subscriber's saved search and emails a digest of results since that
subscriber's last successful run. Watermarks advance only after confirmed
delivery, so a failed run is retried over the same window next time.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, _ := cmd.Flags().GetString("log-level")
		logger, err := setupLogger(level)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "config.yaml", "path to the configuration YAML file")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("secrets-dir", ".secrets", "directory holding optional SMTP credential files")
}

func setupLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), nil
}

// loadConfig reads the configuration file named by --config into an explicit
// Config struct and merges SMTP credentials from the secrets directory.
// A missing or malformed config file aborts startup; everything inside it is
// optional and defaulted.
func loadConfig(cmd *cobra.Command) (types.Config, error) {
	var cfg types.Config

	cfgFile, _ := cmd.Flags().GetString("config")
	v := viper.New()
	v.SetConfigFile(cfgFile)
	v.SetDefault("SMTP_SERVER", "localhost")
	v.SetDefault("SMTP_PORT", 25)
	v.SetDefault("FROM_ADDRESS", "example@example.com")
	v.SetDefault("HISTORY_DB", "")

	if err := v.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("loading configuration %s: %w", cfgFile, err)
	}

	cfg.SMTP = types.SMTPConfig{
		Host: v.GetString("SMTP_SERVER"),
		Port: v.GetInt("SMTP_PORT"),
		From: v.GetString("FROM_ADDRESS"),
	}
	cfg.HistoryDB = v.GetString("HISTORY_DB")

	secretsDir, _ := cmd.Flags().GetString("secrets-dir")
	creds, err := secrets.Load(secretsDir, slog.Default())
	if err != nil {
		return cfg, err
	}
	cfg.SMTP.Username = creds.Username
	cfg.SMTP.Password = creds.Password

	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
