// Package main provides the job_hunter CLI and HTTP API server.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jonathan/job-hunter/internal/config"
)

var (
	logLevel     string
	closeLogFile = func() error { return nil }
)

var rootCmd = &cobra.Command{
	Use:   "job_hunter",
	Short: "Job search assistant pipeline",
	Long: `job_hunter searches job boards, ranks postings against a resume, picks one,
rewrites the resume for it, researches the company and prepares for the interview.

Stages can run all at once (run), one at a time (step) or behind an HTTP API (serve).`,
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
	PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
		return closeLogFile()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error (defaults to LOG_LEVEL or info)")
}

// setupLogging installs the default slog logger from LOG_FILE, LOG_LEVEL and --log-level.
func setupLogging(cmd *cobra.Command, _ []string) error {
	env := config.FromEnv()
	name := env.LogLevel
	if cmd.Flags().Changed("log-level") {
		name = logLevel
	}

	level, err := config.ParseLevel(name)
	if err != nil {
		return err
	}

	logger, cleanup := config.SetupLogger(env.LogFile, level)
	slog.SetDefault(logger)
	closeLogFile = cleanup
	return nil
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
