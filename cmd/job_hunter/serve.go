package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/job-hunter/internal/config"
	"github.com/jonathan/job-hunter/internal/server"
)

var (
	servePort       int
	serveUseBrowser bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes the /crew endpoints for running the job-search pipeline.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", config.DefaultPort, "Port to listen on (defaults to PORT or 8000)")
	serveCmd.Flags().BoolVar(&serveUseBrowser, "use-browser", false, "Render thin result pages with a headless browser (requires Chrome)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := config.FromEnv()
	if cmd.Flags().Changed("port") || cfg.Port == 0 {
		cfg.Port = servePort
	}
	cfg.UseBrowser = serveUseBrowser
	if err := cfg.Validate(); err != nil {
		return err
	}

	engine, closeClient, err := buildEngine(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer closeClient() //nolint:errcheck

	srv, err := server.New(server.Config{Port: cfg.Port, Pipeline: engine})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}
