package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/job-hunter/internal/config"
	"github.com/jonathan/job-hunter/internal/ingestion"
	"github.com/jonathan/job-hunter/internal/observability"
	"github.com/jonathan/job-hunter/internal/pipeline"
	"github.com/jonathan/job-hunter/internal/types"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Run the full job-search pipeline end-to-end",
	Long: `Runs every stage in order: search -> match -> resume -> research -> interview.
The aggregated result is printed as JSON; text artifacts are also written to the output directory.

Configuration can be loaded from a JSON file using --config. Command-line arguments override config file values.`,
	RunE: runPipelineCmd,
}

// runFlags holds the flags shared by run and the step commands
type runFlags struct {
	configPath string
	level      string
	position   string
	location   string
	resume     string
	jobSites   string
	apiKey     string
	outputDir  string
	useBrowser bool
	verbose    bool
}

var runOpts runFlags

func (f *runFlags) register(cmd *cobra.Command, withResume bool) {
	cmd.Flags().StringVar(&f.configPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	cmd.Flags().StringVarP(&f.level, "level", "l", "", "Seniority level, e.g. Senior")
	cmd.Flags().StringVarP(&f.position, "position", "p", "", "Position title, e.g. Backend Engineer")
	cmd.Flags().StringVar(&f.location, "location", "", "Job location, e.g. Remote")
	cmd.Flags().StringVar(&f.jobSites, "job-sites", "", "Comma-separated domains to restrict the search to")
	if withResume {
		cmd.Flags().StringVarP(&f.resume, "resume", "r", "", "Path to resume (.txt, .md or .pdf)")
	}
	cmd.Flags().StringVar(&f.apiKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")
	cmd.Flags().StringVarP(&f.outputDir, "output-dir", "o", "", "Directory text artifacts are written to (defaults to OUTPUT_DIR or output)")
	cmd.Flags().BoolVar(&f.useBrowser, "use-browser", false, "Use headless browser for thin result pages (requires Chrome)")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Print each stage's output as it completes")
}

func init() {
	runOpts.register(runCommand, true)
	rootCmd.AddCommand(runCommand)
}

// resolveConfig layers the config file, explicitly set flags and the environment.
// Flags win over the file, and both win over environment variables.
func (f *runFlags) resolveConfig(cmd *cobra.Command) (config.Config, error) {
	var cfg config.Config
	if f.configPath != "" {
		loaded, err := config.LoadConfig(f.configPath)
		if err != nil {
			return cfg, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loaded
	}

	changed := cmd.Flags().Changed
	if changed("level") {
		cfg.Level = f.level
	}
	if changed("position") {
		cfg.Position = f.position
	}
	if changed("location") {
		cfg.Location = f.location
	}
	if changed("resume") {
		cfg.Resume = f.resume
	}
	if changed("job-sites") {
		cfg.JobSites = config.ParseJobSites(f.jobSites)
	}
	if changed("api-key") {
		cfg.APIKey = f.apiKey
	}
	if changed("output-dir") {
		cfg.OutputDir = f.outputDir
	}
	if changed("use-browser") {
		cfg.UseBrowser = f.useBrowser
	}
	if changed("verbose") {
		cfg.Verbose = f.verbose
	}

	cfg = cfg.MergeWithDefaults(config.FromEnv())
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// searchParams returns the search criteria, requiring each of them.
func searchParams(cfg config.Config) (types.SearchParams, error) {
	params := types.SearchParams{
		Level:    cfg.Level,
		Position: cfg.Position,
		Location: cfg.Location,
		JobSites: cfg.JobSites,
	}
	required := []struct{ flag, value string }{
		{"level", cfg.Level},
		{"position", cfg.Position},
		{"location", cfg.Location},
	}
	for _, r := range required {
		if r.value == "" {
			return params, fmt.Errorf("--%s is required (or set it in the config file)", r.flag)
		}
	}
	return params, nil
}

// readResume loads the resume named in cfg.
func readResume(cfg config.Config) (string, error) {
	if cfg.Resume == "" {
		return "", fmt.Errorf("--resume is required (or set it in the config file)")
	}
	return ingestion.ReadResumeFile(cfg.Resume, ingestion.PDFExtractor{})
}

// progressPrinter reports stage progress on out. When verbose, each completed
// stage's artifacts are printed too.
func progressPrinter(out io.Writer, verbose bool) pipeline.ProgressCallback {
	printer := observability.NewPrinter(out)
	return func(event pipeline.ProgressEvent) {
		_, _ = fmt.Fprintln(out, event.Message)
		if !verbose {
			return
		}
		if artifacts, ok := event.Content.([]types.Artifact); ok {
			for _, artifact := range artifacts {
				printer.PrintArtifact(artifact)
			}
		}
	}
}

// writeJSON prints v as indented JSON.
func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runPipelineCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := runOpts.resolveConfig(cmd)
	if err != nil {
		return err
	}
	params, err := searchParams(cfg)
	if err != nil {
		return err
	}
	resume, err := readResume(cfg)
	if err != nil {
		return err
	}

	engine, closeClient, err := buildEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeClient() //nolint:errcheck

	inputs := types.RunInputs{SearchParams: params, ResumeText: resume}
	result, err := engine.RunWithProgress(ctx, inputs, progressPrinter(os.Stderr, cfg.Verbose))
	if err != nil {
		return err
	}
	return writeJSON(os.Stdout, result)
}
