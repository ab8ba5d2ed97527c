// Package config provides configuration loading and validation for the CLI and server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Environment variables read by FromEnv
const (
	EnvGeminiAPIKey    = "GEMINI_API_KEY"
	EnvFirecrawlAPIKey = "FIRECRAWL_API_KEY"
	EnvOutputDir       = "OUTPUT_DIR"
	EnvPromptsDir      = "PROMPTS_DIR"
	EnvPort            = "PORT"
	EnvLogFile         = "LOG_FILE"
	EnvLogLevel        = "LOG_LEVEL"
)

// DefaultPort is the HTTP port used when none is configured
const DefaultPort = 8000

// Config represents the configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults, environment variables or CLI flags.
type Config struct {
	// Run inputs
	Level    string   `json:"level,omitempty"`     // Seniority level to search for
	Position string   `json:"position,omitempty"`  // Position title to search for
	Location string   `json:"location,omitempty"`  // Job location
	Resume   string   `json:"resume,omitempty"`    // Path to resume (.txt, .md or .pdf)
	JobSites []string `json:"job_sites,omitempty"` // Domains the search is restricted to

	// Credentials
	APIKey          string `json:"api_key,omitempty"`           // Gemini API key
	FirecrawlAPIKey string `json:"firecrawl_api_key,omitempty"` // Firecrawl API key

	// Paths
	OutputDir  string `json:"output_dir,omitempty"`  // Directory text artifacts are mirrored to
	PromptsDir string `json:"prompts_dir,omitempty"` // Directory with agents.yaml and tasks.yaml overriding the embedded prompts

	// Server
	Port int `json:"port,omitempty"`

	// Behavior
	UseBrowser bool   `json:"use_browser,omitempty"` // Render thin result pages with a headless browser
	Verbose    bool   `json:"verbose,omitempty"`     // Print detailed stage output
	LogFile    string `json:"log_file,omitempty"`    // Also write JSON logs to this file
	LogLevel   string `json:"log_level,omitempty"`   // debug, info, warn or error
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// FromEnv returns a Config populated from environment variables.
func FromEnv() Config {
	cfg := Config{
		APIKey:          os.Getenv(EnvGeminiAPIKey),
		FirecrawlAPIKey: os.Getenv(EnvFirecrawlAPIKey),
		OutputDir:       os.Getenv(EnvOutputDir),
		PromptsDir:      os.Getenv(EnvPromptsDir),
		LogFile:         os.Getenv(EnvLogFile),
		LogLevel:        os.Getenv(EnvLogLevel),
	}
	if port, err := strconv.Atoi(os.Getenv(EnvPort)); err == nil {
		cfg.Port = port
	}
	return cfg
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by CLI flag validation after merging.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 0 and 65535")
	}

	if c.LogLevel != "" {
		if _, err := ParseLevel(c.LogLevel); err != nil {
			return fmt.Errorf("config error: %w", err)
		}
	}

	if c.Resume != "" {
		if _, err := os.Stat(c.Resume); os.IsNotExist(err) {
			return fmt.Errorf("config error: resume file not found: %s", c.Resume)
		}
	}

	if c.PromptsDir != "" {
		info, err := os.Stat(c.PromptsDir)
		if err != nil || !info.IsDir() {
			return fmt.Errorf("config error: prompts directory not found: %s", c.PromptsDir)
		}
	}

	for _, site := range c.JobSites {
		if strings.TrimSpace(site) == "" || strings.Contains(site, " ") {
			return fmt.Errorf("config error: invalid job site %q", site)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file and environment values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fill(&result.Level, defaults.Level)
	fill(&result.Position, defaults.Position)
	fill(&result.Location, defaults.Location)
	fill(&result.Resume, defaults.Resume)
	fill(&result.APIKey, defaults.APIKey)
	fill(&result.FirecrawlAPIKey, defaults.FirecrawlAPIKey)
	fill(&result.OutputDir, defaults.OutputDir)
	fill(&result.PromptsDir, defaults.PromptsDir)
	fill(&result.LogFile, defaults.LogFile)
	fill(&result.LogLevel, defaults.LogLevel)

	if len(result.JobSites) == 0 {
		result.JobSites = defaults.JobSites
	}
	if result.Port == 0 {
		result.Port = defaults.Port
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// ParseJobSites splits a comma-separated list of domains.
func ParseJobSites(value string) []string {
	var sites []string
	for _, part := range strings.Split(value, ",") {
		if site := strings.TrimSpace(part); site != "" {
			sites = append(sites, site)
		}
	}
	return sites
}
