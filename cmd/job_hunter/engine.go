package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jonathan/job-hunter/internal/agent"
	"github.com/jonathan/job-hunter/internal/config"
	"github.com/jonathan/job-hunter/internal/fetch"
	"github.com/jonathan/job-hunter/internal/llm"
	"github.com/jonathan/job-hunter/internal/output"
	"github.com/jonathan/job-hunter/internal/pipeline"
	"github.com/jonathan/job-hunter/internal/prompts"
	"github.com/jonathan/job-hunter/internal/search"
)

// loadCatalog returns the prompts in dir, or the embedded prompts when dir is empty.
func loadCatalog(dir string) (*prompts.Catalog, error) {
	if dir == "" {
		return prompts.Default()
	}
	catalog, err := prompts.LoadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load prompts from %s: %w", dir, err)
	}
	return catalog, nil
}

// searchProvider returns the Firecrawl provider, or nil when no key is configured.
func searchProvider(apiKey string) search.Provider {
	if apiKey == "" {
		slog.Warn("FIRECRAWL_API_KEY not set, stages that search the web will fail")
		return nil
	}
	return search.NewFirecrawl(apiKey)
}

// buildEngine wires the Gemini client, search provider, page fetcher and output
// mirror into a pipeline engine. The returned function closes the client.
func buildEngine(ctx context.Context, cfg config.Config) (*pipeline.Engine, func() error, error) {
	if cfg.APIKey == "" {
		return nil, nil, fmt.Errorf("%s environment variable or --api-key is required", config.EnvGeminiAPIKey)
	}

	catalog, err := loadCatalog(cfg.PromptsDir)
	if err != nil {
		return nil, nil, err
	}

	client, err := llm.NewClient(ctx, llm.DefaultConfig(), cfg.APIKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	var renderer fetch.Renderer
	if cfg.UseBrowser {
		renderer = fetch.ChromeRenderer{}
	}
	fetcher := fetch.NewFetcher(nil, renderer, fetch.DefaultCacheTTL)

	executor := agent.NewLLMExecutor(client, catalog, searchProvider(cfg.FirecrawlAPIKey), fetcher)
	mirror := output.NewMirror(cfg.OutputDir)

	engine, err := pipeline.NewEngine(executor, pipeline.WithSink(mirror))
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}

	slog.Debug("engine ready", "output_dir", mirror.Dir(), "use_browser", cfg.UseBrowser)
	return engine, client.Close, nil
}
