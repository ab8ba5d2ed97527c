package search

import (
	"context"
	"log/slog"

	"github.com/jonathan/job-hunter/internal/llm"
)

// ToolName is the name the executor sees for the search tool
const ToolName = "web_search_tool"

// TextFetcher retrieves the readable text of a page
type TextFetcher interface {
	Text(ctx context.Context, url string) (string, error)
}

// Adapter scopes queries to a fixed set of domains and sanitizes the results.
type Adapter struct {
	provider Provider
	domains  []string
	fetcher  TextFetcher
}

// NewAdapter creates an adapter. domains may be empty for unscoped search and
// fetcher may be nil to leave empty results untouched.
func NewAdapter(provider Provider, domains []string, fetcher TextFetcher) *Adapter {
	return &Adapter{
		provider: provider,
		domains:  append([]string(nil), domains...),
		fetcher:  fetcher,
	}
}

// Search runs a scoped query and returns sanitized results or the provider's error.
func (a *Adapter) Search(ctx context.Context, query string) Response {
	resp := a.provider.Search(ctx, BuildQuery(query, a.domains))
	if resp.Failed() {
		slog.Warn("search failed", "query", query, "error", resp.Error)
		return resp
	}

	results := make([]Result, 0, len(resp.Results))
	for _, result := range resp.Results {
		body := result.Markdown
		if body == "" && a.fetcher != nil && result.URL != "" {
			text, err := a.fetcher.Text(ctx, result.URL)
			if err != nil {
				slog.Debug("fetch fallback failed", "url", result.URL, "error", err)
			} else {
				body = text
			}
		}
		result.Markdown = Sanitize(body)
		results = append(results, result)
	}
	return Response{Results: results}
}

// Tool exposes the adapter as a function the model can call.
func (a *Adapter) Tool() llm.Tool {
	return llm.Tool{
		Name:        ToolName,
		Description: "Search the web and return the title, url and page text of each result.",
		Params: []llm.ToolParam{
			{Name: "query", Description: "Search terms", Required: true},
		},
		Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			query, err := llm.StringArg(args, "query")
			if err != nil {
				return nil, err
			}
			return llm.ToMap(a.Search(ctx, query))
		},
	}
}
