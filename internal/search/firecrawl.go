package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultEndpoint is the Firecrawl search API.
	DefaultEndpoint = "https://api.firecrawl.dev/v1/search"
	// DefaultLimit is the number of results requested per query.
	DefaultLimit = 5
	// DefaultTimeout bounds a single search request.
	DefaultTimeout = 60 * time.Second
)

// Result is a single search hit
type Result struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	Markdown string `json:"markdown"`
}

// Response carries search results or a descriptive error.
// Failures are reported as data so they can be handed back to the executor verbatim.
type Response struct {
	Results []Result `json:"results,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// Failed reports whether the provider call was unsuccessful.
func (r Response) Failed() bool {
	return r.Error != ""
}

func failure(format string, args ...any) Response {
	return Response{Error: "Error using tool: " + fmt.Sprintf(format, args...)}
}

// Provider performs a raw search for an already-built query
type Provider interface {
	Search(ctx context.Context, query string) Response
}

// Firecrawl calls the Firecrawl search API
type Firecrawl struct {
	APIKey     string
	Endpoint   string
	Limit      int
	HTTPClient *http.Client
}

// NewFirecrawl creates a Firecrawl provider with default endpoint and limit.
func NewFirecrawl(apiKey string) *Firecrawl {
	return &Firecrawl{
		APIKey:     apiKey,
		Endpoint:   DefaultEndpoint,
		Limit:      DefaultLimit,
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
	}
}

type firecrawlRequest struct {
	Query         string                 `json:"query"`
	Limit         int                    `json:"limit"`
	ScrapeOptions firecrawlScrapeOptions `json:"scrapeOptions"`
}

type firecrawlScrapeOptions struct {
	Formats []string `json:"formats"`
}

type firecrawlResponse struct {
	Success bool     `json:"success"`
	Data    []Result `json:"data"`
	Error   string   `json:"error,omitempty"`
}

// Search implements Provider. It never returns a Go error; see Response.Error.
func (f *Firecrawl) Search(ctx context.Context, query string) Response {
	payload, err := json.Marshal(firecrawlRequest{
		Query:         query,
		Limit:         f.limit(),
		ScrapeOptions: firecrawlScrapeOptions{Formats: []string{"markdown"}},
	})
	if err != nil {
		return failure("failed to encode request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint(), bytes.NewReader(payload))
	if err != nil {
		return failure("failed to create request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+f.APIKey)
	req.Header.Set("Content-Type", "application/json")

	client := f.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}

	resp, err := client.Do(req)
	if err != nil {
		return failure("request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return failure("failed to read response: %v", err)
	}

	var decoded firecrawlResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return failure("HTTP %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !decoded.Success {
		return failure("HTTP %d: %s", resp.StatusCode, truncate(string(body), 500))
	}

	return Response{Results: decoded.Data}
}

func (f *Firecrawl) endpoint() string {
	if f.Endpoint == "" {
		return DefaultEndpoint
	}
	return f.Endpoint
}

func (f *Firecrawl) limit() int {
	if f.Limit <= 0 {
		return DefaultLimit
	}
	return f.Limit
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
