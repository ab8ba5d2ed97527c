// Package agent turns a stage sub-task into a model request: it renders the
// task's prompt configuration, attaches candidate knowledge and, when allowed,
// offers the search tool to the model.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jonathan/job-hunter/internal/llm"
	"github.com/jonathan/job-hunter/internal/prompts"
	"github.com/jonathan/job-hunter/internal/search"
)

// Request is a single sub-task handed to an executor
type Request struct {
	// TaskKey selects the task in the prompt catalog
	TaskKey string
	// Inputs fill the task description placeholders
	Inputs map[string]string
	// Context holds the outputs of earlier sub-tasks of the same stage, in order
	Context []string
	// Knowledge is the candidate's resume text; empty when the stage does not need it
	Knowledge string
	// UseSearch offers the search tool, scoped to Domains
	UseSearch bool
	Domains   []string
	// JSON asks for a single JSON document as the answer
	JSON bool
	Tier llm.ModelTier
}

// Executor performs the reasoning for one sub-task and returns its raw output.
type Executor interface {
	Execute(ctx context.Context, req Request) (string, error)
}

// LLMExecutor executes requests against an llm.Client.
type LLMExecutor struct {
	client   llm.Client
	catalog  *prompts.Catalog
	provider search.Provider
	fetcher  search.TextFetcher
}

// NewLLMExecutor creates an executor. provider may be nil, in which case
// requests asking for search fail. fetcher may be nil.
func NewLLMExecutor(client llm.Client, catalog *prompts.Catalog, provider search.Provider, fetcher search.TextFetcher) *LLMExecutor {
	return &LLMExecutor{
		client:   client,
		catalog:  catalog,
		provider: provider,
		fetcher:  fetcher,
	}
}

// Execute implements Executor.
func (e *LLMExecutor) Execute(ctx context.Context, req Request) (string, error) {
	task, persona, err := e.catalog.Lookup(req.TaskKey)
	if err != nil {
		return "", err
	}

	toolReq := llm.ToolRequest{
		System: BuildSystemPrompt(persona, req.Inputs, req.Knowledge),
		Prompt: BuildTaskPrompt(task, req),
		Tier:   req.Tier,
		JSON:   req.JSON,
	}
	if toolReq.Tier == "" {
		toolReq.Tier = llm.TierStandard
	}
	if req.UseSearch {
		if e.provider == nil {
			return "", &APICallError{Message: fmt.Sprintf("task %s needs search but no search provider is configured", req.TaskKey)}
		}
		adapter := search.NewAdapter(e.provider, req.Domains, e.fetcher)
		toolReq.Tools = []llm.Tool{adapter.Tool()}
	}

	start := time.Now()
	out, err := e.generate(ctx, toolReq)
	if err != nil {
		return "", &APICallError{Message: fmt.Sprintf("task %s", req.TaskKey), Cause: err}
	}
	slog.Debug("task executed", "task", req.TaskKey, "tier", toolReq.Tier, "duration", time.Since(start))
	return out, nil
}

// generate runs a chat with tools when the task offers any, otherwise a single
// generation call with the system prompt prepended.
func (e *LLMExecutor) generate(ctx context.Context, req llm.ToolRequest) (string, error) {
	if len(req.Tools) > 0 {
		return e.client.RunWithTools(ctx, req)
	}
	prompt := req.System + "\n" + req.Prompt
	if req.JSON {
		return e.client.GenerateJSON(ctx, prompt, req.Tier)
	}
	return e.client.GenerateContent(ctx, prompt, req.Tier)
}

// BuildSystemPrompt renders the persona and, when present, the candidate's resume.
func BuildSystemPrompt(persona prompts.Agent, inputs map[string]string, knowledge string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are a %s.\n", strings.TrimSpace(persona.Role))
	if backstory := strings.TrimSpace(persona.Backstory); backstory != "" {
		sb.WriteString(backstory)
		sb.WriteString("\n")
	}
	if goal := strings.TrimSpace(prompts.Format(persona.Goal, inputs)); goal != "" {
		fmt.Fprintf(&sb, "Your goal: %s\n", goal)
	}
	if knowledge = strings.TrimSpace(knowledge); knowledge != "" {
		sb.WriteString("\nCandidate resume:\n")
		sb.WriteString(knowledge)
		sb.WriteString("\n")
	}
	return sb.String()
}

// BuildTaskPrompt renders the task description, earlier sub-task outputs and the expected output.
func BuildTaskPrompt(task prompts.Task, req Request) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(prompts.Format(task.Description, req.Inputs)))
	sb.WriteString("\n")

	for i, prior := range req.Context {
		fmt.Fprintf(&sb, "\nContext %d:\n%s\n", i+1, strings.TrimSpace(prior))
	}

	if expected := strings.TrimSpace(task.ExpectedOutput); expected != "" {
		fmt.Fprintf(&sb, "\nExpected output: %s\n", expected)
	}
	if req.JSON {
		sb.WriteString("Respond with only the JSON document, no prose and no code fences.\n")
	}
	return sb.String()
}
