package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonathan/job-hunter/internal/agent"
	"github.com/jonathan/job-hunter/internal/types"
)

const (
	jobsJSON = `{"jobs": [
		{"title": "Go Engineer", "company": "Acme", "location": "Seoul", "url": "https://jobs.example/1", "description": "APIs"},
		{"title": "SRE", "company": "Globex", "location": "Seoul", "url": "https://jobs.example/2", "description": "On-call"},
		{"title": "Data Engineer", "company": "Initech", "location": "Seoul", "url": "https://jobs.example/3", "description": "Pipelines"}
	]}`
	rankedJSON = `{"ranked_jobs": [
		{"title": "SRE", "company": "Globex", "location": "Seoul", "url": "https://jobs.example/2", "description": "On-call", "score": 70, "rationale": "ops"},
		{"title": "Data Engineer", "company": "Initech", "location": "Seoul", "url": "https://jobs.example/3", "description": "Pipelines", "score": 90, "rationale": "data"},
		{"title": "Go Engineer", "company": "Acme", "location": "Seoul", "url": "https://jobs.example/1", "description": "APIs", "score": 70, "rationale": "go"}
	]}`
	chosenJSON = `{"job": {"title": "Data Engineer", "company": "Initech", "location": "Seoul", "url": "https://jobs.example/3", "description": "Pipelines"}, "justification": "best fit"}`
)

// scriptedExecutor answers each task key with a canned output or error
type scriptedExecutor struct {
	mu       sync.Mutex
	outputs  map[string]string
	failures map[string]error
	requests []agent.Request
}

func newScriptedExecutor() *scriptedExecutor {
	return &scriptedExecutor{
		outputs: map[string]string{
			"job_extraction_task":   jobsJSON,
			"job_matching_task":     rankedJSON,
			"job_selection_task":    "```json\n" + chosenJSON + "\n```",
			"resume_rewriting_task": "# Resume\nRewritten",
			"company_research_task": "# Initech\nResearch",
			"interview_prep_task":   "# Prep\nQuestions",
		},
		failures: map[string]error{},
	}
}

func (s *scriptedExecutor) Execute(_ context.Context, req agent.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if err, ok := s.failures[req.TaskKey]; ok {
		return "", err
	}
	out, ok := s.outputs[req.TaskKey]
	if !ok {
		return "", fmt.Errorf("no scripted output for %s", req.TaskKey)
	}
	return out, nil
}

func (s *scriptedExecutor) taskKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, len(s.requests))
	for i, req := range s.requests {
		keys[i] = req.TaskKey
	}
	return keys
}

type memorySink struct {
	saved map[types.ArtifactKind]string
	err   error
}

func (m *memorySink) Save(kind types.ArtifactKind, text string) error {
	if m.err != nil {
		return m.err
	}
	if m.saved == nil {
		m.saved = make(map[types.ArtifactKind]string)
	}
	m.saved[kind] = text
	return nil
}

func testInputs() types.RunInputs {
	return types.RunInputs{
		SearchParams: types.SearchParams{
			Level:    "Senior",
			Position: "Engineer",
			Location: "Seoul",
			JobSites: []string{"jobs.example"},
		},
		ResumeText: "Ten years of Go",
	}
}
