package server

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jonathan/job-hunter/internal/pipeline"
	"github.com/jonathan/job-hunter/internal/server/ratelimit"
	"github.com/jonathan/job-hunter/internal/tasks"
	"github.com/jonathan/job-hunter/internal/types"
)

var testJob = types.Job{
	Title:       "Backend Engineer",
	Company:     "Acme",
	Location:    "Remote",
	URL:         "https://jobs.example.com/acme/1",
	Description: "Build services in Go",
}

var testResult = &types.CrewResult{
	Jobs:            []types.Job{testJob},
	RankedJobs:      []types.RankedJob{{Job: testJob, Score: 90, Rationale: "strong Go background"}},
	ChosenJob:       &types.ChosenJob{Job: testJob, Justification: "best fit"},
	RewrittenResume: "# Resume",
	CompanyResearch: "# Acme",
	InterviewPrep:   "# Questions",
}

// fakePipeline records the calls it receives and returns canned outputs.
type fakePipeline struct {
	mu       sync.Mutex
	err      error
	inputs   []types.RunInputs
	params   []types.SearchParams
	jobs     []types.JobList
	chosen   []types.ChosenJob
	resumes  []string
	draft    types.ResumeDraft
	research types.CompanyResearch
	block    chan struct{}
}

func (f *fakePipeline) Run(ctx context.Context, inputs types.RunInputs) (*types.CrewResult, error) {
	return f.RunWithProgress(ctx, inputs, nil)
}

func (f *fakePipeline) RunWithProgress(_ context.Context, inputs types.RunInputs, onProgress pipeline.ProgressCallback) (*types.CrewResult, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	f.inputs = append(f.inputs, inputs)
	f.mu.Unlock()

	if onProgress != nil {
		onProgress(pipeline.ProgressEvent{Step: "search", Message: "Step 1/5: running search..."})
		onProgress(pipeline.ProgressEvent{Step: "search", Message: "Step 1/5: search complete"})
	}
	if f.err != nil {
		return nil, f.err
	}
	return testResult, nil
}

func (f *fakePipeline) Search(_ context.Context, params types.SearchParams) (types.JobList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.params = append(f.params, params)
	if f.err != nil {
		return types.JobList{}, f.err
	}
	return types.JobList{Jobs: []types.Job{testJob}}, nil
}

func (f *fakePipeline) Match(_ context.Context, jobs types.JobList, resume string) (types.RankedJobList, types.ChosenJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, jobs)
	f.resumes = append(f.resumes, resume)
	if f.err != nil {
		return types.RankedJobList{}, types.ChosenJob{}, f.err
	}
	return types.RankedJobList{RankedJobs: testResult.RankedJobs}, *testResult.ChosenJob, nil
}

func (f *fakePipeline) Resume(_ context.Context, chosen types.ChosenJob, resume string) (types.ResumeDraft, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chosen = append(f.chosen, chosen)
	f.resumes = append(f.resumes, resume)
	if f.err != nil {
		return "", f.err
	}
	return "# Resume", nil
}

func (f *fakePipeline) Research(_ context.Context, chosen types.ChosenJob, resume string) (types.CompanyResearch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chosen = append(f.chosen, chosen)
	f.resumes = append(f.resumes, resume)
	if f.err != nil {
		return "", f.err
	}
	return "# Acme", nil
}

func (f *fakePipeline) Interview(_ context.Context, chosen types.ChosenJob, draft types.ResumeDraft, research types.CompanyResearch, resume string) (types.InterviewPrep, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chosen = append(f.chosen, chosen)
	f.resumes = append(f.resumes, resume)
	f.draft = draft
	f.research = research
	if f.err != nil {
		return "", f.err
	}
	return "# Questions", nil
}

// stubExtractor returns fixed text for any document.
type stubExtractor struct {
	text string
	err  error
}

func (s stubExtractor) ExtractText([]byte) (string, error) {
	return s.text, s.err
}

var errStage = &pipeline.StageExecutionError{Stage: "match", Cause: errors.New("executor unavailable")}

func newTestServer(t *testing.T, fake *fakePipeline) *Server {
	t.Helper()
	s, err := New(Config{
		Pipeline:   fake,
		Dispatcher: tasks.NewDispatcher(tasks.NewStore(), fake),
		Extractor:  stubExtractor{text: "Extracted resume"},
		RateLimit:  &ratelimit.Config{Enabled: false},
	})
	require.NoError(t, err)
	t.Cleanup(s.rateLimiter.Stop)
	return s
}

func formRequest(method, target string, fields map[string]string) *http.Request {
	values := url.Values{}
	for k, v := range fields {
		values.Set(k, v)
	}
	req := httptest.NewRequest(method, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func multipartRequest(t *testing.T, target string, fields map[string]string, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		part, err := mw.CreateFormFile("resume_file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func runFields() map[string]string {
	return map[string]string{
		"level":       "Senior",
		"position":    "Backend Engineer",
		"location":    "Remote",
		"resume_text": "Ten years of Go",
	}
}
