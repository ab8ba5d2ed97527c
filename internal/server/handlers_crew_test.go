package server

import (
	"bufio"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/job-hunter/internal/tasks"
	"github.com/jonathan/job-hunter/internal/types"
)

func TestKickoff_DispatchesAndCompletes(t *testing.T) {
	fake := &fakePipeline{}
	s := newTestServer(t, fake)

	fields := runFields()
	fields["job_sites"] = `["linkedin.com", "indeed.com"]`
	rec := serve(s, formRequest(http.MethodPost, "/crew/kickoff", fields))
	require.Equal(t, http.StatusOK, rec.Code)

	var kicked KickoffResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &kicked))
	assert.NotEmpty(t, kicked.TaskID)
	assert.Equal(t, tasks.StatusRunning, kicked.Status)

	s.Dispatcher().Wait()

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/crew/status/"+kicked.TaskID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var status StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, tasks.StatusCompleted, status.Status)
	assert.Empty(t, status.Error)
	if diff := cmp.Diff(testResult, status.Result); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}

	want := types.RunInputs{
		SearchParams: types.SearchParams{
			Level:    "Senior",
			Position: "Backend Engineer",
			Location: "Remote",
			JobSites: []string{"linkedin.com", "indeed.com"},
		},
		ResumeText: "Ten years of Go",
	}
	require.Len(t, fake.inputs, 1)
	if diff := cmp.Diff(want, fake.inputs[0]); diff != "" {
		t.Errorf("inputs mismatch (-want +got):\n%s", diff)
	}
}

func TestKickoff_FailedRun(t *testing.T) {
	s := newTestServer(t, &fakePipeline{err: errStage})

	rec := serve(s, formRequest(http.MethodPost, "/crew/kickoff", runFields()))
	require.Equal(t, http.StatusOK, rec.Code)
	var kicked KickoffResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &kicked))

	s.Dispatcher().Wait()

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/crew/status/"+kicked.TaskID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "failed", body["status"])
	assert.Equal(t, "stage match failed: executor unavailable", body["error"])
	assert.NotContains(t, body, "result")
}

func TestKickoff_InvalidJobSitesTreatedAsAbsent(t *testing.T) {
	fake := &fakePipeline{}
	s := newTestServer(t, fake)

	fields := runFields()
	fields["job_sites"] = "linkedin.com"
	rec := serve(s, formRequest(http.MethodPost, "/crew/kickoff", fields))
	require.Equal(t, http.StatusOK, rec.Code)
	s.Dispatcher().Wait()

	require.Len(t, fake.inputs, 1)
	assert.Nil(t, fake.inputs[0].JobSites)
}

func TestKickoff_ResumeErrors(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     string
	}{
		{"no resume", "", "Either resume_text or resume_file must be provided"},
		{"not a pdf", "resume.docx", "Only PDF files are supported"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakePipeline{}
			s := newTestServer(t, fake)

			fields := runFields()
			delete(fields, "resume_text")
			rec := serve(s, multipartRequest(t, "/crew/kickoff", fields, tt.filename, []byte("data")))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.JSONEq(t, `{"detail": "`+tt.want+`"}`, rec.Body.String())
			assert.Empty(t, s.Dispatcher().Store().List())
		})
	}
}

func TestKickoff_URLEncodedWithoutResume(t *testing.T) {
	s := newTestServer(t, &fakePipeline{})

	fields := runFields()
	delete(fields, "resume_text")
	rec := serve(s, formRequest(http.MethodPost, "/crew/kickoff", fields))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"detail": "Either resume_text or resume_file must be provided"}`, rec.Body.String())
	assert.Empty(t, s.Dispatcher().Store().List())
}

func TestKickoff_MissingField(t *testing.T) {
	s := newTestServer(t, &fakePipeline{})

	fields := runFields()
	delete(fields, "position")
	rec := serve(s, formRequest(http.MethodPost, "/crew/kickoff", fields))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "position")
}

func TestKickoff_PDFResume(t *testing.T) {
	fake := &fakePipeline{}
	s := newTestServer(t, fake)

	fields := runFields()
	delete(fields, "resume_text")
	rec := serve(s, multipartRequest(t, "/crew/kickoff", fields, "CV.PDF", []byte("%PDF-1.4")))
	require.Equal(t, http.StatusOK, rec.Code)
	s.Dispatcher().Wait()

	require.Len(t, fake.inputs, 1)
	assert.Equal(t, "Extracted resume", fake.inputs[0].ResumeText)
}

func TestKickoffSync(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		s := newTestServer(t, &fakePipeline{})

		rec := serve(s, formRequest(http.MethodPost, "/crew/kickoff/sync", runFields()))
		require.Equal(t, http.StatusOK, rec.Code)

		var got types.CrewResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		if diff := cmp.Diff(*testResult, got); diff != "" {
			t.Errorf("result mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("stage failure", func(t *testing.T) {
		s := newTestServer(t, &fakePipeline{err: errStage})

		rec := serve(s, formRequest(http.MethodPost, "/crew/kickoff/sync", runFields()))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"detail": "stage match failed: executor unavailable"}`, rec.Body.String())
	})
}

func readEvents(t *testing.T, body string) []string {
	t.Helper()
	var events []string
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		if name, ok := strings.CutPrefix(scanner.Text(), "event: "); ok {
			events = append(events, name)
		}
	}
	require.NoError(t, scanner.Err())
	return events
}

func TestKickoffStream(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		s := newTestServer(t, &fakePipeline{})

		rec := serve(s, formRequest(http.MethodPost, "/crew/kickoff/stream", runFields()))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

		body := rec.Body.String()
		assert.Equal(t, []string{EventProgress, EventProgress, EventComplete}, readEvents(t, body))
		assert.Contains(t, body, `"message":"Step 1/5: search complete"`)
		assert.Contains(t, body, `"status":"completed"`)
		assert.Contains(t, body, `"interview_prep":"# Questions"`)
	})

	t.Run("failure", func(t *testing.T) {
		s := newTestServer(t, &fakePipeline{err: errors.New("search provider down")})

		rec := serve(s, formRequest(http.MethodPost, "/crew/kickoff/stream", runFields()))
		require.Equal(t, http.StatusOK, rec.Code)

		assert.Equal(t, []string{EventProgress, EventProgress, EventError}, readEvents(t, rec.Body.String()))
		assert.Contains(t, rec.Body.String(), `"detail":"search provider down"`)
	})

	t.Run("bad input is a plain 400", func(t *testing.T) {
		s := newTestServer(t, &fakePipeline{})

		fields := runFields()
		delete(fields, "resume_text")
		rec := serve(s, formRequest(http.MethodPost, "/crew/kickoff/stream", fields))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	})
}

func TestStatus_NotFound(t *testing.T) {
	s := newTestServer(t, &fakePipeline{})

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/crew/status/missing", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"detail": "Task not found"}`, rec.Body.String())
}

func TestStatus_Running(t *testing.T) {
	fake := &fakePipeline{block: make(chan struct{})}
	s := newTestServer(t, fake)

	rec := serve(s, formRequest(http.MethodPost, "/crew/kickoff", runFields()))
	require.Equal(t, http.StatusOK, rec.Code)
	var kicked KickoffResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &kicked))

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/crew/status/"+kicked.TaskID, nil))
	assert.JSONEq(t, `{"task_id": "`+kicked.TaskID+`", "status": "running"}`, rec.Body.String())

	close(fake.block)
	s.Dispatcher().Wait()
}

func TestListTasks(t *testing.T) {
	s := newTestServer(t, &fakePipeline{})

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/crew/tasks", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{}`, rec.Body.String())

	var ids []string
	for i := 0; i < 2; i++ {
		rec := serve(s, formRequest(http.MethodPost, "/crew/kickoff", runFields()))
		var kicked KickoffResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &kicked))
		ids = append(ids, kicked.TaskID)
	}
	s.Dispatcher().Wait()

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/crew/tasks", nil))
	var listed map[string]TaskSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))

	want := map[string]TaskSummary{
		ids[0]: {Status: tasks.StatusCompleted},
		ids[1]: {Status: tasks.StatusCompleted},
	}
	if diff := cmp.Diff(want, listed); diff != "" {
		t.Errorf("tasks mismatch (-want +got):\n%s", diff)
	}
}
