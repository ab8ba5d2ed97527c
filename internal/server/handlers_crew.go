package server

import (
	"log/slog"
	"net/http"

	"github.com/jonathan/job-hunter/internal/pipeline"
	"github.com/jonathan/job-hunter/internal/tasks"
	"github.com/jonathan/job-hunter/internal/types"
)

// KickoffResponse represents the response for /crew/kickoff
type KickoffResponse struct {
	TaskID string       `json:"task_id"`
	Status tasks.Status `json:"status"`
}

// StatusResponse represents the response for /crew/status/{task_id}
type StatusResponse struct {
	TaskID string            `json:"task_id"`
	Status tasks.Status      `json:"status"`
	Result *types.CrewResult `json:"result,omitempty"`
	Error  string            `json:"error,omitempty"`
}

// TaskSummary is one entry of the /crew/tasks listing
type TaskSummary struct {
	Status tasks.Status `json:"status"`
}

// handleKickoff dispatches a full run in the background and returns its task id
func (s *Server) handleKickoff(w http.ResponseWriter, r *http.Request) {
	inputs, err := s.runInputs(r)
	if err != nil {
		s.fail(w, err)
		return
	}

	id := s.dispatcher.Dispatch(inputs)
	slog.Info("run dispatched", "task_id", id, "position", inputs.Position)

	s.jsonResponse(w, http.StatusOK, KickoffResponse{TaskID: id, Status: tasks.StatusRunning})
}

// handleKickoffSync runs the full pipeline on the request and returns the result
func (s *Server) handleKickoffSync(w http.ResponseWriter, r *http.Request) {
	inputs, err := s.runInputs(r)
	if err != nil {
		s.fail(w, err)
		return
	}

	result, err := s.pipeline.Run(r.Context(), inputs)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

// handleKickoffStream runs the full pipeline and streams progress via SSE
func (s *Server) handleKickoffStream(w http.ResponseWriter, r *http.Request) {
	inputs, err := s.runInputs(r)
	if err != nil {
		s.fail(w, err)
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	result, err := s.pipeline.RunWithProgress(r.Context(), inputs, func(event pipeline.ProgressEvent) {
		sse.WriteProgress(event)
	})
	if err != nil {
		slog.Error("streamed run failed", "error", err)
		sse.WriteError(err.Error())
		return
	}
	sse.WriteComplete(result)
}

// handleStatus returns the state of a dispatched run
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	record, err := s.dispatcher.Store().Get(r.PathValue("task_id"))
	if err != nil {
		s.fail(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, StatusResponse{
		TaskID: record.ID,
		Status: record.Status,
		Result: record.Result,
		Error:  record.Error,
	})
}

// handleListTasks returns every known task id with its status
func (s *Server) handleListTasks(w http.ResponseWriter, _ *http.Request) {
	statuses := s.dispatcher.Store().List()
	response := make(map[string]TaskSummary, len(statuses))
	for id, status := range statuses {
		response[id] = TaskSummary{Status: status}
	}
	s.jsonResponse(w, http.StatusOK, response)
}
