package server

import (
	"net/http"

	"github.com/jonathan/job-hunter/internal/types"
)

// SearchStepResponse represents the response for /crew/step/search
type SearchStepResponse struct {
	Jobs types.JobList `json:"jobs"`
}

// MatchStepResponse represents the response for /crew/step/match
type MatchStepResponse struct {
	RankedJobs types.RankedJobList `json:"ranked_jobs"`
	ChosenJob  types.ChosenJob     `json:"chosen_job"`
}

// handleStepSearch runs the search stage
func (s *Server) handleStepSearch(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		s.fail(w, err)
		return
	}
	params, err := searchParams(r)
	if err != nil {
		s.fail(w, err)
		return
	}

	jobs, err := s.pipeline.Search(r.Context(), params)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, SearchStepResponse{Jobs: jobs})
}

// handleStepMatch ranks the supplied jobs against the resume and chooses one
func (s *Server) handleStepMatch(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		s.fail(w, err)
		return
	}
	resume, err := s.resumeContent(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	jobs, err := jobListField(r)
	if err != nil {
		s.fail(w, err)
		return
	}

	ranked, chosen, err := s.pipeline.Match(r.Context(), jobs, resume)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, MatchStepResponse{RankedJobs: ranked, ChosenJob: chosen})
}

// handleStepResume rewrites the resume for the chosen job
func (s *Server) handleStepResume(w http.ResponseWriter, r *http.Request) {
	chosen, resume, ok := s.chosenJobStep(w, r)
	if !ok {
		return
	}

	draft, err := s.pipeline.Resume(r.Context(), chosen, resume)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"rewritten_resume": string(draft)})
}

// handleStepResearch researches the chosen job's company
func (s *Server) handleStepResearch(w http.ResponseWriter, r *http.Request) {
	chosen, resume, ok := s.chosenJobStep(w, r)
	if !ok {
		return
	}

	research, err := s.pipeline.Research(r.Context(), chosen, resume)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"company_research": string(research)})
}

// handleStepInterview prepares interview material from the earlier step outputs
func (s *Server) handleStepInterview(w http.ResponseWriter, r *http.Request) {
	chosen, resume, ok := s.chosenJobStep(w, r)
	if !ok {
		return
	}
	draft, err := requiredField(r, "rewritten_resume")
	if err != nil {
		s.fail(w, err)
		return
	}
	research, err := requiredField(r, "company_research")
	if err != nil {
		s.fail(w, err)
		return
	}

	prep, err := s.pipeline.Interview(r.Context(), chosen,
		types.ResumeDraft(draft), types.CompanyResearch(research), resume)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"interview_prep": string(prep)})
}

// chosenJobStep reads the resume and chosen_job fields shared by the later
// stages. It writes the error response itself and reports whether to continue.
func (s *Server) chosenJobStep(w http.ResponseWriter, r *http.Request) (types.ChosenJob, string, bool) {
	if err := parseForm(r); err != nil {
		s.fail(w, err)
		return types.ChosenJob{}, "", false
	}
	resume, err := s.resumeContent(r)
	if err != nil {
		s.fail(w, err)
		return types.ChosenJob{}, "", false
	}
	chosen, err := chosenJobField(r)
	if err != nil {
		s.fail(w, err)
		return types.ChosenJob{}, "", false
	}
	return chosen, resume, true
}
