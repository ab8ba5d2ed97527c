package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jonathan/job-hunter/internal/ingestion"
	"github.com/jonathan/job-hunter/internal/types"
)

// maxFormMemory bounds the multipart data kept in memory; larger uploads spill to disk
const maxFormMemory = 32 << 20

// maxResumeSize bounds an uploaded resume file
const maxResumeSize = 10 << 20

// parseForm parses a multipart or urlencoded request body.
func parseForm(r *http.Request) error {
	err := r.ParseMultipartForm(maxFormMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		err = r.ParseForm()
	}
	if err != nil {
		return &ErrValidation{Field: "body", Message: err.Error()}
	}
	return nil
}

// requiredField returns a non-blank form value or a validation error.
func requiredField(r *http.Request, name string) (string, error) {
	value := strings.TrimSpace(r.FormValue(name))
	if value == "" {
		return "", &ErrValidation{Field: name, Message: "field required"}
	}
	return value, nil
}

// parseJobSites decodes the job_sites field. Anything but a JSON array of
// strings is treated as absent.
func parseJobSites(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	var sites []string
	if err := json.Unmarshal([]byte(value), &sites); err != nil {
		return nil
	}
	return sites
}

// searchParams reads level, position, location and job_sites.
func searchParams(r *http.Request) (types.SearchParams, error) {
	var params types.SearchParams
	var err error
	if params.Level, err = requiredField(r, "level"); err != nil {
		return params, err
	}
	if params.Position, err = requiredField(r, "position"); err != nil {
		return params, err
	}
	if params.Location, err = requiredField(r, "location"); err != nil {
		return params, err
	}
	params.JobSites = parseJobSites(r.FormValue("job_sites"))
	return params, nil
}

// resumeContent resolves the resume from resume_text or an uploaded resume_file.
func (s *Server) resumeContent(r *http.Request) (string, error) {
	text := r.FormValue("resume_text")
	if strings.TrimSpace(text) != "" {
		return text, nil
	}

	file, header, err := r.FormFile("resume_file")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return ingestion.ResumeText(text, "", nil, s.extractor)
	}
	if err != nil {
		return "", &ErrValidation{Field: "resume_file", Message: err.Error()}
	}
	defer file.Close() //nolint:errcheck

	if !ingestion.IsPDF(header.Filename) {
		return "", ingestion.ErrNotPDF
	}
	data, err := io.ReadAll(io.LimitReader(file, maxResumeSize+1))
	if err != nil {
		return "", &ErrValidation{Field: "resume_file", Message: err.Error()}
	}
	if len(data) > maxResumeSize {
		return "", &ErrValidation{Field: "resume_file", Message: fmt.Sprintf("file exceeds %d bytes", maxResumeSize)}
	}
	return ingestion.ResumeText("", header.Filename, data, s.extractor)
}

// runInputs reads the inputs of a full pipeline run.
func (s *Server) runInputs(r *http.Request) (types.RunInputs, error) {
	if err := parseForm(r); err != nil {
		return types.RunInputs{}, err
	}
	params, err := searchParams(r)
	if err != nil {
		return types.RunInputs{}, err
	}
	resume, err := s.resumeContent(r)
	if err != nil {
		return types.RunInputs{}, err
	}
	return types.RunInputs{SearchParams: params, ResumeText: resume}, nil
}

// jobListField decodes the jobs field. Both {"jobs": [...]} and a bare array are accepted.
func jobListField(r *http.Request) (types.JobList, error) {
	raw, err := requiredField(r, "jobs")
	if err != nil {
		return types.JobList{}, err
	}

	var list types.JobList
	if strings.HasPrefix(raw, "[") {
		err = json.Unmarshal([]byte(raw), &list.Jobs)
	} else {
		err = json.Unmarshal([]byte(raw), &list)
	}
	if err != nil {
		return types.JobList{}, &ErrValidation{Field: "jobs", Message: "Invalid jobs JSON: " + err.Error()}
	}
	return list, nil
}

// chosenJobField decodes the chosen_job field.
func chosenJobField(r *http.Request) (types.ChosenJob, error) {
	raw, err := requiredField(r, "chosen_job")
	if err != nil {
		return types.ChosenJob{}, err
	}

	var chosen types.ChosenJob
	if err := json.Unmarshal([]byte(raw), &chosen); err != nil {
		return types.ChosenJob{}, &ErrValidation{Field: "chosen_job", Message: "Invalid chosen_job JSON: " + err.Error()}
	}
	return chosen, nil
}
