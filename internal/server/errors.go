// Package server provides the HTTP API for the job-search pipeline.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/job-hunter/internal/ingestion"
	"github.com/jonathan/job-hunter/internal/pipeline/steps"
	"github.com/jonathan/job-hunter/internal/tasks"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error.
// Stage failures and anything unrecognized map to 500.
func HTTPStatus(err error) int {
	var validation *ErrValidation
	var fields validator.ValidationErrors
	var extraction *ingestion.ExtractionError
	var unknownStage *steps.UnknownStageError

	switch {
	case errors.As(err, &validation), errors.As(err, &fields):
		return http.StatusBadRequest
	case errors.Is(err, ingestion.ErrNoResume), errors.Is(err, ingestion.ErrNotPDF),
		errors.Is(err, ingestion.ErrEmptyResume), errors.As(err, &extraction):
		return http.StatusBadRequest
	case errors.Is(err, tasks.ErrNotFound), errors.As(err, &unknownStage):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// detail returns the client-facing message for an error
func detail(err error) string {
	switch {
	case errors.Is(err, ingestion.ErrNoResume):
		return "Either resume_text or resume_file must be provided"
	case errors.Is(err, ingestion.ErrNotPDF):
		return "Only PDF files are supported"
	case errors.Is(err, tasks.ErrNotFound):
		return "Task not found"
	default:
		return err.Error()
	}
}
