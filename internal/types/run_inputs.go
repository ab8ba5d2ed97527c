// Package types provides type definitions for the artifacts exchanged between job-search pipeline stages.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "github.com/go-playground/validator/v10"

// SearchParams holds the criteria for the search stage
type SearchParams struct {
	Level    string   `json:"level" validate:"required"`
	Position string   `json:"position" validate:"required"`
	Location string   `json:"location" validate:"required"`
	JobSites []string `json:"job_sites,omitempty"`
}

// Validate validates the SearchParams using the validator.
func (p *SearchParams) Validate() error {
	validate := validator.New()
	return validate.Struct(p)
}

// RunInputs holds the initial parameters a full pipeline run starts from
type RunInputs struct {
	SearchParams
	ResumeText string `json:"resume_text" validate:"required"`
}

// Validate validates the RunInputs using the validator.
func (in *RunInputs) Validate() error {
	validate := validator.New()
	return validate.Struct(in)
}
