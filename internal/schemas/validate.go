// Package schemas provides JSON Schema validation for structured stage artifacts.
package schemas

import (
	"embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/jonathan/job-hunter/internal/types"
)

//go:embed *.schema.json
var schemaFiles embed.FS

// schemaFileByKind maps structured artifact kinds to their embedded schema file
var schemaFileByKind = map[types.ArtifactKind]string{
	types.KindJobList:       "job_list.schema.json",
	types.KindRankedJobList: "ranked_job_list.schema.json",
	types.KindChosenJob:     "chosen_job.schema.json",
}

// ValidationError represents a schema validation error with field paths
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string
	Message string
}

// SchemaLoadError represents errors loading or parsing the schema itself
type SchemaLoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load schema %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load schema %s: %s", e.Path, e.Message)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation failed:\n")
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return sb.String()
}

// ForKind returns the embedded schema document for a structured artifact kind.
func ForKind(kind types.ArtifactKind) (string, error) {
	file, ok := schemaFileByKind[kind]
	if !ok {
		return "", fmt.Errorf("no schema registered for artifact kind %q", kind)
	}
	data, err := schemaFiles.ReadFile(file)
	if err != nil {
		return "", &SchemaLoadError{Path: file, Message: "embedded schema missing", Cause: err}
	}
	return string(data), nil
}

// ValidateArtifact validates raw JSON produced for an artifact kind against its schema
func ValidateArtifact(kind types.ArtifactKind, jsonContent string) error {
	schemaContent, err := ForKind(kind)
	if err != nil {
		return err
	}
	return ValidateJSONString(schemaContent, jsonContent)
}

// ValidateJSONString validates JSON string content against schema string content
func ValidateJSONString(schemaContent, jsonContent string) error {
	schemaLoader := gojsonschema.NewStringLoader(schemaContent)
	documentLoader := gojsonschema.NewStringLoader(jsonContent)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return &SchemaLoadError{
			Path:    "(string schema)",
			Message: "schema validation failed during load",
			Cause:   err,
		}
	}

	if result.Valid() {
		return nil
	}

	validationErr := &ValidationError{
		Errors: make([]FieldError, 0, len(result.Errors())),
	}

	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}

	return validationErr
}
