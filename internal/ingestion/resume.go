package ingestion

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoResume is returned when neither resume text nor a file was supplied
	ErrNoResume = errors.New("either resume text or a resume file must be provided")
	// ErrNotPDF is returned for uploaded files without a .pdf extension
	ErrNotPDF = errors.New("only PDF files are supported")
	// ErrEmptyResume is returned when a resume contains no readable text
	ErrEmptyResume = errors.New("resume contains no text")
)

// TextExtractor extracts plain text from a document
type TextExtractor interface {
	ExtractText(data []byte) (string, error)
}

// ExtractionError wraps a failure to read text from an uploaded document
type ExtractionError struct {
	Filename string
	Cause    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract text from %s: %v", e.Filename, e.Cause)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// IsPDF reports whether filename has a .pdf extension.
func IsPDF(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".pdf")
}

// ResumeText picks the resume for a run. Non-blank text wins; otherwise the
// uploaded file must be a PDF and its extracted text is used.
func ResumeText(text, filename string, data []byte, extractor TextExtractor) (string, error) {
	if strings.TrimSpace(text) != "" {
		return text, nil
	}
	if filename == "" && len(data) == 0 {
		return "", ErrNoResume
	}
	if !IsPDF(filename) {
		return "", ErrNotPDF
	}
	if extractor == nil {
		extractor = PDFExtractor{}
	}

	extracted, err := extractor.ExtractText(data)
	if err != nil {
		return "", &ExtractionError{Filename: filename, Cause: err}
	}
	extracted = CleanText(extracted)
	if extracted == "" {
		return "", ErrEmptyResume
	}
	return extracted, nil
}
