// Package ingestion turns candidate resumes supplied as text or PDF into
// cleaned plain text for the pipeline.
package ingestion

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	innerSpace      = regexp.MustCompile(`\s+`)
	extraBlankLines = regexp.MustCompile(`\n\n\n+`)
)

// CleanText cleans and normalizes text content while preserving structure
func CleanText(content string) string {
	if content == "" {
		return ""
	}

	// Normalize line endings (CRLF → LF)
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	// PDF text often carries form feeds and NULs between pages
	content = strings.Map(func(r rune) rune {
		switch r {
		case '\f':
			return '\n'
		case 0:
			return -1
		}
		return r
	}, content)

	lines := strings.Split(content, "\n")
	cleanedLines := make([]string, 0, len(lines))
	for _, line := range lines {
		cleanedLines = append(cleanedLines, cleanLine(line))
	}

	result := strings.Join(cleanedLines, "\n")
	result = extraBlankLines.ReplaceAllString(result, "\n\n")
	return strings.TrimSpace(result)
}

// cleanLine cleans a single line while preserving headings, bullets and indentation
func cleanLine(line string) string {
	line = strings.TrimRight(line, " \t")
	if strings.TrimSpace(line) == "" {
		return ""
	}

	trimmed := strings.TrimLeft(line, " \t")
	if strings.HasPrefix(trimmed, "#") {
		return trimmed
	}

	indent := len(line) - len(trimmed)
	if isBulletLine(trimmed) {
		return strings.Repeat(" ", indent) + trimmed
	}

	content := innerSpace.ReplaceAllString(trimmed, " ")
	return strings.Repeat(" ", indent) + content
}

// isBulletLine checks if a line is a bullet list item
func isBulletLine(trimmed string) bool {
	return strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* ") ||
		strings.HasPrefix(trimmed, "• ") || strings.HasPrefix(trimmed, "· ")
}

// ReadResumeFile loads a resume from disk. PDF files go through extractor;
// anything else is read as text.
func ReadResumeFile(path string, extractor TextExtractor) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("resume file not found: %w", err)
		}
		return "", fmt.Errorf("failed to read resume file: %w", err)
	}

	if IsPDF(filepath.Base(path)) {
		return ResumeText("", filepath.Base(path), content, extractor)
	}

	text := CleanText(string(content))
	if text == "" {
		return "", ErrEmptyResume
	}
	return text, nil
}
