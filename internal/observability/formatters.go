// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/job-hunter/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
	// maxTextLines is the number of lines of a text artifact to preview
	maxTextLines = 12
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(title, boxWidth-4))
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to at most n runes, marking the cut with an ellipsis
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

// PrintJobList outputs the jobs found by the search stage.
func (p *Printer) PrintJobList(list types.JobList) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Jobs found: %d\n", len(list.Jobs)))

	count := min(len(list.Jobs), maxItemsToShow)
	for i := 0; i < count; i++ {
		job := list.Jobs[i]
		sb.WriteString(fmt.Sprintf("\n#%d  %s\n", i+1, job.Title))
		sb.WriteString(fmt.Sprintf("    %s", job.Company))
		if job.Location != "" {
			sb.WriteString(fmt.Sprintf(" · %s", job.Location))
		}
		sb.WriteString("\n")
		if job.URL != "" {
			sb.WriteString(fmt.Sprintf("    %s\n", job.URL))
		}
	}
	if len(list.Jobs) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more\n", len(list.Jobs)-maxItemsToShow))
	}

	p.printBox("JOB SEARCH RESULTS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRankedJobs outputs the top ranked jobs with scores and rationale.
func (p *Printer) PrintRankedJobs(list types.RankedJobList) {
	if len(list.RankedJobs) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total jobs ranked: %d\n", len(list.RankedJobs)))

	count := min(len(list.RankedJobs), maxItemsToShow)
	for i := 0; i < count; i++ {
		job := list.RankedJobs[i]
		sb.WriteString(fmt.Sprintf("\n#%d  %s @ %s\n", i+1, job.Title, job.Company))
		sb.WriteString(fmt.Sprintf("    Score: %.1f\n", job.Score))
		if job.Rationale != "" {
			sb.WriteString(fmt.Sprintf("    Why: %s\n", job.Rationale))
		}
	}
	if len(list.RankedJobs) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more\n", len(list.RankedJobs)-maxItemsToShow))
	}

	p.printBox("RANKED JOBS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintChosenJob outputs the job selected for the rest of the run.
func (p *Printer) PrintChosenJob(chosen types.ChosenJob) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Role:     %s\n", chosen.Job.Title))
	sb.WriteString(fmt.Sprintf("Company:  %s\n", chosen.Job.Company))
	if chosen.Job.Location != "" {
		sb.WriteString(fmt.Sprintf("Location: %s\n", chosen.Job.Location))
	}
	if chosen.Job.URL != "" {
		sb.WriteString(fmt.Sprintf("URL:      %s\n", chosen.Job.URL))
	}
	if chosen.Justification != "" {
		sb.WriteString("\n")
		sb.WriteString(chosen.Justification)
	}

	p.printBox("CHOSEN JOB", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintText outputs the first lines of a text artifact.
func (p *Printer) PrintText(title, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	lines := strings.Split(text, "\n")
	if len(lines) > maxTextLines {
		rest := len(lines) - maxTextLines
		lines = append(lines[:maxTextLines], fmt.Sprintf("... %d more lines", rest))
	}
	p.printBox(title, strings.Join(lines, "\n"))
}

// PrintArtifact outputs any pipeline artifact in its own format.
func (p *Printer) PrintArtifact(artifact types.Artifact) {
	switch v := artifact.(type) {
	case types.JobList:
		p.PrintJobList(v)
	case types.RankedJobList:
		p.PrintRankedJobs(v)
	case types.ChosenJob:
		p.PrintChosenJob(v)
	case types.ResumeDraft:
		p.PrintText("REWRITTEN RESUME", string(v))
	case types.CompanyResearch:
		p.PrintText("COMPANY RESEARCH", string(v))
	case types.InterviewPrep:
		p.PrintText("INTERVIEW PREP", string(v))
	}
}
