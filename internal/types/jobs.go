// Package types provides type definitions for the artifacts exchanged between job-search pipeline stages.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "strings"

// Job represents a single job posting found by the search stage
type Job struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// SameAs reports whether two jobs refer to the same posting.
// Postings are identified by URL when both carry one, otherwise by title and company.
func (j Job) SameAs(other Job) bool {
	if j.URL != "" && other.URL != "" {
		return strings.EqualFold(strings.TrimSpace(j.URL), strings.TrimSpace(other.URL))
	}
	return strings.EqualFold(strings.TrimSpace(j.Title), strings.TrimSpace(other.Title)) &&
		strings.EqualFold(strings.TrimSpace(j.Company), strings.TrimSpace(other.Company))
}

// JobList represents the ordered output of the search stage
type JobList struct {
	Jobs []Job `json:"jobs"`
}

// Kind implements Artifact
func (JobList) Kind() ArtifactKind { return KindJobList }

// RankedJob is a job annotated with a match score and the reasoning behind it
type RankedJob struct {
	Job
	Score     float64 `json:"score"`
	Rationale string  `json:"rationale"`
}

// RankedJobList represents jobs ordered by descending match score
type RankedJobList struct {
	RankedJobs []RankedJob `json:"ranked_jobs"`
}

// Kind implements Artifact
func (RankedJobList) Kind() ArtifactKind { return KindRankedJobList }

// Find returns the ranked entry for j.
func (l RankedJobList) Find(j Job) (RankedJob, bool) {
	for _, ranked := range l.RankedJobs {
		if ranked.Job.SameAs(j) {
			return ranked, true
		}
	}
	return RankedJob{}, false
}

// ChosenJob is the single job selected for the rest of the pipeline
type ChosenJob struct {
	Job           Job    `json:"job"`
	Justification string `json:"justification"`
}

// Kind implements Artifact
func (ChosenJob) Kind() ArtifactKind { return KindChosenJob }
