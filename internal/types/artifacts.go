// Package types provides type definitions for the artifacts exchanged between job-search pipeline stages.
//
//nolint:revive // types is a standard Go package name pattern
package types

// ArtifactKind identifies the type of a stage output
type ArtifactKind string

// Artifact kinds produced by the job-search pipeline
const (
	KindJobList         ArtifactKind = "job_list"
	KindRankedJobList   ArtifactKind = "ranked_job_list"
	KindChosenJob       ArtifactKind = "chosen_job"
	KindResumeDraft     ArtifactKind = "resume_draft"
	KindCompanyResearch ArtifactKind = "company_research"
	KindInterviewPrep   ArtifactKind = "interview_prep"
)

// IsText reports whether artifacts of this kind are free-form text rather than structured JSON.
func (k ArtifactKind) IsText() bool {
	switch k {
	case KindResumeDraft, KindCompanyResearch, KindInterviewPrep:
		return true
	default:
		return false
	}
}

// Artifact is an immutable value produced by a single stage execution
type Artifact interface {
	Kind() ArtifactKind
}

// ResumeDraft is the resume rewritten for the chosen job (markdown)
type ResumeDraft string

// Kind implements Artifact
func (ResumeDraft) Kind() ArtifactKind { return KindResumeDraft }

// CompanyResearch is the research report on the chosen job's company (markdown)
type CompanyResearch string

// Kind implements Artifact
func (CompanyResearch) Kind() ArtifactKind { return KindCompanyResearch }

// InterviewPrep is the interview preparation guide (markdown)
type InterviewPrep string

// Kind implements Artifact
func (InterviewPrep) Kind() ArtifactKind { return KindInterviewPrep }

// CrewResult aggregates every artifact produced by a full pipeline run
type CrewResult struct {
	Jobs            []Job       `json:"jobs"`
	RankedJobs      []RankedJob `json:"ranked_jobs"`
	ChosenJob       *ChosenJob  `json:"chosen_job"`
	RewrittenResume string      `json:"rewritten_resume"`
	CompanyResearch string      `json:"company_research"`
	InterviewPrep   string      `json:"interview_prep"`
}

// Set records an artifact into the aggregated result.
func (r *CrewResult) Set(a Artifact) {
	switch v := a.(type) {
	case JobList:
		r.Jobs = v.Jobs
	case RankedJobList:
		r.RankedJobs = v.RankedJobs
	case ChosenJob:
		chosen := v
		r.ChosenJob = &chosen
	case ResumeDraft:
		r.RewrittenResume = string(v)
	case CompanyResearch:
		r.CompanyResearch = string(v)
	case InterviewPrep:
		r.InterviewPrep = string(v)
	}
}
