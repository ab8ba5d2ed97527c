// Package steps defines the stages of the job-search pipeline, the artifacts
// each one consumes and produces, and validation of their dependency order.
package steps

import (
	"fmt"
	"strings"

	"github.com/jonathan/job-hunter/internal/llm"
	"github.com/jonathan/job-hunter/internal/types"
)

// Stage names
const (
	StageSearch    = "search"
	StageMatch     = "match"
	StageResume    = "resume"
	StageResearch  = "research"
	StageInterview = "interview"
)

// StageSpec defines one stage of the pipeline
type StageSpec struct {
	Name string
	// Context lists the artifact kinds the stage reads, in prompt order
	Context []types.ArtifactKind
	// Produces lists the artifact kinds the stage outputs, one per task
	Produces []types.ArtifactKind
	// Tasks are prompt catalog keys, run in order; each later task sees the earlier outputs
	Tasks []string
	// UseSearch allows the stage to call the search tool
	UseSearch bool
	// ScopeToJobSites restricts search to the run's job sites
	ScopeToJobSites bool
	// NeedsResume gives the stage the candidate's resume as knowledge
	NeedsResume bool
	Tier        llm.ModelTier
}

// PipelineSpec is an ordered list of stages
type PipelineSpec struct {
	Stages []StageSpec
}

// JobSearchPipeline is the fixed five-stage pipeline
var JobSearchPipeline = PipelineSpec{
	Stages: []StageSpec{
		{
			Name:            StageSearch,
			Produces:        []types.ArtifactKind{types.KindJobList},
			Tasks:           []string{"job_extraction_task"},
			UseSearch:       true,
			ScopeToJobSites: true,
			Tier:            llm.TierStandard,
		},
		{
			Name:        StageMatch,
			Context:     []types.ArtifactKind{types.KindJobList},
			Produces:    []types.ArtifactKind{types.KindRankedJobList, types.KindChosenJob},
			Tasks:       []string{"job_matching_task", "job_selection_task"},
			NeedsResume: true,
			Tier:        llm.TierStandard,
		},
		{
			Name:        StageResume,
			Context:     []types.ArtifactKind{types.KindChosenJob},
			Produces:    []types.ArtifactKind{types.KindResumeDraft},
			Tasks:       []string{"resume_rewriting_task"},
			NeedsResume: true,
			Tier:        llm.TierAdvanced,
		},
		{
			Name:        StageResearch,
			Context:     []types.ArtifactKind{types.KindChosenJob},
			Produces:    []types.ArtifactKind{types.KindCompanyResearch},
			Tasks:       []string{"company_research_task"},
			UseSearch:   true,
			NeedsResume: true,
			Tier:        llm.TierAdvanced,
		},
		{
			Name:        StageInterview,
			Context:     []types.ArtifactKind{types.KindChosenJob, types.KindResumeDraft, types.KindCompanyResearch},
			Produces:    []types.ArtifactKind{types.KindInterviewPrep},
			Tasks:       []string{"interview_prep_task"},
			NeedsResume: true,
			Tier:        llm.TierAdvanced,
		},
	},
}

// UnknownStageError is returned when a stage name is not in the pipeline
type UnknownStageError struct {
	Stage string
}

func (e *UnknownStageError) Error() string {
	return fmt.Sprintf("unknown stage: %s", e.Stage)
}

// DependencyError represents a dependency validation error
type DependencyError struct {
	Stage   string
	Missing []types.ArtifactKind
}

func (e *DependencyError) Error() string {
	missing := make([]string, len(e.Missing))
	for i, kind := range e.Missing {
		missing[i] = string(kind)
	}
	return fmt.Sprintf("stage %s: missing inputs: %s", e.Stage, strings.Join(missing, ", "))
}

// Validate checks that stage names are unique, every stage produces one kind
// per task, and every context kind is produced by a strictly earlier stage.
// Because a stage can only read what came before it, a valid pipeline has no cycles.
func (p PipelineSpec) Validate() error {
	names := make(map[string]bool, len(p.Stages))
	produced := make(map[types.ArtifactKind]string)

	for _, stage := range p.Stages {
		if stage.Name == "" {
			return fmt.Errorf("stage with empty name")
		}
		if names[stage.Name] {
			return fmt.Errorf("duplicate stage name: %s", stage.Name)
		}
		names[stage.Name] = true

		if len(stage.Produces) == 0 {
			return fmt.Errorf("stage %s produces nothing", stage.Name)
		}
		if len(stage.Tasks) != len(stage.Produces) {
			return fmt.Errorf("stage %s has %d tasks for %d outputs", stage.Name, len(stage.Tasks), len(stage.Produces))
		}

		if err := CheckInputs(stage, produced); err != nil {
			return err
		}

		for _, kind := range stage.Produces {
			if owner, ok := produced[kind]; ok {
				return fmt.Errorf("artifact %s produced by both %s and %s", kind, owner, stage.Name)
			}
			produced[kind] = stage.Name
		}
	}
	return nil
}

// Lookup returns the stage with the given name.
func (p PipelineSpec) Lookup(name string) (StageSpec, error) {
	for _, stage := range p.Stages {
		if stage.Name == name {
			return stage, nil
		}
	}
	return StageSpec{}, &UnknownStageError{Stage: name}
}

// Names returns stage names in execution order.
func (p PipelineSpec) Names() []string {
	names := make([]string, len(p.Stages))
	for i, stage := range p.Stages {
		names[i] = stage.Name
	}
	return names
}

// RequiredInputs returns exactly the context kinds a stage declares.
func (p PipelineSpec) RequiredInputs(name string) ([]types.ArtifactKind, error) {
	stage, err := p.Lookup(name)
	if err != nil {
		return nil, err
	}
	return append([]types.ArtifactKind(nil), stage.Context...), nil
}

// CheckInputs reports which of a stage's context kinds are absent from available.
func CheckInputs[V any](stage StageSpec, available map[types.ArtifactKind]V) error {
	var missing []types.ArtifactKind
	for _, kind := range stage.Context {
		if _, ok := available[kind]; !ok {
			missing = append(missing, kind)
		}
	}
	if len(missing) > 0 {
		return &DependencyError{Stage: stage.Name, Missing: missing}
	}
	return nil
}
