package pipeline

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/jonathan/job-hunter/internal/agent"
	"github.com/jonathan/job-hunter/internal/llm"
	"github.com/jonathan/job-hunter/internal/pipeline/steps"
	"github.com/jonathan/job-hunter/internal/schemas"
	"github.com/jonathan/job-hunter/internal/types"
)

// placeholders maps artifact kinds to the prompt placeholder they fill
var placeholders = map[types.ArtifactKind]string{
	types.KindJobList:         "Jobs",
	types.KindRankedJobList:   "RankedJobs",
	types.KindChosenJob:       "ChosenJob",
	types.KindResumeDraft:     "RewrittenResume",
	types.KindCompanyResearch: "CompanyResearch",
	types.KindInterviewPrep:   "InterviewPrep",
}

// StageInput is everything a single stage execution receives
type StageInput struct {
	// Context holds the stage's declared context artifacts, in declared order
	Context []types.Artifact
	Params  types.SearchParams
	Resume  string
}

// StageExecutor runs one stage by delegating each of its tasks to an agent.Executor
type StageExecutor struct {
	agent agent.Executor
}

// NewStageExecutor creates a stage executor
func NewStageExecutor(exec agent.Executor) *StageExecutor {
	return &StageExecutor{agent: exec}
}

// Execute runs the stage's tasks in order and returns one artifact per declared output.
// Any failure yields a *StageExecutionError and no artifacts.
func (s *StageExecutor) Execute(ctx context.Context, stage steps.StageSpec, in StageInput) ([]types.Artifact, error) {
	if len(in.Context) != len(stage.Context) {
		return nil, stageError(stage.Name, "expected %d context artifacts, got %d", len(stage.Context), len(in.Context))
	}
	for i, kind := range stage.Context {
		if in.Context[i] == nil || in.Context[i].Kind() != kind {
			return nil, stageError(stage.Name, "context artifact %d must be %s", i, kind)
		}
	}

	inputs, err := renderInputs(in.Params, in.Context)
	if err != nil {
		return nil, &StageExecutionError{Stage: stage.Name, Cause: err}
	}

	req := agent.Request{
		Inputs:    inputs,
		UseSearch: stage.UseSearch,
		Tier:      stage.Tier,
	}
	if stage.ScopeToJobSites {
		req.Domains = in.Params.JobSites
	}
	if stage.NeedsResume {
		req.Knowledge = in.Resume
	}

	outputs := make([]types.Artifact, 0, len(stage.Produces))
	var prior []string
	for i, taskKey := range stage.Tasks {
		kind := stage.Produces[i]
		req.TaskKey = taskKey
		req.JSON = !kind.IsText()
		req.Context = prior

		start := time.Now()
		raw, err := s.agent.Execute(ctx, req)
		if err != nil {
			return nil, &StageExecutionError{Stage: stage.Name, Cause: fmt.Errorf("task %s: %w", taskKey, err)}
		}

		artifact, cleaned, err := decodeArtifact(kind, raw)
		if err != nil {
			return nil, &StageExecutionError{Stage: stage.Name, Cause: fmt.Errorf("task %s: %w", taskKey, err)}
		}
		slog.Debug("task decoded", "stage", stage.Name, "task", taskKey, "kind", kind, "duration", time.Since(start))

		outputs = append(outputs, artifact)
		prior = append(slices.Clone(prior), cleaned)
	}

	if err := checkOutputs(in.Context, outputs); err != nil {
		return nil, &StageExecutionError{Stage: stage.Name, Cause: err}
	}
	return outputs, nil
}

func renderInputs(params types.SearchParams, upstream []types.Artifact) (map[string]string, error) {
	inputs := map[string]string{
		"Level":    params.Level,
		"Position": params.Position,
		"Location": params.Location,
	}
	for _, artifact := range upstream {
		key := placeholders[artifact.Kind()]
		if artifact.Kind().IsText() {
			inputs[key] = fmt.Sprint(artifact)
			continue
		}
		value := any(artifact)
		if list, ok := artifact.(types.JobList); ok {
			value = list.Jobs
		}
		data, err := json.MarshalIndent(value, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to render %s: %w", artifact.Kind(), err)
		}
		inputs[key] = string(data)
	}
	return inputs, nil
}

// decodeArtifact turns raw executor output into an artifact of the given kind.
// It also returns the cleaned output handed to later tasks of the same stage.
func decodeArtifact(kind types.ArtifactKind, raw string) (types.Artifact, string, error) {
	if kind.IsText() {
		text := strings.TrimSpace(raw)
		if text == "" {
			return nil, "", fmt.Errorf("empty %s output", kind)
		}
		switch kind {
		case types.KindResumeDraft:
			return types.ResumeDraft(text), text, nil
		case types.KindCompanyResearch:
			return types.CompanyResearch(text), text, nil
		default:
			return types.InterviewPrep(text), text, nil
		}
	}

	cleaned := llm.CleanJSONBlock(raw)
	if err := schemas.ValidateArtifact(kind, cleaned); err != nil {
		return nil, "", fmt.Errorf("%s output rejected: %w", kind, err)
	}

	var (
		artifact types.Artifact
		err      error
	)
	switch kind {
	case types.KindJobList:
		var v types.JobList
		err = json.Unmarshal([]byte(cleaned), &v)
		artifact = v
	case types.KindRankedJobList:
		var v types.RankedJobList
		err = json.Unmarshal([]byte(cleaned), &v)
		artifact = v
	case types.KindChosenJob:
		var v types.ChosenJob
		err = json.Unmarshal([]byte(cleaned), &v)
		artifact = v
	default:
		return nil, "", fmt.Errorf("no decoder for artifact kind %s", kind)
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode %s: %w", kind, err)
	}
	return artifact, cleaned, nil
}

// checkOutputs enforces the match and selection post-conditions when a stage
// ranks a job list and chooses from it. outputs is rewritten in place.
func checkOutputs(upstream, outputs []types.Artifact) error {
	var (
		jobs      *types.JobList
		rankedIdx = -1
		chosenIdx = -1
	)
	for _, artifact := range upstream {
		if list, ok := artifact.(types.JobList); ok {
			jobs = &list
		}
	}
	for i, artifact := range outputs {
		switch artifact.Kind() {
		case types.KindRankedJobList:
			rankedIdx = i
		case types.KindChosenJob:
			chosenIdx = i
		}
	}

	if rankedIdx >= 0 && jobs != nil {
		ranked, err := ReconcileRanking(*jobs, outputs[rankedIdx].(types.RankedJobList))
		if err != nil {
			return err
		}
		outputs[rankedIdx] = ranked
	}
	if chosenIdx >= 0 && rankedIdx >= 0 {
		chosen, err := ReconcileChoice(outputs[rankedIdx].(types.RankedJobList), outputs[chosenIdx].(types.ChosenJob))
		if err != nil {
			return err
		}
		outputs[chosenIdx] = chosen
	}
	return nil
}

// ReconcileRanking checks that ranked holds exactly one entry per job and
// orders it by descending score, ties broken by the job's position in jobs.
// Entries take their job fields from jobs.
func ReconcileRanking(jobs types.JobList, ranked types.RankedJobList) (types.RankedJobList, error) {
	if len(ranked.RankedJobs) != len(jobs.Jobs) {
		return types.RankedJobList{}, fmt.Errorf("ranked %d jobs, expected %d", len(ranked.RankedJobs), len(jobs.Jobs))
	}

	type entry struct {
		job types.RankedJob
		pos int
	}
	used := make([]bool, len(jobs.Jobs))
	entries := make([]entry, 0, len(ranked.RankedJobs))
	for _, rj := range ranked.RankedJobs {
		pos := -1
		for i, job := range jobs.Jobs {
			if !used[i] && job.SameAs(rj.Job) {
				pos = i
				break
			}
		}
		if pos < 0 {
			return types.RankedJobList{}, fmt.Errorf("ranked job %q at %q matches no unranked input job", rj.Title, rj.Company)
		}
		used[pos] = true
		rj.Job = jobs.Jobs[pos]
		entries = append(entries, entry{job: rj, pos: pos})
	}

	slices.SortStableFunc(entries, func(a, b entry) int {
		if c := cmp.Compare(b.job.Score, a.job.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.pos, b.pos)
	})

	out := types.RankedJobList{RankedJobs: make([]types.RankedJob, len(entries))}
	for i, e := range entries {
		out.RankedJobs[i] = e.job
	}
	return out, nil
}

// ReconcileChoice checks that the chosen job is one of the ranked jobs and
// takes its job fields from the ranked entry.
func ReconcileChoice(ranked types.RankedJobList, chosen types.ChosenJob) (types.ChosenJob, error) {
	if rj, ok := ranked.Find(chosen.Job); ok {
		chosen.Job = rj.Job
		return chosen, nil
	}
	return types.ChosenJob{}, fmt.Errorf("chosen job %q at %q is not among the ranked jobs", chosen.Job.Title, chosen.Job.Company)
}
