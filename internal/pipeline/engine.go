// Package pipeline runs the job-search stages in dependency order, either as
// one full run or one stage at a time.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonathan/job-hunter/internal/agent"
	"github.com/jonathan/job-hunter/internal/pipeline/steps"
	"github.com/jonathan/job-hunter/internal/types"
)

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	Step    string `json:"step"`
	Message string `json:"message"`
	Content any    `json:"content,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// TextSink receives the text artifacts of a run
type TextSink interface {
	Save(kind types.ArtifactKind, text string) error
}

// Engine sequences stage executions according to a PipelineSpec
type Engine struct {
	spec     steps.PipelineSpec
	executor *StageExecutor
	sink     TextSink
}

// Option configures an Engine
type Option func(*Engine)

// WithSink mirrors text artifacts to sink. Sink failures are logged and ignored.
func WithSink(sink TextSink) Option {
	return func(e *Engine) { e.sink = sink }
}

// NewEngine creates an engine over the job-search pipeline.
func NewEngine(exec agent.Executor, opts ...Option) (*Engine, error) {
	e := &Engine{
		spec:     steps.JobSearchPipeline,
		executor: NewStageExecutor(exec),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline: %w", err)
	}
	return e, nil
}

// Run executes every stage in order and returns the aggregated result.
// It stops at the first failing stage and returns only that error.
func (e *Engine) Run(ctx context.Context, inputs types.RunInputs) (*types.CrewResult, error) {
	return e.RunWithProgress(ctx, inputs, nil)
}

// RunWithProgress is Run with a callback invoked at the start and end of each stage.
func (e *Engine) RunWithProgress(ctx context.Context, inputs types.RunInputs, onProgress ProgressCallback) (*types.CrewResult, error) {
	if err := inputs.Validate(); err != nil {
		return nil, err
	}

	emit := func(step, message string, content any) {
		if onProgress != nil {
			onProgress(ProgressEvent{Step: step, Message: message, Content: content})
		}
	}

	artifacts := make(map[types.ArtifactKind]types.Artifact)
	result := &types.CrewResult{}
	total := len(e.spec.Stages)
	runStart := time.Now()

	for i, stage := range e.spec.Stages {
		if err := steps.CheckInputs(stage, artifacts); err != nil {
			return nil, &StageExecutionError{Stage: stage.Name, Cause: err}
		}
		upstream := make([]types.Artifact, len(stage.Context))
		for j, kind := range stage.Context {
			upstream[j] = artifacts[kind]
		}

		emit(stage.Name, fmt.Sprintf("Step %d/%d: running %s...", i+1, total, stage.Name), nil)
		outputs, err := e.execute(ctx, stage, StageInput{
			Context: upstream,
			Params:  inputs.SearchParams,
			Resume:  inputs.ResumeText,
		})
		if err != nil {
			emit(stage.Name, fmt.Sprintf("%s failed: %v", stage.Name, err), nil)
			return nil, err
		}

		for _, out := range outputs {
			artifacts[out.Kind()] = out
			result.Set(out)
		}
		emit(stage.Name, fmt.Sprintf("Step %d/%d: %s complete", i+1, total, stage.Name), outputs)
	}

	slog.Info("pipeline run complete", "stages", total, "duration", time.Since(runStart))
	return result, nil
}

func (e *Engine) execute(ctx context.Context, stage steps.StageSpec, in StageInput) ([]types.Artifact, error) {
	start := time.Now()
	slog.Info("stage started", "stage", stage.Name)

	outputs, err := e.executor.Execute(ctx, stage, in)
	if err != nil {
		slog.Error("stage failed", "stage", stage.Name, "duration", time.Since(start), "error", err)
		return nil, err
	}
	slog.Info("stage complete", "stage", stage.Name, "duration", time.Since(start))

	e.mirror(outputs)
	return outputs, nil
}

func (e *Engine) mirror(outputs []types.Artifact) {
	if e.sink == nil {
		return
	}
	for _, out := range outputs {
		if !out.Kind().IsText() {
			continue
		}
		if err := e.sink.Save(out.Kind(), fmt.Sprint(out)); err != nil {
			slog.Warn("failed to mirror artifact", "kind", out.Kind(), "error", err)
		}
	}
}

func (e *Engine) runStage(ctx context.Context, name string, params types.SearchParams, resume string, upstream ...types.Artifact) ([]types.Artifact, error) {
	stage, err := e.spec.Lookup(name)
	if err != nil {
		return nil, err
	}
	return e.execute(ctx, stage, StageInput{Context: upstream, Params: params, Resume: resume})
}

// Search runs the search stage.
func (e *Engine) Search(ctx context.Context, params types.SearchParams) (types.JobList, error) {
	if err := params.Validate(); err != nil {
		return types.JobList{}, err
	}
	outputs, err := e.runStage(ctx, steps.StageSearch, params, "")
	if err != nil {
		return types.JobList{}, err
	}
	return outputs[0].(types.JobList), nil
}

// Match ranks jobs against the resume and chooses one.
func (e *Engine) Match(ctx context.Context, jobs types.JobList, resume string) (types.RankedJobList, types.ChosenJob, error) {
	outputs, err := e.runStage(ctx, steps.StageMatch, types.SearchParams{}, resume, jobs)
	if err != nil {
		return types.RankedJobList{}, types.ChosenJob{}, err
	}
	return outputs[0].(types.RankedJobList), outputs[1].(types.ChosenJob), nil
}

// Resume rewrites the resume for the chosen job.
func (e *Engine) Resume(ctx context.Context, chosen types.ChosenJob, resume string) (types.ResumeDraft, error) {
	outputs, err := e.runStage(ctx, steps.StageResume, types.SearchParams{}, resume, chosen)
	if err != nil {
		return "", err
	}
	return outputs[0].(types.ResumeDraft), nil
}

// Research researches the chosen job's company.
func (e *Engine) Research(ctx context.Context, chosen types.ChosenJob, resume string) (types.CompanyResearch, error) {
	outputs, err := e.runStage(ctx, steps.StageResearch, types.SearchParams{}, resume, chosen)
	if err != nil {
		return "", err
	}
	return outputs[0].(types.CompanyResearch), nil
}

// Interview prepares interview material. The artifacts are not checked to come
// from earlier steps of the same run.
func (e *Engine) Interview(ctx context.Context, chosen types.ChosenJob, draft types.ResumeDraft, research types.CompanyResearch, resume string) (types.InterviewPrep, error) {
	outputs, err := e.runStage(ctx, steps.StageInterview, types.SearchParams{}, resume, chosen, draft, research)
	if err != nil {
		return "", err
	}
	return outputs[0].(types.InterviewPrep), nil
}
