package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/job-hunter/internal/config"
	"github.com/jonathan/job-hunter/internal/observability"
	"github.com/jonathan/job-hunter/internal/types"
)

var stepCmd = &cobra.Command{
	Use:   "step",
	Short: "Run a single pipeline stage",
	Long:  `Runs one stage and prints its artifacts as JSON, so they can be inspected or edited before the next stage.`,
}

var stepSearchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search job boards for postings",
	RunE:  runStepSearch,
}

var stepMatchCmd = &cobra.Command{
	Use:   "match",
	Short: "Rank jobs from a search against a resume and choose one",
	RunE:  runStepMatch,
}

var stepResumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Rewrite a resume for the chosen job",
	RunE:  runStepResume,
}

var stepResearchCmd = &cobra.Command{
	Use:   "research",
	Short: "Research the chosen job's company",
	RunE:  runStepResearch,
}

var stepInterviewCmd = &cobra.Command{
	Use:   "interview",
	Short: "Prepare interview material from the earlier step outputs",
	RunE:  runStepInterview,
}

var (
	stepSearchOpts    runFlags
	stepMatchOpts     runFlags
	stepResumeOpts    runFlags
	stepResearchOpts  runFlags
	stepInterviewOpts runFlags

	stepJobsPath     string
	stepChosenPath   string
	stepDraftPath    string
	stepResearchPath string
)

func init() {
	stepSearchOpts.register(stepSearchCmd, false)
	stepMatchOpts.register(stepMatchCmd, true)
	stepMatchCmd.Flags().StringVar(&stepJobsPath, "jobs", "", "Path to the JSON output of step search")
	_ = stepMatchCmd.MarkFlagRequired("jobs")

	stepResumeOpts.register(stepResumeCmd, true)
	stepResearchOpts.register(stepResearchCmd, true)
	stepInterviewOpts.register(stepInterviewCmd, true)
	for _, cmd := range []*cobra.Command{stepResumeCmd, stepResearchCmd, stepInterviewCmd} {
		cmd.Flags().StringVar(&stepChosenPath, "chosen-job", "", "Path to the JSON output of step match")
		_ = cmd.MarkFlagRequired("chosen-job")
	}
	stepInterviewCmd.Flags().StringVar(&stepDraftPath, "rewritten-resume", "", "Path to the output of step resume")
	stepInterviewCmd.Flags().StringVar(&stepResearchPath, "company-research", "", "Path to the output of step research")
	_ = stepInterviewCmd.MarkFlagRequired("rewritten-resume")
	_ = stepInterviewCmd.MarkFlagRequired("company-research")

	stepCmd.AddCommand(stepSearchCmd, stepMatchCmd, stepResumeCmd, stepResearchCmd, stepInterviewCmd)
	rootCmd.AddCommand(stepCmd)
}

func runStepSearch(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := stepSearchOpts.resolveConfig(cmd)
	if err != nil {
		return err
	}
	params, err := searchParams(cfg)
	if err != nil {
		return err
	}

	engine, closeClient, err := buildEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeClient() //nolint:errcheck

	jobs, err := engine.Search(ctx, params)
	if err != nil {
		return err
	}
	return writeJSON(os.Stdout, map[string]types.JobList{"jobs": jobs})
}

// readJobs loads a job list written by step search. The {"jobs": {...}}
// envelope of that command and a bare job list are both accepted.
func readJobs(path string) (types.JobList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.JobList{}, fmt.Errorf("failed to read jobs file: %w", err)
	}

	var envelope struct {
		Jobs json.RawMessage `json:"jobs"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return types.JobList{}, fmt.Errorf("failed to parse jobs file: %w", err)
	}

	var list types.JobList
	if len(envelope.Jobs) > 0 && envelope.Jobs[0] == '{' {
		err = json.Unmarshal(envelope.Jobs, &list)
	} else {
		err = json.Unmarshal(data, &list)
	}
	if err != nil {
		return types.JobList{}, fmt.Errorf("failed to parse jobs file: %w", err)
	}
	return list, nil
}

func runStepMatch(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := stepMatchOpts.resolveConfig(cmd)
	if err != nil {
		return err
	}
	jobs, err := readJobs(stepJobsPath)
	if err != nil {
		return err
	}
	resume, err := readResume(cfg)
	if err != nil {
		return err
	}

	engine, closeClient, err := buildEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeClient() //nolint:errcheck

	ranked, chosen, err := engine.Match(ctx, jobs, resume)
	if err != nil {
		return err
	}
	if cfg.Verbose {
		printer := observability.NewPrinter(os.Stderr)
		printer.PrintRankedJobs(ranked)
		printer.PrintChosenJob(chosen)
	}
	return writeJSON(os.Stdout, map[string]any{"ranked_jobs": ranked, "chosen_job": chosen})
}

// readChosenJob loads the chosen job written by step match. The envelope of
// that command and a bare chosen job are both accepted.
func readChosenJob(path string) (types.ChosenJob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.ChosenJob{}, fmt.Errorf("failed to read chosen job file: %w", err)
	}

	var envelope struct {
		ChosenJob json.RawMessage `json:"chosen_job"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return types.ChosenJob{}, fmt.Errorf("failed to parse chosen job file: %w", err)
	}
	if len(envelope.ChosenJob) > 0 {
		data = envelope.ChosenJob
	}

	var chosen types.ChosenJob
	if err := json.Unmarshal(data, &chosen); err != nil {
		return types.ChosenJob{}, fmt.Errorf("failed to parse chosen job file: %w", err)
	}
	if chosen.Job.Title == "" && chosen.Job.URL == "" {
		return types.ChosenJob{}, fmt.Errorf("chosen job file %s has no job", path)
	}
	return chosen, nil
}

// readStepText loads a text artifact. A JSON object written by a step command
// is unwrapped by key; anything else is taken as the text itself.
func readStepText(path, key string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s file: %w", key, err)
	}

	var envelope map[string]json.RawMessage
	if json.Unmarshal(data, &envelope) == nil {
		if raw, ok := envelope[key]; ok {
			var text string
			if err := json.Unmarshal(raw, &text); err != nil {
				return "", fmt.Errorf("failed to parse %s file: %w", key, err)
			}
			return text, nil
		}
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", fmt.Errorf("%s file %s is empty", key, path)
	}
	return string(data), nil
}

// chosenStepInputs resolves the config, chosen job and resume shared by the
// stages that follow match.
func chosenStepInputs(cmd *cobra.Command, opts *runFlags) (config.Config, types.ChosenJob, string, error) {
	cfg, err := opts.resolveConfig(cmd)
	if err != nil {
		return cfg, types.ChosenJob{}, "", err
	}
	chosen, err := readChosenJob(stepChosenPath)
	if err != nil {
		return cfg, types.ChosenJob{}, "", err
	}
	resume, err := readResume(cfg)
	if err != nil {
		return cfg, types.ChosenJob{}, "", err
	}
	return cfg, chosen, resume, nil
}

func runStepResume(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, chosen, resume, err := chosenStepInputs(cmd, &stepResumeOpts)
	if err != nil {
		return err
	}
	engine, closeClient, err := buildEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeClient() //nolint:errcheck

	draft, err := engine.Resume(ctx, chosen, resume)
	if err != nil {
		return err
	}
	if cfg.Verbose {
		observability.NewPrinter(os.Stderr).PrintArtifact(draft)
	}
	return writeJSON(os.Stdout, map[string]string{"rewritten_resume": string(draft)})
}

func runStepResearch(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, chosen, resume, err := chosenStepInputs(cmd, &stepResearchOpts)
	if err != nil {
		return err
	}
	engine, closeClient, err := buildEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeClient() //nolint:errcheck

	research, err := engine.Research(ctx, chosen, resume)
	if err != nil {
		return err
	}
	if cfg.Verbose {
		observability.NewPrinter(os.Stderr).PrintArtifact(research)
	}
	return writeJSON(os.Stdout, map[string]string{"company_research": string(research)})
}

func runStepInterview(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, chosen, resume, err := chosenStepInputs(cmd, &stepInterviewOpts)
	if err != nil {
		return err
	}
	draft, err := readStepText(stepDraftPath, "rewritten_resume")
	if err != nil {
		return err
	}
	research, err := readStepText(stepResearchPath, "company_research")
	if err != nil {
		return err
	}

	engine, closeClient, err := buildEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeClient() //nolint:errcheck

	prep, err := engine.Interview(ctx, chosen, types.ResumeDraft(draft), types.CompanyResearch(research), resume)
	if err != nil {
		return err
	}
	if cfg.Verbose {
		observability.NewPrinter(os.Stderr).PrintArtifact(prep)
	}
	return writeJSON(os.Stdout, map[string]string{"interview_prep": string(prep)})
}
