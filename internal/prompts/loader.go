// Package prompts loads the role and task configuration for each pipeline stage.
// The configuration is stored as YAML and embedded at compile time; a directory
// with the same two files can replace it at process start.
package prompts

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	agentsFile = "agents.yaml"
	tasksFile  = "tasks.yaml"
)

//go:embed *.yaml
var promptFiles embed.FS

// Agent describes the persona an executor adopts for a task
type Agent struct {
	Role      string `yaml:"role"`
	Goal      string `yaml:"goal"`
	Backstory string `yaml:"backstory"`
}

// Task describes the work an executor performs and the output it must produce
type Task struct {
	Agent          string `yaml:"agent"`
	Description    string `yaml:"description"`
	ExpectedOutput string `yaml:"expected_output"`
}

// Catalog holds the parsed agent and task configuration
type Catalog struct {
	Agents map[string]Agent
	Tasks  map[string]Task
}

var (
	defaultCatalog *Catalog
	defaultErr     error
	defaultOnce    sync.Once
)

// Default returns the embedded catalog, parsing it on first use.
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = LoadFS(promptFiles)
	})
	return defaultCatalog, defaultErr
}

// LoadDir loads agents.yaml and tasks.yaml from a directory on disk.
func LoadDir(dir string) (*Catalog, error) {
	return LoadFS(os.DirFS(dir))
}

// LoadFS loads agents.yaml and tasks.yaml from fsys and checks that every
// task references a known agent.
func LoadFS(fsys fs.FS) (*Catalog, error) {
	agents := make(map[string]Agent)
	if err := loadYAML(fsys, agentsFile, &agents); err != nil {
		return nil, err
	}

	tasks := make(map[string]Task)
	if err := loadYAML(fsys, tasksFile, &tasks); err != nil {
		return nil, err
	}

	for key, task := range tasks {
		if strings.TrimSpace(task.Description) == "" {
			return nil, fmt.Errorf("task %q has an empty description", key)
		}
		if _, ok := agents[task.Agent]; !ok {
			return nil, fmt.Errorf("task %q references unknown agent %q", key, task.Agent)
		}
	}

	return &Catalog{Agents: agents, Tasks: tasks}, nil
}

// Lookup returns a task and the agent assigned to it.
func (c *Catalog) Lookup(taskKey string) (Task, Agent, error) {
	task, ok := c.Tasks[taskKey]
	if !ok {
		return Task{}, Agent{}, fmt.Errorf("prompt task %q not found in %s", taskKey, tasksFile)
	}
	agent, ok := c.Agents[task.Agent]
	if !ok {
		return Task{}, Agent{}, fmt.Errorf("prompt agent %q not found in %s", task.Agent, agentsFile)
	}
	return task, agent, nil
}

// TaskKeys returns all task keys in sorted order.
func (c *Catalog) TaskKeys() []string {
	keys := make([]string, 0, len(c.Tasks))
	for key := range c.Tasks {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Format replaces template placeholders in the form {{.Key}} with values from data.
// This is a simple template system for prompt customization.
func Format(template string, data map[string]string) string {
	result := template
	for key, value := range data {
		placeholder := fmt.Sprintf("{{.%s}}", key)
		result = strings.ReplaceAll(result, placeholder, value)
	}
	return result
}

func loadYAML(fsys fs.FS, filename string, out any) error {
	data, err := fs.ReadFile(fsys, filename)
	if err != nil {
		return fmt.Errorf("failed to read prompt file %s: %w", filename, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse prompt file %s: %w", filename, err)
	}
	return nil
}
