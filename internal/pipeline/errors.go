package pipeline

import "fmt"

// StageExecutionError reports that a stage could not produce its artifact.
// Executor failures and undecodable output are reported the same way.
type StageExecutionError struct {
	Stage string
	Cause error
}

func (e *StageExecutionError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Cause)
}

func (e *StageExecutionError) Unwrap() error {
	return e.Cause
}

func stageError(stage string, format string, args ...any) error {
	return &StageExecutionError{Stage: stage, Cause: fmt.Errorf(format, args...)}
}
