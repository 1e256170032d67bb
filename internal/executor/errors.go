package executor

import (
	"fmt"
	"strings"
	"time"

	"github.com/harrison/codecbench/internal/models"
)

// TaskError represents the failure of a single task.
// It includes context about which task failed and when.
type TaskError struct {
	Input     models.TaskInput // Task that failed
	Err       error            // Underlying error returned by the task runner
	Timestamp time.Time        // When the error occurred
}

// NewTaskError creates a new TaskError with the current timestamp.
func NewTaskError(input models.TaskInput, err error) *TaskError {
	return &TaskError{
		Input:     input,
		Err:       err,
		Timestamp: time.Now(),
	}
}

// Error implements the error interface for TaskError.
func (e *TaskError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("task %s %s failed", e.Input.ImagePath, e.Input.Settings))
	if e.Err != nil {
		sb.WriteString(fmt.Sprintf(": %v", e.Err))
	}
	return sb.String()
}

// Unwrap returns the underlying error for error wrapping support.
func (e *TaskError) Unwrap() error {
	return e.Err
}

// Is reports whether target is models.ErrTaskFailure.
func (e *TaskError) Is(target error) bool {
	return target == models.ErrTaskFailure
}

// RunError is returned when a run fails as a whole: too many tasks failed or
// none of the remaining tasks succeeded. It wraps the first task failure.
type RunError struct {
	Failures   int        // Number of failed tasks
	Successes  int        // Number of tasks that succeeded during the run
	FirstError *TaskError // First failure observed, nil if none
}

// Error implements the error interface for RunError.
func (e *RunError) Error() string {
	var sb strings.Builder
	if e.Failures > models.MaxFailures {
		sb.WriteString(fmt.Sprintf("run aborted after %d failed tasks", e.Failures))
	} else {
		sb.WriteString(fmt.Sprintf("run failed: %d tasks failed and none succeeded", e.Failures))
	}
	if e.FirstError != nil {
		sb.WriteString(fmt.Sprintf(", first failure: %v", e.FirstError))
	}
	return sb.String()
}

// Unwrap returns the first task failure.
func (e *RunError) Unwrap() error {
	if e.FirstError == nil {
		return nil
	}
	return e.FirstError
}

// Is reports whether target is models.ErrRunSummaryFailure.
func (e *RunError) Is(target error) bool {
	return target == models.ErrRunSummaryFailure
}

// DriftError is returned when the completed-task log holds an entry that the
// current configuration does not plan.
type DriftError struct {
	Entry  string // serialized offending entry, empty for count mismatches
	Reason string
}

// Error implements the error interface for DriftError.
func (e *DriftError) Error() string {
	if e.Entry == "" {
		return fmt.Sprintf("configuration drift: %s", e.Reason)
	}
	return fmt.Sprintf("configuration drift: %s: %s", e.Reason, e.Entry)
}

// Is reports whether target is models.ErrConfigurationDrift.
func (e *DriftError) Is(target error) bool {
	return target == models.ErrConfigurationDrift
}
