package runner

import (
	"fmt"
	"strings"
	"time"
)

// TaskError is a failure that stopped one task.
type TaskError struct {
	TaskID    string
	Message   string
	Err       error
	Timestamp time.Time
}

// NewTaskError creates a TaskError with the current timestamp.
func NewTaskError(taskID, msg string, err error) *TaskError {
	return &TaskError{
		TaskID:    taskID,
		Message:   msg,
		Err:       err,
		Timestamp: time.Now(),
	}
}

func (e *TaskError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("task %s: %s: %v", e.TaskID, e.Message, e.Err)
	}
	return fmt.Sprintf("task %s: %s", e.TaskID, e.Message)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// ExecutionError aggregates the task errors of a pool run.
type ExecutionError struct {
	TaskErrors []*TaskError
	TotalTasks int
}

func (e *ExecutionError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d of %d tasks failed", len(e.TaskErrors), e.TotalTasks)
	for _, te := range e.TaskErrors {
		sb.WriteString("\n  - ")
		sb.WriteString(te.Error())
	}
	return sb.String()
}

// Unwrap exposes the task errors to errors.Is and errors.As.
func (e *ExecutionError) Unwrap() []error {
	errs := make([]error, len(e.TaskErrors))
	for i, te := range e.TaskErrors {
		errs[i] = te
	}
	return errs
}
