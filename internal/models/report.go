package models

import "time"

// Task outcome values reported by the runner.
const (
	OutcomeCompleted = "completed"
	OutcomeBlocked   = "blocked"
	OutcomeExhausted = "exhausted" // max attempts reached without completion
	OutcomeFailed    = "failed"    // critical error, task stopped
)

// TaskReport summarizes one RunTask call.
type TaskReport struct {
	TaskID      string
	Outcome     string
	Attempts    int    // Attempt counter after the run
	Iterations  int    // Actor invocations during this run
	LastState   string // Directive state of the last iteration
	LastTier    string // Effort tier of the last iteration
	Checkpoints []int  // Phase numbers checkpointed during this run
	Err         error  // Set when Outcome is OutcomeFailed
	Duration    time.Duration
}

// Succeeded reports whether the task reached completion.
func (r *TaskReport) Succeeded() bool {
	return r.Outcome == OutcomeCompleted
}

// RunSummary aggregates the reports of a pool run.
type RunSummary struct {
	RunID    string
	Reports  []*TaskReport
	Duration time.Duration
}

// Completed returns the number of completed tasks.
func (s *RunSummary) Completed() int {
	n := 0
	for _, r := range s.Reports {
		if r.Succeeded() {
			n++
		}
	}
	return n
}

// Unfinished returns the reports of tasks that did not complete.
func (s *RunSummary) Unfinished() []*TaskReport {
	var out []*TaskReport
	for _, r := range s.Reports {
		if !r.Succeeded() {
			out = append(out, r)
		}
	}
	return out
}
