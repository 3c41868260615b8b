package runner

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/samuelfaj/claudiomiro-sub004/internal/models"
)

// TaskRunner runs one task.
type TaskRunner interface {
	RunTask(ctx context.Context, task Task) (*models.TaskReport, error)
}

// Pool runs independent tasks concurrently. A failing task neither cancels
// nor rolls back the others.
type Pool struct {
	Runner         TaskRunner
	MaxConcurrency int // 0 = one worker per task
	RunID          string
}

// NewPool creates a Pool.
func NewPool(r TaskRunner, maxConcurrency int, runID string) *Pool {
	return &Pool{Runner: r, MaxConcurrency: maxConcurrency, RunID: runID}
}

// Run runs every task and returns one report per task, in input order.
// The error is an *ExecutionError listing the tasks that failed, or nil.
// Tasks not started before ctx is cancelled are reported as failed.
func (p *Pool) Run(ctx context.Context, tasks []Task) (*models.RunSummary, error) {
	start := time.Now()
	reports := make([]*models.TaskReport, len(tasks))

	var mu sync.Mutex
	var taskErrors []*TaskError
	addError := func(taskID string, err error) {
		var te *TaskError
		if !errors.As(err, &te) {
			te = NewTaskError(taskID, "task failed", err)
		}
		mu.Lock()
		taskErrors = append(taskErrors, te)
		mu.Unlock()
	}

	var g errgroup.Group
	if p.MaxConcurrency > 0 {
		g.SetLimit(p.MaxConcurrency)
	}

	for i, task := range tasks {
		if err := ctx.Err(); err != nil {
			reports[i] = &models.TaskReport{TaskID: task.ID, Outcome: models.OutcomeFailed, Err: err}
			addError(task.ID, err)
			continue
		}
		g.Go(func() error {
			report, err := p.Runner.RunTask(ctx, task)
			if report == nil {
				report = &models.TaskReport{TaskID: task.ID, Outcome: models.OutcomeFailed, Err: err}
			}
			reports[i] = report
			if err != nil {
				addError(task.ID, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	summary := &models.RunSummary{
		RunID:    p.RunID,
		Reports:  reports,
		Duration: time.Since(start),
	}
	if len(taskErrors) > 0 {
		return summary, &ExecutionError{TaskErrors: taskErrors, TotalTasks: len(tasks)}
	}
	return summary, nil
}
