// Package runner drives tasks through repeated actor invocations, keeping
// each task's execution record, checkpoints and attempt history current.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/samuelfaj/claudiomiro-sub004/internal/blueprint"
	"github.com/samuelfaj/claudiomiro-sub004/internal/checkpoint"
	"github.com/samuelfaj/claudiomiro-sub004/internal/directive"
	"github.com/samuelfaj/claudiomiro-sub004/internal/effort"
	"github.com/samuelfaj/claudiomiro-sub004/internal/execution"
	"github.com/samuelfaj/claudiomiro-sub004/internal/gate"
	"github.com/samuelfaj/claudiomiro-sub004/internal/learning"
	"github.com/samuelfaj/claudiomiro-sub004/internal/models"
	"github.com/samuelfaj/claudiomiro-sub004/internal/security"
)

// Failure kinds written to pendingFixes.
const (
	FailedTaskExecution  = "task-execution"
	FailedDangerousCheck = "dangerous-command"
)

// DefaultMaxAttempts bounds the invocations of one task per run.
const DefaultMaxAttempts = 5

// Logger is the logging the runner needs.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	LogTaskStart(taskID string, attempt int, state, tier string)
}

// Checkpointer creates and lists phase checkpoints.
type Checkpointer interface {
	CreateCheckpoint(ctx context.Context, taskID string, phase int, name string) (*checkpoint.Result, error)
	GetAllCheckpoints(ctx context.Context, taskID string) ([]checkpoint.Checkpoint, error)
}

// History stores one row per attempt.
type History interface {
	RecordAttempt(ctx context.Context, a *learning.Attempt) error
}

// Runner runs single tasks. Tasks share no state through a Runner, so one
// Runner may run several tasks concurrently.
type Runner struct {
	Store    *execution.Store
	Selector *effort.Selector
	Actor    Actor
	Logger   Logger

	// Checkpoints is optional; nil disables checkpoint commits.
	Checkpoints Checkpointer

	// History is optional; nil disables attempt history.
	History History

	// Policy classifies precondition commands (default policy when nil).
	Policy *security.Policy

	// Models maps tiers to actor model names. Unmapped tiers are passed as is.
	Models map[string]string

	MaxAttempts int
	RunID       string
}

// New creates a Runner with a fresh run id.
func New(store *execution.Store, selector *effort.Selector, actor Actor, logger Logger) *Runner {
	return &Runner{
		Store:       store,
		Selector:    selector,
		Actor:       actor,
		Logger:      logger,
		MaxAttempts: DefaultMaxAttempts,
		RunID:       uuid.NewString(),
	}
}

// RunTask invokes the actor on task until the record reports completion,
// the task blocks, or MaxAttempts invocations were made.
//
// Actor failures are written to the record and retried. Critical record
// errors and context cancellation stop the task; they are returned and
// also set on the report.
func (r *Runner) RunTask(ctx context.Context, task Task) (*models.TaskReport, error) {
	start := time.Now()
	report := &models.TaskReport{TaskID: task.ID}
	fail := func(msg string, err error) (*models.TaskReport, error) {
		taskErr := NewTaskError(task.ID, msg, err)
		report.Outcome = models.OutcomeFailed
		report.Err = taskErr
		report.Duration = time.Since(start)
		return report, taskErr
	}

	bp, err := blueprint.Load(filepath.Join(task.Dir, blueprint.FileName))
	if errors.Is(err, fs.ErrNotExist) {
		bp = blueprint.Parse(nil)
	} else if err != nil {
		return fail("cannot start", err)
	}
	title := bp.Title
	if title == "" {
		title = task.ID
	}

	path := execution.RecordPath(task.Dir)
	rec, created, err := r.Store.Init(path, task.ID, title, bp.Phases)
	if err != nil {
		return fail("failed to load execution record", err)
	}
	if created {
		r.Logger.Infof("%s: seeded execution record with %d phases", task.ID, len(rec.Phases))
	}

	maxAttempts := r.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}

	for report.Iterations < maxAttempts {
		if v := gate.Check(rec); v != nil {
			r.Logger.Warnf("%s: %s", task.ID, v)
			gate.Enforce(rec)
			if err := r.Store.Save(path, rec); err != nil {
				return fail("failed to save execution record", err)
			}
		}

		if rec.IsTerminal() {
			break
		}
		if err := ctx.Err(); err != nil {
			return fail("run cancelled", err)
		}

		state, decision, err := r.iterate(ctx, task, path, rec, bp, report)
		if err != nil {
			return fail(fmt.Sprintf("attempt %d stopped", rec.Attempts), err)
		}
		report.LastState = string(state)
		report.LastTier = string(decision.Tier)

		if rec, err = r.Store.Load(path); err != nil {
			return fail("failed to reload execution record", err)
		}
		if rec.Status == models.TaskBlocked && !rec.IsTerminal() {
			report.Outcome = models.OutcomeBlocked
			break
		}
	}

	if rec.IsTerminal() {
		report.Checkpoints = append(report.Checkpoints, r.checkpoint(ctx, task.ID, rec)...)
		report.Outcome = models.OutcomeCompleted
	} else if report.Outcome == "" {
		report.Outcome = models.OutcomeExhausted
	}
	report.Attempts = rec.Attempts
	report.Duration = time.Since(start)
	return report, nil
}

// iterate runs one actor invocation and everything recorded around it.
// Returned errors wrap the cause and stop the task.
func (r *Runner) iterate(ctx context.Context, task Task, path string, rec *models.ExecutionRecord, bp *blueprint.Blueprint, report *models.TaskReport) (directive.State, effort.Decision, error) {
	d, err := directive.Build(rec, directive.Context{
		TaskID:          task.ID,
		TaskFolder:      task.Dir,
		WorkingDir:      task.WorkDir,
		ReviewArtifacts: directive.FindReviewArtifacts(task.Dir),
	})
	if err != nil {
		return "", effort.Decision{}, fmt.Errorf("failed to build directive: %w", err)
	}
	decision := r.Selector.Decide(effort.ExecutionStep, effort.Inputs{
		Attempts:  rec.Attempts,
		Record:    rec,
		Blueprint: bp.Raw,
	})

	rec.Attempts++
	if rec.Status == models.TaskPending {
		rec.Status = models.TaskInProgress
	}
	if err := r.Store.Save(path, rec); err != nil {
		return d.State, decision, fmt.Errorf("failed to save execution record: %w", err)
	}
	report.Iterations++
	attempt := rec.Attempts

	r.Logger.LogTaskStart(task.ID, attempt, string(d.State), string(decision.Tier))
	r.Logger.Debugf("%s: tier %s chosen by %s", task.ID, decision.Tier, decision.Source)

	model := r.model(decision.Tier)
	started := time.Now()
	_, invokeErr := r.Actor.Invoke(ctx, Invocation{
		TaskID:  task.ID,
		Prompt:  d.Text,
		Model:   model,
		WorkDir: task.WorkDir,
	})
	duration := time.Since(started)

	if invokeErr != nil {
		if ctx.Err() != nil {
			return d.State, decision, fmt.Errorf("run cancelled: %w", ctx.Err())
		}
		r.Logger.Warnf("%s: attempt %d failed: %v", task.ID, attempt, invokeErr)
		r.Store.RecordError(path, invokeErr, FailedTaskExecution)
	}

	after, err := r.Store.Load(path)
	if err != nil {
		return d.State, decision, fmt.Errorf("failed to reload execution record: %w", err)
	}

	failure := invokeErr
	var checkpoints []int
	if invokeErr == nil {
		if cmd, pattern := r.dangerousCommand(after); cmd != "" {
			failure = fmt.Errorf("precondition command matches %s: %s", pattern, cmd)
			r.Logger.Warnf("%s: %v", task.ID, failure)
			r.Store.RecordError(path, failure, FailedDangerousCheck)
		} else {
			checkpoints = r.checkpoint(ctx, task.ID, after)
			report.Checkpoints = append(report.Checkpoints, checkpoints...)
		}
	}

	r.recordHistory(ctx, &learning.Attempt{
		RunID:       r.RunID,
		TaskID:      task.ID,
		Attempt:     attempt,
		State:       string(d.State),
		Tier:        string(decision.Tier),
		Model:       model,
		Success:     failure == nil,
		Duration:    duration,
		Checkpoints: checkpoints,
	}, failure)

	return d.State, decision, nil
}

func (r *Runner) model(tier effort.Tier) string {
	if name, ok := r.Models[string(tier)]; ok && name != "" {
		return name
	}
	return string(tier)
}

// dangerousCommand returns the first precondition or success criterion
// command the policy rejects, with the matching pattern name.
func (r *Runner) dangerousCommand(rec *models.ExecutionRecord) (string, string) {
	policy := r.Policy
	if policy == nil {
		policy = security.DefaultPolicy()
	}
	var commands []string
	for _, p := range rec.Phases {
		for _, pc := range p.PreConditions {
			commands = append(commands, pc.Command)
		}
	}
	for _, sc := range rec.SuccessCriteria {
		commands = append(commands, sc.Command)
	}
	for _, cmd := range commands {
		if pattern, ok := policy.MatchDangerousCommand(cmd); ok {
			return cmd, pattern.Name
		}
	}
	return "", ""
}

// checkpoint commits every phase of the completed prefix that has no
// checkpoint yet, in order, and returns the phases committed. A failure
// is logged and stops the pass; the next iteration retries.
func (r *Runner) checkpoint(ctx context.Context, taskID string, rec *models.ExecutionRecord) []int {
	if r.Checkpoints == nil {
		return nil
	}
	prefix := rec.CompletedPrefix()
	if prefix == 0 {
		return nil
	}

	existing, err := r.Checkpoints.GetAllCheckpoints(ctx, taskID)
	if err != nil {
		r.Logger.Warnf("%s: failed to read checkpoints: %v", taskID, err)
		return nil
	}
	have := make(map[int]bool, len(existing))
	for _, cp := range existing {
		have[cp.Phase] = true
	}

	var created []int
	for _, p := range rec.Phases {
		if p.ID > prefix {
			break
		}
		if have[p.ID] {
			continue
		}
		result, err := r.Checkpoints.CreateCheckpoint(ctx, taskID, p.ID, models.PhaseLabel(p.ID, p.Name))
		if err != nil {
			r.Logger.Warnf("%s: checkpoint for phase %d failed: %v", taskID, p.ID, err)
			break
		}
		if result.Skipped {
			r.Logger.Debugf("%s: no changes to checkpoint for phase %d", taskID, p.ID)
			continue
		}
		r.Logger.Infof("%s: checkpoint %s", taskID, result.Message)
		created = append(created, p.ID)
	}
	return created
}

func (r *Runner) recordHistory(ctx context.Context, a *learning.Attempt, failure error) {
	if r.History == nil {
		return
	}
	if failure != nil {
		a.ErrorMessage = failure.Error()
	}
	if err := r.History.RecordAttempt(ctx, a); err != nil {
		r.Logger.Warnf("%s: failed to record attempt history: %v", a.TaskID, err)
	}
}
