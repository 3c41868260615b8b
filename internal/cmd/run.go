package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/samuelfaj/claudiomiro-sub004/internal/checkpoint"
	"github.com/samuelfaj/claudiomiro-sub004/internal/claude"
	"github.com/samuelfaj/claudiomiro-sub004/internal/config"
	"github.com/samuelfaj/claudiomiro-sub004/internal/directive"
	"github.com/samuelfaj/claudiomiro-sub004/internal/learning"
	"github.com/samuelfaj/claudiomiro-sub004/internal/logger"
	"github.com/samuelfaj/claudiomiro-sub004/internal/models"
	"github.com/samuelfaj/claudiomiro-sub004/internal/runner"
)

// newActor builds the actor tasks are run with. Tests replace it.
var newActor = func(cfg *config.Config) runner.Actor {
	inv := claude.NewInvoker(nil)
	inv.Timeout = cfg.Timeout
	return inv
}

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [task-id...]",
		Short: "Run tasks until they complete, block or run out of attempts",
		Long: `Run every task folder under the tasks directory, or only the named ones.

Each attempt builds a directive from the task's execution.json, picks an
effort tier, and invokes the agent. Phases the agent completes are committed
as git checkpoints. Independent tasks run concurrently.

Examples:
  claudiomiro run                        # Run every task
  claudiomiro run TASK1 TASK3            # Run selected tasks
  claudiomiro run --max-concurrency 2    # At most two tasks at a time
  claudiomiro run --model hard TASK2     # Force the hard tier
  claudiomiro run --dry-run              # Show what would run`,
		RunE: runCommand,
	}

	cmd.Flags().Bool("dry-run", false, "Show each task's state and tier without invoking the agent")
	cmd.Flags().Int("max-concurrency", -1, "Maximum number of concurrent tasks (0 = unlimited, -1 = use config)")
	cmd.Flags().Int("max-attempts", 0, "Maximum agent invocations per task (0 = use config)")
	cmd.Flags().String("timeout", "", "Maximum duration of one agent invocation (e.g., 30m, 2h)")
	cmd.Flags().String("model", "", "Force an effort tier for every step: fast, medium, hard")
	cmd.Flags().Bool("strict", false, "Reject defective execution records instead of repairing them")
	cmd.Flags().Bool("no-checkpoints", false, "Do not create git checkpoint commits")
	cmd.Flags().Bool("no-history", false, "Do not record attempts in the history database")

	return cmd
}

// runCommand implements the run command logic
func runCommand(cmd *cobra.Command, args []string) error {
	p, err := loadProject(cmd)
	if err != nil {
		return err
	}
	cfg := p.Config

	var maxConcurrencyPtr, maxAttemptsPtr *int
	if cmd.Flags().Changed("max-concurrency") {
		v, _ := cmd.Flags().GetInt("max-concurrency")
		maxConcurrencyPtr = &v
	}
	if cmd.Flags().Changed("max-attempts") {
		v, _ := cmd.Flags().GetInt("max-attempts")
		maxAttemptsPtr = &v
	}

	var timeoutPtr *time.Duration
	if cmd.Flags().Changed("timeout") {
		timeoutStr, _ := cmd.Flags().GetString("timeout")
		timeout, err := time.ParseDuration(timeoutStr)
		if err != nil {
			return fmt.Errorf("invalid timeout format %q: %w", timeoutStr, err)
		}
		timeoutPtr = &timeout
	}

	var modelPtr *string
	if cmd.Flags().Changed("model") {
		v, _ := cmd.Flags().GetString("model")
		modelPtr = &v
	}

	var lenientPtr *bool
	if strict, _ := cmd.Flags().GetBool("strict"); strict {
		lenient := false
		lenientPtr = &lenient
	}

	cfg.MergeWithFlags(maxConcurrencyPtr, maxAttemptsPtr, timeoutPtr, nil, modelPtr, lenientPtr)
	if err := p.validate(); err != nil {
		return err
	}

	tasks, err := p.discoverTasks()
	if err != nil {
		return err
	}
	if tasks, err = runner.Select(tasks, args); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(tasks) == 0 {
		fmt.Fprintf(out, "No tasks found in %s\n", p.tasksRoot())
		return nil
	}

	if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
		return dryRunTasks(cmd, p, tasks)
	}

	console := logger.NewConsoleLogger(out, cfg.LogLevel)
	fileLog, err := logger.NewFileLogger(p.path(cfg.LogDir), cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	defer fileLog.Close()
	log := logger.NewMultiLogger(console, fileLog)

	r := runner.New(p.store(log), p.selector(), newActor(cfg), log)
	r.RunID = fileLog.RunID()
	r.MaxAttempts = cfg.MaxAttempts
	r.Models = cfg.Tiers

	if noCheckpoints, _ := cmd.Flags().GetBool("no-checkpoints"); cfg.Checkpoints.Enabled && !noCheckpoints {
		manager := checkpoint.NewManager(p.Dir)
		if cfg.Checkpoints.LockFile != "" {
			manager.LockPath = p.path(cfg.Checkpoints.LockFile)
		}
		r.Checkpoints = manager
	}

	if noHistory, _ := cmd.Flags().GetBool("no-history"); cfg.Learning.Enabled && !noHistory {
		history, err := learning.NewStore(p.path(cfg.Learning.DBPath))
		if err != nil {
			log.Warnf("attempt history disabled: %v", err)
		} else {
			defer history.Close()
			r.History = history
		}
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Infof("Running %d task(s) from %s (run %s)", len(tasks), p.tasksRoot(), r.RunID)
	summary, runErr := runner.NewPool(r, cfg.MaxConcurrency, r.RunID).Run(ctx, tasks)

	for _, report := range summary.Reports {
		if err := log.LogTaskResult(report); err != nil {
			log.Warnf("failed to log result of %s: %v", report.TaskID, err)
		}
	}
	log.LogSummary(summary)

	if runErr != nil {
		return runErr
	}
	if unfinished := summary.Unfinished(); len(unfinished) > 0 {
		return fmt.Errorf("%d of %d task(s) did not complete", len(unfinished), len(summary.Reports))
	}
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// dryRunTasks prints what the next attempt of each task would be.
func dryRunTasks(cmd *cobra.Command, p *project, tasks []runner.Task) error {
	out := cmd.OutOrStdout()
	store := p.store(p.diagnostics(cmd))
	sel := p.selector()

	fmt.Fprintf(out, "Dry run: %d task(s)\n", len(tasks))
	for _, task := range tasks {
		view, err := viewTask(store, task)
		if err != nil {
			fmt.Fprintf(out, "  %s: %v\n", task.ID, err)
			continue
		}
		if view.Record.IsTerminal() {
			fmt.Fprintf(out, "  %s: %s\n", task.ID, paint(out, statusColor(models.TaskCompleted), "already complete"))
			continue
		}
		state := directive.DetermineState(view.Record)
		decision := view.decide(sel)
		fmt.Fprintf(out, "  %s: attempt %d, %s, tier %s (%s)\n",
			task.ID, view.Record.Attempts+1, state, decision.Tier, decision.Source)
	}
	return nil
}
