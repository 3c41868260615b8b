// Package claude runs task directives through the claude CLI.
package claude

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/samuelfaj/claudiomiro-sub004/internal/runner"
)

// DefaultSystemPrompt tells the actor where its progress must be written.
const DefaultSystemPrompt = "You are executing one task of a larger plan. Record every change of progress in the task's execution.json; it is the only state that survives this session."

// Invoker is a reusable client for invoking the claude CLI.
// Create once, use many times. Safe for concurrent use.
type Invoker struct {
	// ClaudePath is the path to the claude binary (defaults to "claude" in PATH).
	ClaudePath string

	// Timeout bounds one invocation (0 = only the caller's context).
	Timeout time.Duration

	// SystemPrompt is appended to the CLI's own system prompt.
	SystemPrompt string

	// Models maps tier names to CLI model names. Invocation models that are
	// not keys are passed through unchanged.
	Models map[string]string
}

// NewInvoker creates an Invoker with default settings.
func NewInvoker(models map[string]string) *Invoker {
	return &Invoker{
		ClaudePath:   "claude",
		SystemPrompt: DefaultSystemPrompt,
		Models:       models,
	}
}

// Args returns the CLI arguments for inv.
func (i *Invoker) Args(inv runner.Invocation) []string {
	args := []string{"-p", inv.Prompt}
	if model := i.model(inv.Model); model != "" {
		args = append(args, "--model", model)
	}
	if i.SystemPrompt != "" {
		args = append(args, "--append-system-prompt", i.SystemPrompt)
	}
	return append(args,
		"--permission-mode", "bypassPermissions",
		"--output-format", "json",
		"--settings", `{"disableAllHooks":true}`,
	)
}

func (i *Invoker) model(name string) string {
	if mapped, ok := i.Models[name]; ok {
		return mapped
	}
	return name
}

// Invoke runs the CLI in inv.WorkDir and waits for it to exit.
func (i *Invoker) Invoke(ctx context.Context, inv runner.Invocation) (*runner.Outcome, error) {
	if inv.Prompt == "" {
		return nil, fmt.Errorf("prompt is required")
	}
	if i.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.Timeout)
		defer cancel()
	}

	path := i.ClaudePath
	if path == "" {
		path = "claude"
	}
	cmd := exec.CommandContext(ctx, path, i.Args(inv)...)
	cmd.Dir = inv.WorkDir
	SetCleanEnv(cmd)

	start := time.Now()
	output, err := cmd.CombinedOutput()
	duration := time.Since(start)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("claude invocation for %s timed out after %v: %w", inv.TaskID, duration.Round(time.Second), ctx.Err())
		}
		return nil, fmt.Errorf("claude invocation failed: %w (output: %s)", err, truncate(string(output), 500))
	}

	content, sessionID, err := ParseResponse(output)
	if err != nil {
		return nil, err
	}
	return &runner.Outcome{SessionID: sessionID, Output: content, Duration: duration}, nil
}

var _ runner.Actor = (*Invoker)(nil)
