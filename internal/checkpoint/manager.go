// Package checkpoint records completed phases as git commits and reads them
// back to find where a task should resume.
package checkpoint

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/samuelfaj/claudiomiro-sub004/internal/filelock"
)

// DefaultLockName is the lock file created inside .git.
const DefaultLockName = "claudiomiro-checkpoint.lock"

const fieldSeparator = "\x1f"

// CommandRunner runs a command line. It replaces exec in tests.
type CommandRunner interface {
	Run(ctx context.Context, command string) (string, error)
}

// Result is the outcome of CreateCheckpoint.
type Result struct {
	Skipped bool   // Working tree had no changes, nothing committed
	Hash    string // New commit hash
	Message string
}

// Manager creates and queries checkpoint commits in one repository.
// Commits are serialized within the process and across processes.
type Manager struct {
	// CommandRunner executes git (optional, uses exec when nil).
	CommandRunner CommandRunner

	// WorkDir is the repository working directory (empty = current dir).
	WorkDir string

	// LockPath is the cross-process commit lock (empty = derived from WorkDir).
	LockPath string

	mu sync.Mutex
}

// NewManager creates a Manager for workDir.
func NewManager(workDir string) *Manager {
	return &Manager{WorkDir: workDir}
}

// NewManagerWithRunner creates a Manager that runs git through runner.
func NewManagerWithRunner(runner CommandRunner, workDir string) *Manager {
	return &Manager{CommandRunner: runner, WorkDir: workDir}
}

func (m *Manager) lockPath() string {
	if m.LockPath != "" {
		return m.LockPath
	}
	gitDir := filepath.Join(m.WorkDir, ".git")
	if info, err := os.Stat(gitDir); err == nil && info.IsDir() {
		return filepath.Join(gitDir, DefaultLockName)
	}
	return filepath.Join(m.WorkDir, ".claudiomiro", DefaultLockName)
}

// CreateCheckpoint commits every pending change with the checkpoint message
// for phase. A clean working tree is a successful no-op.
func (m *Manager) CreateCheckpoint(ctx context.Context, taskID string, phase int, name string) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock := filelock.NewFileLock(m.lockPath())
	if err := lock.LockContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to acquire checkpoint lock: %w", err)
	}
	defer lock.Unlock()

	message := FormatMessage(taskID, phase, name)

	status, err := m.runCommand(ctx, "git", "status", "--porcelain")
	if err != nil {
		return nil, fmt.Errorf("failed to check git status: %w", err)
	}
	if strings.TrimSpace(status) == "" {
		return &Result{Skipped: true, Message: message}, nil
	}

	if _, err := m.runCommand(ctx, "git", "add", "-A"); err != nil {
		return nil, fmt.Errorf("failed to stage changes: %w", err)
	}
	if _, err := m.runCommand(ctx, "git", "commit", "--no-verify", "-m", message); err != nil {
		return nil, fmt.Errorf("failed to commit checkpoint %q: %w", message, err)
	}
	hash, err := m.runCommand(ctx, "git", "rev-parse", "HEAD")
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint commit: %w", err)
	}

	return &Result{Hash: strings.TrimSpace(hash), Message: message}, nil
}

// GetAllCheckpoints returns the checkpoints of taskID, oldest first.
// A repository without commits has none.
func (m *Manager) GetAllCheckpoints(ctx context.Context, taskID string) ([]Checkpoint, error) {
	output, err := m.runCommand(ctx, "git", "log", "--reverse", "--fixed-strings",
		"--grep=["+taskID+"] Phase ", "--format=%H%x1f%s")
	if err != nil {
		if noCommits(output, err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read checkpoint history: %w", err)
	}

	var checkpoints []Checkpoint
	for _, line := range strings.Split(output, "\n") {
		hash, subject, ok := strings.Cut(strings.TrimRight(line, "\r"), fieldSeparator)
		if !ok {
			continue
		}
		cp, ok := ParseMessage(subject)
		if !ok || cp.TaskID != taskID {
			continue
		}
		cp.Hash = hash
		checkpoints = append(checkpoints, *cp)
	}
	return checkpoints, nil
}

// GetLastCheckpoint returns the most recent checkpoint of taskID, or nil.
func (m *Manager) GetLastCheckpoint(ctx context.Context, taskID string) (*Checkpoint, error) {
	all, err := m.GetAllCheckpoints(ctx, taskID)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	last := all[len(all)-1]
	return &last, nil
}

// HasCheckpoint reports whether phase of taskID was checkpointed.
func (m *Manager) HasCheckpoint(ctx context.Context, taskID string, phase int) (bool, error) {
	all, err := m.GetAllCheckpoints(ctx, taskID)
	if err != nil {
		return false, err
	}
	for _, cp := range all {
		if cp.Phase == phase {
			return true, nil
		}
	}
	return false, nil
}

// GetNextPhase returns the phase to resume at: 1 without checkpoints,
// otherwise the last checkpointed phase plus one, clamped to totalPhases
// when totalPhases is positive.
func (m *Manager) GetNextPhase(ctx context.Context, taskID string, totalPhases int) (int, error) {
	last, err := m.GetLastCheckpoint(ctx, taskID)
	if err != nil {
		return 0, err
	}
	if last == nil {
		return 1, nil
	}
	next := last.Phase + 1
	if totalPhases > 0 && next > totalPhases {
		next = totalPhases
	}
	return next, nil
}

func noCommits(output string, err error) bool {
	text := output + " " + err.Error()
	return strings.Contains(text, "does not have any commits") ||
		strings.Contains(text, "bad default revision")
}

// runCommand executes a command and returns its combined output.
func (m *Manager) runCommand(ctx context.Context, name string, args ...string) (string, error) {
	if m.CommandRunner != nil {
		return m.CommandRunner.Run(ctx, name+" "+strings.Join(args, " "))
	}

	cmd := exec.CommandContext(ctx, name, args...)
	if m.WorkDir != "" {
		cmd.Dir = m.WorkDir
	}
	output, err := cmd.CombinedOutput()
	if err != nil {
		return string(output), fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return string(output), nil
}
