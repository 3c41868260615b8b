package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samuelfaj/claudiomiro-sub004/internal/models"
	"github.com/samuelfaj/claudiomiro-sub004/internal/runner"
)

func TestRunCommand_CompletesTasks(t *testing.T) {
	dir := newTestProject(t, "TASK1", "TASK2")
	actor := &recordingActor{dir: dir, edit: completeAll}
	useActor(t, actor)

	stdout, _, err := executeCommand(t, "run", "--dir", dir, "--no-checkpoints")
	require.NoError(t, err)

	assert.Contains(t, stdout, "Running 2 task(s)")
	require.Len(t, actor.calls, 2)
	for _, call := range actor.calls {
		assert.Equal(t, dir, call.WorkDir)
		assert.Equal(t, "haiku", call.Model, "tier mapped through the configured model names")
		assert.Contains(t, call.Prompt, "Current phase: 1 (Prepare)")
	}

	for _, id := range []string{"TASK1", "TASK2"} {
		data, err := os.ReadFile(recordPath(dir, id))
		require.NoError(t, err)
		assert.Contains(t, string(data), `"status": "completed"`)
	}

	logs, err := filepath.Glob(filepath.Join(dir, ".claudiomiro", "logs", "*"))
	require.NoError(t, err)
	assert.NotEmpty(t, logs, "run writes file logs")
	assert.FileExists(t, filepath.Join(dir, ".claudiomiro", "history.db"))
}

func TestRunCommand_SelectedTasks(t *testing.T) {
	dir := newTestProject(t, "TASK1", "TASK2", "TASK3")
	actor := &recordingActor{dir: dir, edit: completeAll}
	useActor(t, actor)

	_, _, err := executeCommand(t, "run", "TASK3", "--dir", dir, "--no-checkpoints", "--no-history")
	require.NoError(t, err)

	require.Len(t, actor.calls, 1)
	assert.Equal(t, "TASK3", actor.calls[0].TaskID)
	assert.NoFileExists(t, recordPath(dir, "TASK1"))
	assert.NoFileExists(t, filepath.Join(dir, ".claudiomiro", "history.db"))

	_, _, err = executeCommand(t, "run", "TASK9", "--dir", dir, "--no-checkpoints")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown tasks: TASK9")
}

func TestRunCommand_FailingActorExhaustsAttempts(t *testing.T) {
	dir := newTestProject(t, "TASK1")
	actor := &recordingActor{dir: dir, edit: failing}
	useActor(t, actor)

	_, _, err := executeCommand(t, "run", "--dir", dir, "--no-checkpoints", "--no-history", "--max-attempts", "2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 task(s) did not complete")
	assert.Len(t, actor.calls, 2)

	data, err := os.ReadFile(recordPath(dir, "TASK1"))
	require.NoError(t, err)
	assert.Contains(t, string(data), runner.FailedTaskExecution)
	assert.Contains(t, string(data), "claude exited with status 1")
}

func TestRunCommand_ModelFlagForcesTier(t *testing.T) {
	dir := newTestProject(t, "TASK1")
	actor := &recordingActor{dir: dir, edit: completeAll}
	useActor(t, actor)

	_, _, err := executeCommand(t, "run", "--dir", dir, "--no-checkpoints", "--no-history", "--model", "hard")
	require.NoError(t, err)
	require.Len(t, actor.calls, 1)
	assert.Equal(t, "opus", actor.calls[0].Model)
}

func TestRunCommand_InvalidFlags(t *testing.T) {
	dir := newTestProject(t, "TASK1")

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"bad timeout", []string{"--timeout", "soon"}, "invalid timeout format"},
		{"bad model", []string{"--model", "huge"}, "invalid model"},
		{"negative concurrency", []string{"--max-concurrency=-2"}, "max_concurrency"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"run", "--dir", dir}, tt.args...)
			_, _, err := executeCommand(t, args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRunCommand_DryRun(t *testing.T) {
	dir := newTestProject(t, "TASK1", "TASK2")
	actor := &recordingActor{dir: dir, edit: completeAll}
	useActor(t, actor)

	stdout, _, err := executeCommand(t, "run", "--dir", dir, "--dry-run", "--model", "medium")
	require.NoError(t, err)

	assert.Empty(t, actor.calls)
	assert.Contains(t, stdout, "Dry run: 2 task(s)")
	assert.Contains(t, stdout, "TASK1: attempt 1, FIRST_EXECUTION, tier medium (global)")
	assert.NoFileExists(t, recordPath(dir, "TASK1"), "dry run writes nothing")
}

func TestRunCommand_AlreadyCompleteNeedsNoAttempt(t *testing.T) {
	dir := newTestProject(t, "TASK1")
	actor := &recordingActor{dir: dir, edit: completeAll}
	useActor(t, actor)

	_, _, err := executeCommand(t, "run", "--dir", dir, "--no-checkpoints", "--no-history")
	require.NoError(t, err)
	_, _, err = executeCommand(t, "run", "--dir", dir, "--no-checkpoints", "--no-history")
	require.NoError(t, err)
	assert.Len(t, actor.calls, 1)

	stdout, _, err := executeCommand(t, "run", "--dir", dir, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, stdout, "TASK1: already complete")
}

func TestRunCommand_NoTasks(t *testing.T) {
	dir := newTestProject(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".claudiomiro", "task-executor"), 0755))

	stdout, _, err := executeCommand(t, "run", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "No tasks found")
}

func TestRunCommand_BlockedTask(t *testing.T) {
	dir := newTestProject(t, "TASK1")
	actor := &recordingActor{dir: dir, edit: func(rec *models.ExecutionRecord) error {
		rec.Status = models.TaskBlocked
		rec.Completion.Status = models.CompletionBlocked
		rec.Completion.BlockedBy = []string{"needs API credentials"}
		return nil
	}}
	useActor(t, actor)

	_, _, err := executeCommand(t, "run", "--dir", dir, "--no-checkpoints", "--no-history")
	require.Error(t, err)
	assert.Len(t, actor.calls, 1, "blocked tasks are not retried")
}
