package cmd

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samuelfaj/claudiomiro-sub004/internal/checkpoint"
)

func git(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
}

func newGitProject(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	dir := newTestProject(t, "TASK1")
	git(t, dir, "init", "-q")
	git(t, dir, "config", "user.email", "dev@example.com")
	git(t, dir, "config", "user.name", "Dev")
	git(t, dir, "config", "commit.gpgsign", "false")
	return dir
}

func commitPhase(t *testing.T, dir string, phase int, name string) {
	t.Helper()
	file := filepath.Join(dir, name+".txt")
	require.NoError(t, os.WriteFile(file, []byte(name), 0644))
	git(t, dir, "add", "-A")
	git(t, dir, "commit", "-q", "-m", checkpoint.FormatMessage("TASK1", phase, name))
}

func TestCheckpointsCommand(t *testing.T) {
	dir := newGitProject(t)

	stdout, _, err := executeCommand(t, "checkpoints", "TASK1", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "No checkpoints for TASK1")
	assert.Contains(t, stdout, "Next phase: 1")

	commitPhase(t, dir, 1, "Prepare")
	stdout, _, err = executeCommand(t, "checkpoints", "TASK1", "--dir", dir)
	require.NoError(t, err)
	assert.Regexp(t, `[0-9a-f]{8}  Phase 1: Prepare`, stdout)
	assert.Contains(t, stdout, "Next phase: 2")

	commitPhase(t, dir, 2, "Build")
	stdout, _, err = executeCommand(t, "checkpoints", "TASK1", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Phase 2: Build")
	assert.Contains(t, stdout, "All 2 phase(s) checkpointed")
}

func TestCheckpointsCommand_RunCommitsCompletedPhases(t *testing.T) {
	dir := newGitProject(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("app\n"), 0644))
	git(t, dir, "add", "-A")
	git(t, dir, "commit", "-q", "-m", "initial")

	useActor(t, &recordingActor{dir: dir, edit: completeAll})
	_, _, err := executeCommand(t, "run", "--dir", dir, "--no-history")
	require.NoError(t, err)

	stdout, _, err := executeCommand(t, "checkpoints", "TASK1", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Phase 1: Prepare")
}
