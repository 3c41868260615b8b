package logger

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/samuelfaj/claudiomiro-sub004/internal/models"
)

func TestNewFileLogger(t *testing.T) {
	logDir := filepath.Join(t.TempDir(), "logs")

	logger, err := NewFileLogger(logDir, "debug")
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}
	defer logger.Close()

	if logger.RunID() == "" {
		t.Error("expected a run id")
	}
	if !strings.HasPrefix(filepath.Base(logger.Path()), "run-") {
		t.Errorf("unexpected run log name %s", logger.Path())
	}

	target, err := os.Readlink(filepath.Join(logDir, "latest.log"))
	if err != nil {
		t.Fatalf("latest.log symlink missing: %v", err)
	}
	if target != filepath.Base(logger.Path()) {
		t.Errorf("latest.log points to %s, want %s", target, filepath.Base(logger.Path()))
	}
	if _, err := os.Stat(filepath.Join(logDir, "tasks")); err != nil {
		t.Errorf("tasks directory missing: %v", err)
	}
}

func TestFileLogger_LatestSymlinkMovesToNewRun(t *testing.T) {
	logDir := t.TempDir()

	first, err := NewFileLogger(logDir, "info")
	if err != nil {
		t.Fatal(err)
	}
	first.Close()

	second, err := NewFileLogger(logDir, "info")
	if err != nil {
		t.Fatal(err)
	}
	defer second.Close()

	target, err := os.Readlink(filepath.Join(logDir, "latest.log"))
	if err != nil {
		t.Fatal(err)
	}
	if target != filepath.Base(second.Path()) {
		t.Errorf("latest.log should point at the second run, got %s", target)
	}
}

func TestFileLogger_LevelFiltering(t *testing.T) {
	logger, err := NewFileLogger(t.TempDir(), "warn")
	if err != nil {
		t.Fatal(err)
	}

	logger.Infof("hidden info")
	logger.Warnf("visible %s", "warning")
	logger.Close()

	data, err := os.ReadFile(logger.Path())
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if strings.Contains(content, "hidden info") {
		t.Error("info message should be filtered at warn level")
	}
	if !strings.Contains(content, "[WARN] visible warning") {
		t.Errorf("expected warning in run log, got %q", content)
	}
}

func TestFileLogger_LogTaskResult(t *testing.T) {
	logDir := t.TempDir()
	logger, err := NewFileLogger(logDir, "info")
	if err != nil {
		t.Fatal(err)
	}
	defer logger.Close()

	err = logger.LogTaskResult(&models.TaskReport{
		TaskID:      "TASK2",
		Outcome:     models.OutcomeCompleted,
		Attempts:    3,
		Iterations:  2,
		LastState:   "ERROR_RECOVERY",
		LastTier:    "hard",
		Checkpoints: []int{1, 2},
		Duration:    2 * time.Second,
		Err:         errors.New("earlier failure"),
	})
	if err != nil {
		t.Fatalf("LogTaskResult() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(logDir, "tasks", "TASK2.log"))
	if err != nil {
		t.Fatalf("task log missing: %v", err)
	}
	for _, want := range []string{"Outcome: completed", "Attempts: 3", "Checkpointed phases: 1, 2", "earlier failure", logger.RunID()} {
		if !strings.Contains(string(data), want) {
			t.Errorf("expected %q in task log", want)
		}
	}
}

func TestMultiLogger(t *testing.T) {
	a, b := &bytes.Buffer{}, &bytes.Buffer{}
	multi := NewMultiLogger(NewConsoleLogger(a, "info"), nil, NewConsoleLogger(b, "error"))

	multi.Infof("hello")
	multi.Errorf("bad")

	if !strings.Contains(a.String(), "hello") || !strings.Contains(a.String(), "bad") {
		t.Errorf("first logger missing output: %q", a.String())
	}
	if strings.Contains(b.String(), "hello") || !strings.Contains(b.String(), "bad") {
		t.Errorf("second logger should only see errors: %q", b.String())
	}
	if err := multi.LogTaskResult(&models.TaskReport{TaskID: "TASK1"}); err != nil {
		t.Errorf("unexpected error %v", err)
	}
}
