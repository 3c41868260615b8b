package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/samuelfaj/claudiomiro-sub004/internal/models"
)

// DefaultLogDir is the log directory relative to the project root.
var DefaultLogDir = filepath.Join(".claudiomiro", "logs")

// FileLogger writes a timestamped run log per invocation, a per-task result
// file under tasks/, and keeps latest.log pointing at the newest run.
type FileLogger struct {
	runID    string
	logDir   string
	runLog   *os.File
	runFile  string
	tasksDir string
	logLevel string
	mu       sync.Mutex
}

// NewFileLogger creates a FileLogger in logDir at the given level.
func NewFileLogger(logDir string, logLevel string) (*FileLogger, error) {
	if logDir == "" {
		logDir = DefaultLogDir
	}
	tasksDir := filepath.Join(logDir, "tasks")
	if err := os.MkdirAll(tasksDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	runID := uuid.New().String()
	runFile := filepath.Join(logDir, fmt.Sprintf("run-%s-%s.log", time.Now().Format("20060102-150405"), runID[:8]))
	file, err := os.OpenFile(runFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log file: %w", err)
	}

	symlinkPath := filepath.Join(logDir, "latest.log")
	if _, err := os.Lstat(symlinkPath); err == nil {
		if err := os.Remove(symlinkPath); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to remove old symlink: %w", err)
		}
	}
	if err := os.Symlink(filepath.Base(runFile), symlinkPath); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create symlink: %w", err)
	}

	fl := &FileLogger{
		runID:    runID,
		logDir:   logDir,
		runLog:   file,
		runFile:  runFile,
		tasksDir: tasksDir,
		logLevel: normalizeLogLevel(logLevel),
	}
	fl.writeRunLog(fmt.Sprintf("=== claudiomiro run %s ===\nStarted at: %s\n\n", runID, time.Now().Format(time.RFC3339)))
	return fl, nil
}

// RunID returns the identifier of this run.
func (fl *FileLogger) RunID() string {
	return fl.runID
}

// Path returns the run log path.
func (fl *FileLogger) Path() string {
	return fl.runFile
}

func (fl *FileLogger) Tracef(format string, args ...interface{}) {
	fl.logWithLevel("TRACE", fmt.Sprintf(format, args...))
}

func (fl *FileLogger) Debugf(format string, args ...interface{}) {
	fl.logWithLevel("DEBUG", fmt.Sprintf(format, args...))
}

func (fl *FileLogger) Infof(format string, args ...interface{}) {
	fl.logWithLevel("INFO", fmt.Sprintf(format, args...))
}

func (fl *FileLogger) Warnf(format string, args ...interface{}) {
	fl.logWithLevel("WARN", fmt.Sprintf(format, args...))
}

func (fl *FileLogger) Errorf(format string, args ...interface{}) {
	fl.logWithLevel("ERROR", fmt.Sprintf(format, args...))
}

func (fl *FileLogger) logWithLevel(level string, message string) {
	if !enabled(fl.logLevel, strings.ToLower(level)) {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] [%s] %s\n", timestamp(), level, message))
}

// LogTaskStart records an actor iteration in the run log.
func (fl *FileLogger) LogTaskStart(taskID string, attempt int, state, tier string) {
	if !enabled(fl.logLevel, "info") {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] %s attempt %d: %s (%s)\n", timestamp(), taskID, attempt, state, tier))
}

// LogTaskResult writes tasks/<taskID>.log with the details of report.
func (fl *FileLogger) LogTaskResult(report *models.TaskReport) error {
	if report == nil {
		return nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "=== %s ===\n", report.TaskID)
	fmt.Fprintf(&sb, "Run: %s\n", fl.runID)
	fmt.Fprintf(&sb, "Outcome: %s\n", report.Outcome)
	fmt.Fprintf(&sb, "Attempts: %d\n", report.Attempts)
	fmt.Fprintf(&sb, "Iterations: %d\n", report.Iterations)
	fmt.Fprintf(&sb, "Last state: %s\n", report.LastState)
	fmt.Fprintf(&sb, "Last tier: %s\n", report.LastTier)
	fmt.Fprintf(&sb, "Duration: %.1fs\n", report.Duration.Seconds())
	if len(report.Checkpoints) > 0 {
		phases := make([]string, 0, len(report.Checkpoints))
		for _, n := range report.Checkpoints {
			phases = append(phases, fmt.Sprint(n))
		}
		fmt.Fprintf(&sb, "Checkpointed phases: %s\n", strings.Join(phases, ", "))
	}
	if report.Err != nil {
		fmt.Fprintf(&sb, "\nError:\n%v\n", report.Err)
	}
	fmt.Fprintf(&sb, "\nCompleted at: %s\n", time.Now().Format(time.RFC3339))

	fl.mu.Lock()
	defer fl.mu.Unlock()

	path := filepath.Join(fl.tasksDir, report.TaskID+".log")
	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("failed to write task log: %w", err)
	}
	if fl.runLog != nil {
		fmt.Fprintf(fl.runLog, "[%s] %s: %s after %d attempts\n", timestamp(), report.TaskID, report.Outcome, report.Attempts)
	}
	return nil
}

// LogSummary appends the run summary to the run log.
func (fl *FileLogger) LogSummary(summary *models.RunSummary) {
	if summary == nil || !enabled(fl.logLevel, "info") {
		return
	}

	total := len(summary.Reports)
	completed := summary.Completed()
	status := "SUCCESS"
	if completed < total {
		status = "PARTIAL"
		if completed == 0 {
			status = "FAILED"
		}
	}

	ts := timestamp()
	fl.writeRunLog(fmt.Sprintf(
		"\n[%s] === RUN SUMMARY ===\n"+
			"[%s] Total tasks:  %d\n"+
			"[%s] Completed:    %d\n"+
			"[%s] Total time:   %.1fs\n"+
			"[%s] Status:       %s (%d/%d tasks completed)\n",
		ts, ts, total, ts, completed, ts, summary.Duration.Seconds(), ts, status, completed, total,
	))
}

// Close syncs and closes the run log.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog == nil {
		return nil
	}
	if err := fl.runLog.Sync(); err != nil {
		return fmt.Errorf("failed to sync run log: %w", err)
	}
	if err := fl.runLog.Close(); err != nil {
		return fmt.Errorf("failed to close run log: %w", err)
	}
	fl.runLog = nil
	return nil
}

func (fl *FileLogger) writeRunLog(message string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		fl.runLog.WriteString(message)
		fl.runLog.Sync()
	}
}
