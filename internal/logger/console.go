// Package logger writes engine progress to the console and to per-run log
// files. Every implementation is safe for concurrent use by pool workers.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/samuelfaj/claudiomiro-sub004/internal/models"
)

// ConsoleLogger writes "[HH:MM:SS] [LEVEL] message" lines, filtered by level.
// Output is colorized when the writer is a terminal.
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
}

// NewConsoleLogger creates a ConsoleLogger. A nil writer discards messages
// and an unknown level falls back to "info".
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: isTerminal(writer),
	}
}

// isTerminal reports whether w is a TTY and NO_COLOR is not set.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	if color.NoColor {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Level returns the configured level.
func (cl *ConsoleLogger) Level() string {
	return cl.logLevel
}

func (cl *ConsoleLogger) Tracef(format string, args ...interface{}) {
	cl.logWithLevel("TRACE", fmt.Sprintf(format, args...))
}

func (cl *ConsoleLogger) Debugf(format string, args ...interface{}) {
	cl.logWithLevel("DEBUG", fmt.Sprintf(format, args...))
}

func (cl *ConsoleLogger) Infof(format string, args ...interface{}) {
	cl.logWithLevel("INFO", fmt.Sprintf(format, args...))
}

func (cl *ConsoleLogger) Warnf(format string, args ...interface{}) {
	cl.logWithLevel("WARN", fmt.Sprintf(format, args...))
}

func (cl *ConsoleLogger) Errorf(format string, args ...interface{}) {
	cl.logWithLevel("ERROR", fmt.Sprintf(format, args...))
}

func (cl *ConsoleLogger) logWithLevel(level string, message string) {
	if cl.writer == nil || !enabled(cl.logLevel, strings.ToLower(level)) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	label := level
	if cl.colorOutput {
		label = levelColor(level).Sprint(level)
	}
	fmt.Fprintf(cl.writer, "[%s] [%s] %s\n", timestamp(), label, message)
}

func levelColor(level string) *color.Color {
	switch level {
	case "TRACE":
		return color.New(color.FgHiBlack)
	case "DEBUG":
		return color.New(color.FgCyan)
	case "INFO":
		return color.New(color.FgBlue)
	case "WARN":
		return color.New(color.FgYellow)
	case "ERROR":
		return color.New(color.FgRed)
	default:
		return color.New(color.Reset)
	}
}

func outcomeColor(outcome string) *color.Color {
	switch outcome {
	case models.OutcomeCompleted:
		return color.New(color.FgGreen)
	case models.OutcomeBlocked, models.OutcomeExhausted:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}

// LogTaskStart logs the beginning of an actor iteration at INFO level.
// Format: "[HH:MM:SS] TASK3 attempt 2: ERROR_RECOVERY (hard)"
func (cl *ConsoleLogger) LogTaskStart(taskID string, attempt int, state, tier string) {
	if cl.writer == nil || !enabled(cl.logLevel, "info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	name := taskID
	if cl.colorOutput {
		name = color.New(color.Bold).Sprint(taskID)
	}
	fmt.Fprintf(cl.writer, "[%s] %s attempt %d: %s (%s)\n", timestamp(), name, attempt, state, tier)
}

// LogTaskResult logs a finished task at INFO level.
// Format: "[HH:MM:SS] TASK3: completed after 2 attempts (1m5s)"
func (cl *ConsoleLogger) LogTaskResult(report *models.TaskReport) error {
	if cl.writer == nil || report == nil || !enabled(cl.logLevel, "info") {
		return nil
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	outcome := report.Outcome
	if cl.colorOutput {
		outcome = outcomeColor(report.Outcome).Sprint(report.Outcome)
	}
	line := fmt.Sprintf("[%s] %s: %s after %d attempts (%s)", timestamp(), report.TaskID, outcome,
		report.Attempts, formatDuration(report.Duration))
	if report.Err != nil {
		line += ": " + report.Err.Error()
	}
	_, err := fmt.Fprintln(cl.writer, line)
	return err
}

// LogSummary logs the aggregate of a pool run at INFO level.
func (cl *ConsoleLogger) LogSummary(summary *models.RunSummary) {
	if cl.writer == nil || summary == nil || !enabled(cl.logLevel, "info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	total := len(summary.Reports)
	completed := summary.Completed()
	unfinished := summary.Unfinished()

	header := "=== Run Summary ==="
	completedText := fmt.Sprintf("Completed: %d", completed)
	unfinishedText := fmt.Sprintf("Unfinished: %d", len(unfinished))
	if cl.colorOutput {
		header = color.New(color.Bold).Sprint(header)
		completedText = color.New(color.FgGreen).Sprint(completedText)
		if len(unfinished) > 0 {
			unfinishedText = color.New(color.FgRed).Sprint(unfinishedText)
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s\n", ts, header)
	fmt.Fprintf(&sb, "[%s] Total tasks: %d\n", ts, total)
	fmt.Fprintf(&sb, "[%s] %s\n", ts, completedText)
	fmt.Fprintf(&sb, "[%s] %s\n", ts, unfinishedText)
	fmt.Fprintf(&sb, "[%s] Duration: %s\n", ts, formatDuration(summary.Duration))
	for _, r := range unfinished {
		fmt.Fprintf(&sb, "[%s]   - %s: %s\n", ts, r.TaskID, r.Outcome)
	}
	io.WriteString(cl.writer, sb.String())
}

// timestamp returns the current time as HH:MM:SS.
func timestamp() string {
	return time.Now().Format("15:04:05")
}

// formatDuration renders d as "5s", "1m30s" or "2h15m".
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		hours := d / time.Hour
		minutes := (d % time.Hour) / time.Minute
		if minutes == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		return fmt.Sprintf("%dh%dm", hours, minutes)
	case d >= time.Minute:
		minutes := d / time.Minute
		seconds := (d % time.Minute) / time.Second
		if seconds == 0 {
			return fmt.Sprintf("%dm", minutes)
		}
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", int64(d.Seconds()))
	}
}
