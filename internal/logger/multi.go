package logger

import (
	"errors"

	"github.com/samuelfaj/claudiomiro-sub004/internal/models"
)

// Logger is the full surface implemented by every logger in this package.
type Logger interface {
	Tracef(format string, args ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	LogTaskStart(taskID string, attempt int, state, tier string)
	LogTaskResult(report *models.TaskReport) error
	LogSummary(summary *models.RunSummary)
}

var (
	_ Logger = (*ConsoleLogger)(nil)
	_ Logger = (*FileLogger)(nil)
	_ Logger = (*NoOpLogger)(nil)
	_ Logger = (*MultiLogger)(nil)
)

// MultiLogger fans every call out to each of its loggers.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger creates a MultiLogger. Nil entries are skipped.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	m := &MultiLogger{}
	for _, l := range loggers {
		if l != nil {
			m.loggers = append(m.loggers, l)
		}
	}
	return m
}

func (m *MultiLogger) Tracef(format string, args ...interface{}) {
	for _, l := range m.loggers {
		l.Tracef(format, args...)
	}
}

func (m *MultiLogger) Debugf(format string, args ...interface{}) {
	for _, l := range m.loggers {
		l.Debugf(format, args...)
	}
}

func (m *MultiLogger) Infof(format string, args ...interface{}) {
	for _, l := range m.loggers {
		l.Infof(format, args...)
	}
}

func (m *MultiLogger) Warnf(format string, args ...interface{}) {
	for _, l := range m.loggers {
		l.Warnf(format, args...)
	}
}

func (m *MultiLogger) Errorf(format string, args ...interface{}) {
	for _, l := range m.loggers {
		l.Errorf(format, args...)
	}
}

func (m *MultiLogger) LogTaskStart(taskID string, attempt int, state, tier string) {
	for _, l := range m.loggers {
		l.LogTaskStart(taskID, attempt, state, tier)
	}
}

// LogTaskResult forwards report to every logger and joins their errors.
func (m *MultiLogger) LogTaskResult(report *models.TaskReport) error {
	var errs []error
	for _, l := range m.loggers {
		if err := l.LogTaskResult(report); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiLogger) LogSummary(summary *models.RunSummary) {
	for _, l := range m.loggers {
		l.LogSummary(summary)
	}
}
