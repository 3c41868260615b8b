package logger

import "github.com/samuelfaj/claudiomiro-sub004/internal/models"

// NoOpLogger discards everything. Useful in tests.
type NoOpLogger struct{}

// NewNoOpLogger creates a NoOpLogger.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (n *NoOpLogger) Tracef(format string, args ...interface{}) {
}

func (n *NoOpLogger) Debugf(format string, args ...interface{}) {
}

func (n *NoOpLogger) Infof(format string, args ...interface{}) {
}

func (n *NoOpLogger) Warnf(format string, args ...interface{}) {
}

func (n *NoOpLogger) Errorf(format string, args ...interface{}) {
}

func (n *NoOpLogger) LogTaskStart(taskID string, attempt int, state, tier string) {
}

func (n *NoOpLogger) LogTaskResult(report *models.TaskReport) error {
	return nil
}

func (n *NoOpLogger) LogSummary(summary *models.RunSummary) {
}
