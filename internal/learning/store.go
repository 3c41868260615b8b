// Package learning keeps a SQLite history of task attempts across runs.
package learning

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Attempt is one actor invocation of a task.
type Attempt struct {
	ID           int64
	RunID        string
	TaskID       string
	Attempt      int
	State        string // Directive state the attempt ran with
	Tier         string
	Model        string
	Success      bool
	ErrorMessage string
	Duration     time.Duration
	Checkpoints  []int // Phases checkpointed after the attempt
	Timestamp    time.Time
}

// TaskStats summarizes the attempts of one task.
type TaskStats struct {
	TaskID        string
	TotalAttempts int
	Successes     int
	Failures      int
	Runs          int
	AvgDuration   time.Duration
	LastTier      string
	LastError     string
	LastAttempt   time.Time
}

// SuccessRate returns successes over attempts, 0 without attempts.
func (s *TaskStats) SuccessRate() float64 {
	if s.TotalAttempts == 0 {
		return 0
	}
	return float64(s.Successes) / float64(s.TotalAttempts)
}

// Store manages the SQLite attempt history.
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore opens (creating if needed) the database at dbPath and applies
// migrations. ":memory:" opens a private in-memory database.
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	// busy_timeout is per connection, so it goes in the DSN for the whole pool.
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	store := &Store{db: db, dbPath: dbPath}
	if err := store.ApplyMigrations(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return store, nil
}

// execWithRetry retries statements that fail with "database is locked",
// which happens when several processes open the same file at once.
func execWithRetry(db *sql.DB, stmt string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(stmt)
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		lastErr = err
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

// Path returns the database path.
func (s *Store) Path() string {
	return s.dbPath
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// RecordAttempt inserts a and sets its ID. A zero Timestamp is set to now.
func (s *Store) RecordAttempt(ctx context.Context, a *Attempt) error {
	if a.TaskID == "" {
		return fmt.Errorf("record attempt: task id is required")
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now()
	}

	result, err := s.db.ExecContext(ctx, `INSERT INTO task_attempts
		(run_id, task_id, attempt, state, tier, model, success, error_message, duration_ms, checkpoints, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.RunID,
		a.TaskID,
		a.Attempt,
		a.State,
		a.Tier,
		a.Model,
		a.Success,
		a.ErrorMessage,
		a.Duration.Milliseconds(),
		formatPhases(a.Checkpoints),
		a.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert task attempt: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	a.ID = id
	return nil
}

// GetAttempts returns the attempts of taskID, oldest first.
func (s *Store) GetAttempts(ctx context.Context, taskID string) ([]*Attempt, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, run_id, task_id, attempt, state, tier, model, success,
		error_message, duration_ms, checkpoints, timestamp
		FROM task_attempts
		WHERE task_id = ?
		ORDER BY id ASC`, taskID)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*Attempt
	for rows.Next() {
		a := &Attempt{}
		var model, errorMessage sql.NullString
		var durationMs sql.NullInt64
		var checkpoints string
		if err := rows.Scan(&a.ID, &a.RunID, &a.TaskID, &a.Attempt, &a.State, &a.Tier, &model, &a.Success,
			&errorMessage, &durationMs, &checkpoints, &a.Timestamp); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		a.Model = model.String
		a.ErrorMessage = errorMessage.String
		a.Duration = time.Duration(durationMs.Int64) * time.Millisecond
		a.Checkpoints = parsePhases(checkpoints)
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return attempts, nil
}

// GetTaskStats aggregates the attempts of taskID. A task without history
// returns zero counts.
func (s *Store) GetTaskStats(ctx context.Context, taskID string) (*TaskStats, error) {
	stats := &TaskStats{TaskID: taskID}

	var avgMs sql.NullFloat64
	var successes sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*), SUM(CASE WHEN success THEN 1 ELSE 0 END),
		COUNT(DISTINCT run_id), AVG(duration_ms)
		FROM task_attempts WHERE task_id = ?`, taskID).
		Scan(&stats.TotalAttempts, &successes, &stats.Runs, &avgMs)
	if err != nil {
		return nil, fmt.Errorf("query task stats: %w", err)
	}
	if stats.TotalAttempts == 0 {
		return stats, nil
	}
	stats.Successes = int(successes.Int64)
	stats.Failures = stats.TotalAttempts - stats.Successes
	stats.AvgDuration = time.Duration(avgMs.Float64) * time.Millisecond

	var lastError sql.NullString
	err = s.db.QueryRowContext(ctx, `SELECT tier, error_message, timestamp FROM task_attempts
		WHERE task_id = ? ORDER BY id DESC LIMIT 1`, taskID).
		Scan(&stats.LastTier, &lastError, &stats.LastAttempt)
	if err != nil {
		return nil, fmt.Errorf("query last attempt: %w", err)
	}
	stats.LastError = lastError.String
	return stats, nil
}

// CleanupOldAttempts deletes attempts older than keepDays and returns how
// many were removed. keepDays <= 0 keeps everything.
func (s *Store) CleanupOldAttempts(ctx context.Context, keepDays int) (int64, error) {
	if keepDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -keepDays)
	result, err := s.db.ExecContext(ctx, `DELETE FROM task_attempts WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old attempts: %w", err)
	}
	return result.RowsAffected()
}

func formatPhases(phases []int) string {
	parts := make([]string, len(phases))
	for i, p := range phases {
		parts[i] = fmt.Sprint(p)
	}
	return strings.Join(parts, ",")
}

func parsePhases(s string) []int {
	if s == "" {
		return nil
	}
	var phases []int
	for _, part := range strings.Split(s, ",") {
		var n int
		if _, err := fmt.Sscan(part, &n); err == nil {
			phases = append(phases, n)
		}
	}
	return phases
}
