package runner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samuelfaj/claudiomiro-sub004/internal/models"
)

type stubRunner struct {
	delay   time.Duration
	fail    map[string]error
	running atomic.Int32
	peak    atomic.Int32
	mu      sync.Mutex
	ran     []string
}

func (s *stubRunner) RunTask(ctx context.Context, task Task) (*models.TaskReport, error) {
	n := s.running.Add(1)
	defer s.running.Add(-1)
	for {
		peak := s.peak.Load()
		if n <= peak || s.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	time.Sleep(s.delay)

	s.mu.Lock()
	s.ran = append(s.ran, task.ID)
	s.mu.Unlock()

	if err := s.fail[task.ID]; err != nil {
		return &models.TaskReport{TaskID: task.ID, Outcome: models.OutcomeFailed, Err: err}, err
	}
	return &models.TaskReport{TaskID: task.ID, Outcome: models.OutcomeCompleted}, nil
}

func tasks(ids ...string) []Task {
	out := make([]Task, len(ids))
	for i, id := range ids {
		out[i] = Task{ID: id}
	}
	return out
}

func TestPool_RunsAllTasksInOrder(t *testing.T) {
	stub := &stubRunner{delay: 10 * time.Millisecond}
	pool := NewPool(stub, 0, "run-1")

	summary, err := pool.Run(context.Background(), tasks("TASK1", "TASK2", "TASK3"))
	require.NoError(t, err)
	assert.Equal(t, "run-1", summary.RunID)
	require.Len(t, summary.Reports, 3)
	for i, id := range []string{"TASK1", "TASK2", "TASK3"} {
		assert.Equal(t, id, summary.Reports[i].TaskID)
	}
	assert.Equal(t, 3, summary.Completed())
}

func TestPool_RespectsConcurrencyLimit(t *testing.T) {
	stub := &stubRunner{delay: 20 * time.Millisecond}
	pool := NewPool(stub, 2, "run")

	_, err := pool.Run(context.Background(), tasks("T1", "T2", "T3", "T4", "T5", "T6"))
	require.NoError(t, err)
	assert.LessOrEqual(t, stub.peak.Load(), int32(2))
	assert.Len(t, stub.ran, 6)
}

func TestPool_FailureDoesNotStopOthers(t *testing.T) {
	boom := NewTaskError("T2", "attempt 1 stopped", errors.New("boom"))
	stub := &stubRunner{fail: map[string]error{"T2": boom}}
	pool := NewPool(stub, 1, "run")

	summary, err := pool.Run(context.Background(), tasks("T1", "T2", "T3"))
	require.Error(t, err)

	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, 3, execErr.TotalTasks)
	require.Len(t, execErr.TaskErrors, 1)
	assert.Same(t, boom, execErr.TaskErrors[0])
	assert.Contains(t, err.Error(), "1 of 3 tasks failed")

	assert.Equal(t, 2, summary.Completed())
	assert.Len(t, stub.ran, 3)
	assert.ErrorIs(t, err, boom)
}

func TestPool_WrapsPlainErrors(t *testing.T) {
	stub := &stubRunner{fail: map[string]error{"T1": errors.New("plain")}}

	_, err := NewPool(stub, 0, "run").Run(context.Background(), tasks("T1"))
	var te *TaskError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "T1", te.TaskID)
}

func TestPool_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stub := &stubRunner{}

	summary, err := NewPool(stub, 0, "run").Run(ctx, tasks("T1", "T2"))
	require.Error(t, err)
	assert.Empty(t, stub.ran)
	for _, r := range summary.Reports {
		assert.Equal(t, models.OutcomeFailed, r.Outcome)
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
}
