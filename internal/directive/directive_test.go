package directive

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samuelfaj/claudiomiro-sub004/internal/models"
)

func newRecord() *models.ExecutionRecord {
	rec := models.NewExecutionRecord("TASK1", "Add login", []string{"Prepare", "Implement"}, time.Now())
	rec.Completion.BlockedBy = []string{}
	return rec
}

var testContext = Context{TaskID: "TASK1", TaskFolder: "/repo/.claudiomiro/task-executor/TASK1", WorkingDir: "/repo"}

func TestDetermineState_FirstExecution(t *testing.T) {
	assert.Equal(t, FirstExecution, DetermineState(newRecord()))
}

func TestDetermineState_Precedence(t *testing.T) {
	rec := newRecord()
	rec.PendingFixes = []string{"success-criteria"}
	assert.Equal(t, ErrorRecovery, DetermineState(rec))

	rec.Completion.BlockedBy = []string{"TASK0 must land first"}
	assert.Equal(t, BlockedDependency, DetermineState(rec))

	rec.Status = models.TaskBlocked
	assert.Equal(t, BlockedExecution, DetermineState(rec))

	rec = newRecord()
	rec.ErrorHistory = []models.ErrorEntry{{Message: "boom"}}
	assert.Equal(t, ErrorRecovery, DetermineState(rec))
}

func TestBuild_FirstExecution(t *testing.T) {
	d, err := Build(newRecord(), testContext)
	require.NoError(t, err)

	assert.Equal(t, FirstExecution, d.State)
	assert.Contains(t, d.Text, "You are executing task TASK1 in /repo.")
	assert.Contains(t, d.Text, "/repo/.claudiomiro/task-executor/TASK1/execution.json")
	assert.Contains(t, d.Text, "Current phase: 1 (Prepare)")
	assert.Contains(t, d.Text, "## First execution")
	assert.NotContains(t, d.Text, "<no value>")
}

func TestBuild_ErrorRecovery(t *testing.T) {
	rec := newRecord()
	rec.Attempts = 2
	rec.PendingFixes = []string{"success-criteria"}
	rec.ErrorHistory = []models.ErrorEntry{
		{Timestamp: "t1", Message: "first failure", FailedValidation: "tests"},
		{Timestamp: "t2", Message: "second failure", FailedValidation: "lint"},
		{Timestamp: "t3", Message: "third failure", FailedValidation: "tests"},
		{Timestamp: "t4", Message: "fourth failure", FailedValidation: "success-criteria"},
	}

	d, err := Build(rec, testContext)
	require.NoError(t, err)

	assert.Equal(t, ErrorRecovery, d.State)
	assert.Contains(t, d.Text, "- success-criteria")
	assert.Contains(t, d.Text, "Last error:\nfourth failure")
	assert.Contains(t, d.Text, "This is attempt 2.")
	assert.Contains(t, d.Text, "1. [t4] success-criteria: fourth failure")
	assert.Contains(t, d.Text, "3. [t2] lint: second failure")
	assert.NotContains(t, d.Text, "first failure")
	assert.Less(t, strings.Index(d.Text, "fourth failure"), strings.Index(d.Text, "third failure"))
}

func TestBuild_PendingFixesOnly(t *testing.T) {
	rec := newRecord()
	rec.PendingFixes = []string{"success-criteria"}

	d, err := Build(rec, testContext)
	require.NoError(t, err)
	assert.Equal(t, ErrorRecovery, d.State)
	assert.Contains(t, d.Text, "success-criteria")
	assert.NotContains(t, d.Text, "Last error")
}

func TestBuild_BlockedDependency(t *testing.T) {
	rec := newRecord()
	rec.Completion.BlockedBy = []string{"API schema not merged", "Missing credentials"}
	ctx := testContext
	ctx.ReviewArtifacts = []string{"/repo/.claudiomiro/task-executor/TASK1/CODE_REVIEW.md"}

	d, err := Build(rec, ctx)
	require.NoError(t, err)

	assert.Equal(t, BlockedDependency, d.State)
	assert.Contains(t, d.Text, "1. API schema not merged")
	assert.Contains(t, d.Text, "2. Missing credentials")
	assert.Contains(t, d.Text, "- /repo/.claudiomiro/task-executor/TASK1/CODE_REVIEW.md")
}

func TestBuild_BlockedExecution(t *testing.T) {
	rec := newRecord()
	rec.Status = models.TaskBlocked
	rec.CurrentPhase = models.CurrentPhase{ID: 2, Name: "Implement"}
	rec.Completion.Summary = []string{"Prepared fixtures"}
	rec.Completion.Deviations = []string{"Database unavailable"}

	d, err := Build(rec, testContext)
	require.NoError(t, err)

	assert.Equal(t, BlockedExecution, d.State)
	assert.Contains(t, d.Text, "stopped itself at phase 2 (Implement)")
	assert.Contains(t, d.Text, "- Prepared fixtures")
	assert.Contains(t, d.Text, "- Database unavailable")
}

func TestBuild_IsPure(t *testing.T) {
	rec := newRecord()
	rec.PendingFixes = []string{"a"}
	first, err := Build(rec, testContext)
	require.NoError(t, err)
	second, err := Build(rec, testContext)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, []string{"a"}, rec.PendingFixes)
}

func TestFindReviewArtifacts(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "CODE_REVIEW.md"), []byte("fix it"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "REVIEW.md"), 0755))

	assert.Equal(t, []string{filepath.Join(dir, "CODE_REVIEW.md")}, FindReviewArtifacts(dir))
	assert.Empty(t, FindReviewArtifacts(filepath.Join(dir, "missing")))
}
