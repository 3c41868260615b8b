// Package directive selects the execution state of a task and renders the
// instruction text handed to the actor for that state.
package directive

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/samuelfaj/claudiomiro-sub004/internal/models"
)

// State is the execution state of a task.
type State string

const (
	FirstExecution    State = "FIRST_EXECUTION"
	ErrorRecovery     State = "ERROR_RECOVERY"
	BlockedDependency State = "BLOCKED_DEPENDENCY"
	BlockedExecution  State = "BLOCKED_EXECUTION"
)

// recentErrorCount is how many history entries an error recovery directive shows.
const recentErrorCount = 3

// ReviewArtifactNames are the review files looked up in a task folder.
var ReviewArtifactNames = []string{"CODE_REVIEW.md", "REVIEW.md", "BLOCKED.md"}

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(
	template.New("directive").
		Funcs(template.FuncMap{"inc": func(i int) int { return i + 1 }}).
		ParseFS(templateFS, "templates/*.tmpl"),
)

var stateTemplates = map[State]string{
	FirstExecution:    "first_execution.tmpl",
	ErrorRecovery:     "error_recovery.tmpl",
	BlockedDependency: "blocked_dependency.tmpl",
	BlockedExecution:  "blocked_execution.tmpl",
}

// DetermineState picks the state by precedence: blocked status, then
// blocking dependencies, then recorded errors or pending fixes.
func DetermineState(rec *models.ExecutionRecord) State {
	switch {
	case rec.Status == models.TaskBlocked:
		return BlockedExecution
	case len(rec.Completion.BlockedBy) > 0:
		return BlockedDependency
	case len(rec.ErrorHistory) > 0 || len(rec.PendingFixes) > 0:
		return ErrorRecovery
	default:
		return FirstExecution
	}
}

// Context is the path information a directive needs.
type Context struct {
	TaskID          string
	TaskFolder      string
	WorkingDir      string
	ReviewArtifacts []string
}

// Directive is the rendered instruction text for one actor invocation.
type Directive struct {
	State State
	Text  string
}

type templateData struct {
	TaskID          string
	TaskFolder      string
	WorkingDir      string
	RecordPath      string
	CurrentPhase    string
	Attempts        int
	PendingFixes    []string
	LastError       string
	RecentErrors    []models.ErrorEntry
	BlockedBy       []string
	ReviewArtifacts []string
	Summary         []string
	Deviations      []string
	BlockingPhase   string
}

// Build renders the directive for rec. It has no side effects.
func Build(rec *models.ExecutionRecord, ctx Context) (*Directive, error) {
	state := DetermineState(rec)

	taskID := ctx.TaskID
	if taskID == "" {
		taskID = rec.Task
	}
	phase := fmt.Sprintf("%d (%s)", rec.CurrentPhase.ID, models.PhaseLabel(rec.CurrentPhase.ID, rec.CurrentPhase.Name))

	data := templateData{
		TaskID:          taskID,
		TaskFolder:      ctx.TaskFolder,
		WorkingDir:      ctx.WorkingDir,
		RecordPath:      filepath.Join(ctx.TaskFolder, "execution.json"),
		CurrentPhase:    phase,
		Attempts:        rec.Attempts,
		PendingFixes:    rec.PendingFixes,
		LastError:       rec.LastError(),
		RecentErrors:    rec.RecentErrors(recentErrorCount),
		BlockedBy:       rec.Completion.BlockedBy,
		ReviewArtifacts: ctx.ReviewArtifacts,
		Summary:         rec.Completion.Summary,
		Deviations:      rec.Completion.Deviations,
		BlockingPhase:   "phase " + phase,
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "base.tmpl", data); err != nil {
		return nil, fmt.Errorf("render base directive: %w", err)
	}
	if err := templates.ExecuteTemplate(&buf, stateTemplates[state], data); err != nil {
		return nil, fmt.Errorf("render %s directive: %w", state, err)
	}
	return &Directive{State: state, Text: buf.String()}, nil
}

// FindReviewArtifacts returns the review files present in taskFolder.
func FindReviewArtifacts(taskFolder string) []string {
	var found []string
	for _, name := range ReviewArtifactNames {
		path := filepath.Join(taskFolder, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			found = append(found, path)
		}
	}
	return found
}
