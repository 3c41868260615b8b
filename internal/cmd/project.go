package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/samuelfaj/claudiomiro-sub004/internal/blueprint"
	"github.com/samuelfaj/claudiomiro-sub004/internal/config"
	"github.com/samuelfaj/claudiomiro-sub004/internal/effort"
	"github.com/samuelfaj/claudiomiro-sub004/internal/execution"
	"github.com/samuelfaj/claudiomiro-sub004/internal/gate"
	"github.com/samuelfaj/claudiomiro-sub004/internal/logger"
	"github.com/samuelfaj/claudiomiro-sub004/internal/models"
	"github.com/samuelfaj/claudiomiro-sub004/internal/runner"
	"github.com/samuelfaj/claudiomiro-sub004/internal/schema"
)

// project is the resolved directory and configuration every subcommand starts from.
type project struct {
	Dir    string
	Config *config.Config
}

// loadProject reads the persistent flags, loads the configuration file and
// applies environment overrides. The caller validates after its own merges.
func loadProject(cmd *cobra.Command) (*project, error) {
	dir, _ := cmd.Flags().GetString("dir")
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project directory %s: %w", dir, err)
	}

	configPath, _ := cmd.Flags().GetString("config")
	var cfg *config.Config
	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
	} else {
		cfg, err = config.LoadConfigFromDir(abs)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	cfg.ApplyEnv(os.Getenv)
	if cmd.Flags().Changed("log-level") {
		level, _ := cmd.Flags().GetString("log-level")
		cfg.MergeWithFlags(nil, nil, nil, &level, nil, nil)
	}
	return &project{Dir: abs, Config: cfg}, nil
}

func (p *project) validate() error {
	if err := p.Config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// path resolves a configured path against the project directory.
func (p *project) path(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(p.Dir, rel)
}

func (p *project) tasksRoot() string {
	return p.path(p.Config.TasksDir)
}

func (p *project) store(log execution.Logger) *execution.Store {
	return execution.NewStore(schema.NewValidator(), log, execution.WithLenient(p.Config.Lenient))
}

func (p *project) selector() *effort.Selector {
	return effort.NewSelector(p.Config.Overrides(), p.Config.EscalationThreshold)
}

func (p *project) discoverTasks() ([]runner.Task, error) {
	return runner.Discover(p.tasksRoot(), p.Dir)
}

func (p *project) findTask(id string) (runner.Task, error) {
	return runner.FindTask(p.tasksRoot(), p.Dir, id)
}

// diagnostics logs repairs and warnings of read-only commands to stderr.
func (p *project) diagnostics(cmd *cobra.Command) *logger.ConsoleLogger {
	level := p.Config.LogLevel
	if level == "info" {
		level = "warn"
	}
	return logger.NewConsoleLogger(cmd.ErrOrStderr(), level)
}

// taskView is what the runner would see for a task if it started now.
// Nothing is written while building it.
type taskView struct {
	Task      runner.Task
	Blueprint *blueprint.Blueprint
	Record    *models.ExecutionRecord
	Seeded    bool // No record on disk; Record is the one a run would seed
	Demoted   *gate.Violation
}

func viewTask(store *execution.Store, task runner.Task) (*taskView, error) {
	bp, err := blueprint.Load(filepath.Join(task.Dir, blueprint.FileName))
	if errors.Is(err, fs.ErrNotExist) {
		bp = blueprint.Parse(nil)
	} else if err != nil {
		return nil, err
	}

	view := &taskView{Task: task, Blueprint: bp}
	path := execution.RecordPath(task.Dir)
	if store.Exists(path) {
		if view.Record, err = store.Load(path); err != nil {
			return nil, err
		}
	} else {
		title := bp.Title
		if title == "" {
			title = task.ID
		}
		view.Record = models.NewExecutionRecord(task.ID, title, bp.Phases, time.Now())
		view.Seeded = true
	}

	if v := gate.Check(view.Record); v != nil {
		view.Demoted = v
		gate.Enforce(view.Record)
	}
	return view, nil
}

func (v *taskView) decide(sel *effort.Selector) effort.Decision {
	return sel.Decide(effort.ExecutionStep, effort.Inputs{
		Attempts:  v.Record.Attempts,
		Record:    v.Record,
		Blueprint: v.Blueprint.Raw,
	})
}

// paint colors s only when w is a terminal.
func paint(w io.Writer, c *color.Color, s string) string {
	if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return c.Sprint(s)
	}
	return s
}

func statusColor(status string) *color.Color {
	switch status {
	case models.TaskCompleted, models.CompletionCompleted:
		return color.New(color.FgGreen)
	case models.TaskBlocked:
		return color.New(color.FgRed)
	case models.TaskInProgress:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgWhite)
	}
}
