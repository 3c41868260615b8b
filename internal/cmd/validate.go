package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/samuelfaj/claudiomiro-sub004/internal/execution"
	"github.com/samuelfaj/claudiomiro-sub004/internal/schema"
)

// NewValidateCommand creates the validate command
func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [record-or-task...]",
		Short: "Validate execution records",
		Long: `Validate execution records against the execution record schema.

Arguments may be execution.json files, task folders or task ids. Without
arguments every task under the tasks directory is checked.

Critical defects (unparseable files, dangerous content) always fail.
Other defects are reported, and fail only with --strict. With --write the
repaired record is saved in place.`,
		RunE: validateCommand,
	}

	cmd.Flags().Bool("strict", false, "Fail on any defect, not only critical ones")
	cmd.Flags().Bool("write", false, "Save repaired records in place")

	return cmd
}

func validateCommand(cmd *cobra.Command, args []string) error {
	p, err := loadProject(cmd)
	if err != nil {
		return err
	}
	if err := p.validate(); err != nil {
		return err
	}
	strict, _ := cmd.Flags().GetBool("strict")
	write, _ := cmd.Flags().GetBool("write")

	paths, err := recordPaths(p, args)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(paths) == 0 {
		fmt.Fprintf(out, "No execution records found in %s\n", p.tasksRoot())
		return nil
	}

	store := p.store(p.diagnostics(cmd))
	failed := 0
	for _, path := range paths {
		if !validateRecord(out, store, path, strict, write) {
			failed++
		}
	}

	if failed > 0 {
		fmt.Fprintf(out, "\n✗ %d of %d record(s) failed validation\n", failed, len(paths))
		return fmt.Errorf("%d record(s) failed validation", failed)
	}
	fmt.Fprintf(out, "\n✓ %d record(s) checked\n", len(paths))
	return nil
}

// recordPaths resolves arguments to execution record paths.
func recordPaths(p *project, args []string) ([]string, error) {
	if len(args) == 0 {
		tasks, err := p.discoverTasks()
		if err != nil {
			return nil, err
		}
		var paths []string
		for _, task := range tasks {
			path := execution.RecordPath(task.Dir)
			if _, err := os.Stat(path); err == nil {
				paths = append(paths, path)
			}
		}
		return paths, nil
	}

	paths := make([]string, 0, len(args))
	for _, arg := range args {
		info, err := os.Stat(arg)
		switch {
		case err == nil && info.IsDir():
			paths = append(paths, execution.RecordPath(arg))
		case err == nil:
			paths = append(paths, arg)
		default:
			task, findErr := p.findTask(arg)
			if findErr != nil {
				return nil, fmt.Errorf("%s is neither a file nor a task: %w", arg, findErr)
			}
			paths = append(paths, execution.RecordPath(task.Dir))
		}
	}
	return paths, nil
}

// validateRecord reports on one record and returns whether it passed.
func validateRecord(out io.Writer, store *execution.Store, path string, strict, write bool) bool {
	result, err := store.Inspect(path)
	if err != nil {
		fmt.Fprintf(out, "✗ %s\n  %v\n", path, err)
		return false
	}
	if result.Valid {
		fmt.Fprintf(out, "✓ %s\n", path)
		return true
	}

	fmt.Fprintf(out, "! %s: %d issue(s)\n%s\n", path, len(result.Errors), schema.FormatErrors(result.Errors))
	if write && result.RepairedData != nil {
		if err := store.SaveRaw(path, result.RepairedData, execution.Lenient()); err != nil {
			fmt.Fprintf(out, "  ✗ failed to save repaired record: %v\n", err)
			return false
		}
		fmt.Fprintln(out, "  repaired record saved")
	}
	return !strict
}
