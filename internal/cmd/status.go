package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/samuelfaj/claudiomiro-sub004/internal/directive"
	"github.com/samuelfaj/claudiomiro-sub004/internal/effort"
	"github.com/samuelfaj/claudiomiro-sub004/internal/models"
)

// NewStatusCommand creates the status command
func NewStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status [task-id]",
		Short: "Show task progress",
		Long: `Without arguments, list every task with its status, attempts and phase.
With a task id, show the task's execution record in detail along with the
state and effort tier its next attempt would use.

Records are repaired in memory only; nothing is written.`,
		Args: cobra.MaximumNArgs(1),
		RunE: statusCommand,
	}
	cmd.Flags().Bool("json", false, "Print the repaired execution record as JSON")
	return cmd
}

func statusCommand(cmd *cobra.Command, args []string) error {
	p, err := loadProject(cmd)
	if err != nil {
		return err
	}
	if err := p.validate(); err != nil {
		return err
	}
	store := p.store(p.diagnostics(cmd))
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		tasks, err := p.discoverTasks()
		if err != nil {
			return err
		}
		if len(tasks) == 0 {
			fmt.Fprintf(out, "No tasks found in %s\n", p.tasksRoot())
			return nil
		}
		views := make([]*taskView, 0, len(tasks))
		for _, task := range tasks {
			view, err := viewTask(store, task)
			if err != nil {
				return fmt.Errorf("%s: %w", task.ID, err)
			}
			views = append(views, view)
		}
		return printStatusTable(out, views)
	}

	task, err := p.findTask(args[0])
	if err != nil {
		return err
	}
	view, err := viewTask(store, task)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		data, err := json.MarshalIndent(view.Record, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode execution record: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}
	printStatus(out, view, view.decide(p.selector()))
	return nil
}

func printStatusTable(out io.Writer, views []*taskView) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TASK\tSTATUS\tATTEMPTS\tPHASE\tTITLE")
	for _, v := range views {
		rec := v.Record
		status := rec.Status
		if v.Seeded {
			status = "not started"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d/%d\t%s\n",
			v.Task.ID, status, rec.Attempts, rec.CompletedPrefix(), len(rec.Phases), rec.Title)
	}
	return tw.Flush()
}

func printStatus(out io.Writer, v *taskView, decision effort.Decision) {
	rec := v.Record
	bold := color.New(color.Bold)

	fmt.Fprintf(out, "%s %s\n", paint(out, bold, rec.Task), rec.Title)
	if v.Seeded {
		fmt.Fprintln(out, "  No execution record yet; showing the record a run would seed.")
	}
	fmt.Fprintf(out, "  Status:     %s\n", paint(out, statusColor(rec.Status), rec.Status))
	fmt.Fprintf(out, "  Completion: %s\n", paint(out, statusColor(rec.Completion.Status), rec.Completion.Status))
	fmt.Fprintf(out, "  Attempts:   %d\n", rec.Attempts)
	if len(rec.Phases) > 0 {
		fmt.Fprintf(out, "  Phase:      %d (%s)\n", rec.CurrentPhase.ID, models.PhaseLabel(rec.CurrentPhase.ID, rec.CurrentPhase.Name))
	}
	if v.Demoted != nil {
		fmt.Fprintf(out, "  Gate:       %s\n", paint(out, color.New(color.FgYellow), v.Demoted.String()))
	}
	if !rec.IsTerminal() {
		fmt.Fprintf(out, "  Next:       %s, tier %s (%s)\n", directive.DetermineState(rec), decision.Tier, decision.Source)
	}

	if len(rec.Phases) > 0 {
		fmt.Fprintln(out, "  Phases:")
		for _, ph := range rec.Phases {
			mark := " "
			switch ph.Status {
			case models.PhaseCompleted:
				mark = "x"
			case models.PhaseInProgress:
				mark = "~"
			}
			fmt.Fprintf(out, "    [%s] %d %s\n", mark, ph.ID, models.PhaseLabel(ph.ID, ph.Name))
		}
	}
	if len(rec.PendingFixes) > 0 {
		fmt.Fprintln(out, "  Pending fixes:")
		for _, fix := range rec.PendingFixes {
			fmt.Fprintf(out, "    - %s\n", fix)
		}
	}
	if len(rec.Completion.BlockedBy) > 0 {
		fmt.Fprintln(out, "  Blocked by:")
		for _, b := range rec.Completion.BlockedBy {
			fmt.Fprintf(out, "    - %s\n", b)
		}
	}
	if last := rec.LastError(); last != "" {
		fmt.Fprintf(out, "  Last error: %s\n", paint(out, color.New(color.FgRed), last))
	}
}
