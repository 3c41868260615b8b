package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/samuelfaj/claudiomiro-sub004/internal/directive"
)

// NewDirectiveCommand creates the directive command
func NewDirectiveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "directive <task-id>",
		Short: "Print the directive the next attempt of a task would receive",
		Long: `Render the directive for a task's next attempt without invoking the agent.

The directive text goes to stdout; the state and effort tier go to stderr,
so the output can be piped straight into an agent by hand.`,
		Args: cobra.ExactArgs(1),
		RunE: directiveCommand,
	}
	cmd.Flags().Bool("state-only", false, "Print only the directive state")
	return cmd
}

func directiveCommand(cmd *cobra.Command, args []string) error {
	p, err := loadProject(cmd)
	if err != nil {
		return err
	}
	if err := p.validate(); err != nil {
		return err
	}

	task, err := p.findTask(args[0])
	if err != nil {
		return err
	}
	view, err := viewTask(p.store(p.diagnostics(cmd)), task)
	if err != nil {
		return err
	}

	if stateOnly, _ := cmd.Flags().GetBool("state-only"); stateOnly {
		fmt.Fprintln(cmd.OutOrStdout(), directive.DetermineState(view.Record))
		return nil
	}

	d, err := directive.Build(view.Record, directive.Context{
		TaskID:          task.ID,
		TaskFolder:      task.Dir,
		WorkingDir:      task.WorkDir,
		ReviewArtifacts: directive.FindReviewArtifacts(task.Dir),
	})
	if err != nil {
		return fmt.Errorf("failed to build directive: %w", err)
	}

	decision := view.decide(p.selector())
	fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s, tier %s (%s)\n", task.ID, d.State, decision.Tier, decision.Source)
	fmt.Fprint(cmd.OutOrStdout(), d.Text)
	return nil
}
