package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/samuelfaj/claudiomiro-sub004/internal/checkpoint"
)

// NewCheckpointsCommand creates the checkpoints command
func NewCheckpointsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoints <task-id>",
		Short: "List the git checkpoints of a task",
		Long: `List the phase checkpoint commits of a task in commit order and the
phase a resumed run would start from.`,
		Args: cobra.ExactArgs(1),
		RunE: checkpointsCommand,
	}
	return cmd
}

func checkpointsCommand(cmd *cobra.Command, args []string) error {
	p, err := loadProject(cmd)
	if err != nil {
		return err
	}
	if err := p.validate(); err != nil {
		return err
	}
	taskID := args[0]

	totalPhases := 0
	if task, err := p.findTask(taskID); err == nil {
		view, err := viewTask(p.store(p.diagnostics(cmd)), task)
		if err != nil {
			return err
		}
		totalPhases = len(view.Record.Phases)
	}

	manager := checkpoint.NewManager(p.Dir)
	ctx := commandContext(cmd)
	checkpoints, err := manager.GetAllCheckpoints(ctx, taskID)
	if err != nil {
		return fmt.Errorf("failed to list checkpoints: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(checkpoints) == 0 {
		fmt.Fprintf(out, "No checkpoints for %s\n", taskID)
	}
	for _, c := range checkpoints {
		fmt.Fprintf(out, "%s  Phase %d: %s\n", shortHash(c.Hash), c.Phase, c.Name)
	}

	if n := len(checkpoints); totalPhases > 0 && n > 0 && checkpoints[n-1].Phase >= totalPhases {
		fmt.Fprintf(out, "All %d phase(s) checkpointed\n", totalPhases)
		return nil
	}
	next, err := manager.GetNextPhase(ctx, taskID, totalPhases)
	if err != nil {
		return fmt.Errorf("failed to determine next phase: %w", err)
	}
	fmt.Fprintf(out, "Next phase: %d\n", next)
	return nil
}

func shortHash(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}
