package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/samuelfaj/claudiomiro-sub004/internal/learning"
)

// NewHistoryCommand creates the history command
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <task-id>",
		Short: "Show the recorded attempts of a task",
		Long: `Show the attempts recorded for a task across runs: state, tier, model,
outcome and the checkpoints each attempt produced.

Use --prune to delete attempts older than the given number of days.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("prune") {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: historyCommand,
	}
	cmd.Flags().Int("limit", 20, "Show at most this many attempts, most recent last (0 = all)")
	cmd.Flags().Int("prune", 0, "Delete attempts older than this many days")
	return cmd
}

func historyCommand(cmd *cobra.Command, args []string) error {
	p, err := loadProject(cmd)
	if err != nil {
		return err
	}
	if err := p.validate(); err != nil {
		return err
	}

	store, err := learning.NewStore(p.path(p.Config.Learning.DBPath))
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer store.Close()

	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()

	if cmd.Flags().Changed("prune") {
		days, _ := cmd.Flags().GetInt("prune")
		if days < 1 {
			return fmt.Errorf("--prune must be at least 1 day, got %d", days)
		}
		deleted, err := store.CleanupOldAttempts(ctx, days)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted %d attempt(s) older than %d day(s)\n", deleted, days)
		return nil
	}

	taskID := args[0]
	stats, err := store.GetTaskStats(ctx, taskID)
	if err != nil {
		return err
	}
	if stats.TotalAttempts == 0 {
		fmt.Fprintf(out, "No attempts recorded for %s\n", taskID)
		return nil
	}
	attempts, err := store.GetAttempts(ctx, taskID)
	if err != nil {
		return err
	}
	if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 && len(attempts) > limit {
		attempts = attempts[len(attempts)-limit:]
	}

	printStats(out, stats)
	return printAttempts(out, attempts)
}

func printStats(out io.Writer, s *learning.TaskStats) {
	fmt.Fprintf(out, "%s: %d attempt(s) over %d run(s), %.0f%% successful\n",
		s.TaskID, s.TotalAttempts, s.Runs, s.SuccessRate()*100)
	fmt.Fprintf(out, "  Average duration: %s\n", s.AvgDuration.Round(time.Second))
	if s.LastTier != "" {
		fmt.Fprintf(out, "  Last tier:        %s\n", s.LastTier)
	}
	if s.LastError != "" {
		fmt.Fprintf(out, "  Last error:       %s\n", s.LastError)
	}
	fmt.Fprintln(out)
}

func printAttempts(out io.Writer, attempts []*learning.Attempt) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tWHEN\tSTATE\tTIER\tMODEL\tRESULT\tDURATION\tCHECKPOINTS")
	for _, a := range attempts {
		result := "ok"
		if !a.Success {
			result = "failed"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			a.Attempt, a.Timestamp.Local().Format("2006-01-02 15:04"), a.State, a.Tier, a.Model,
			result, a.Duration.Round(time.Second), joinPhases(a.Checkpoints))
	}
	return tw.Flush()
}

func joinPhases(phases []int) string {
	if len(phases) == 0 {
		return "-"
	}
	parts := make([]string, len(phases))
	for i, p := range phases {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ",")
}
