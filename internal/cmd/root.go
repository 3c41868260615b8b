package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for claudiomiro
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "claudiomiro",
		Short: "Run decomposed coding tasks through an AI agent until they complete",
		Long: `Claudiomiro drives each task folder under .claudiomiro/task-executor
through repeated agent invocations. Every attempt gets a directive built from
the task's execution.json, an effort tier chosen for the attempt, and a git
checkpoint for each phase the agent completes.

Configuration is loaded from .claudiomiro/config.yaml if present.
Environment variables and CLI flags override configuration file settings.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("dir", ".", "Project directory")
	cmd.PersistentFlags().String("config", "", "Path to config file (default: <dir>/.claudiomiro/config.yaml)")
	cmd.PersistentFlags().String("log-level", "", "Log level: trace, debug, info, warn, error")

	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewStatusCommand())
	cmd.AddCommand(NewValidateCommand())
	cmd.AddCommand(NewDirectiveCommand())
	cmd.AddCommand(NewCheckpointsCommand())
	cmd.AddCommand(NewHistoryCommand())

	return cmd
}
