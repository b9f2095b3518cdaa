package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "hydra",
	Short: "Recursive child-session orchestrator",
	Long: `Hydra spawns child Claude sessions from task templates and fans
them out in parallel over extracted work items.

A task file declares the prompt and urging templates, the parameters the
templates consume, a recursion ceiling, and an optional parallel policy.
Hydra extracts work items from the request data, renders one prompt per
item, and runs each item as its own child session with bounded
concurrency.

Core capabilities:
- Extracts work items from parameters, named lists, or external lists
- Renders per-item prompts with a scoped template context
- Runs child sessions against the Anthropic API (direct or Bedrock)
- Aggregates outcomes: wait-for-all, streaming, or first-result-wins
- Persists sessions and transcripts to SQLite for recovery and review`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
