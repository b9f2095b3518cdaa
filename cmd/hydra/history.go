package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hydrakit/hydra/internal/history"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Review recorded orchestration runs",
	Long: `List and inspect orchestration runs recorded in the project's
run-history database.

Without a subcommand, lists recent runs newest first.

Subcommands:
  show <id>    Show a run and its per-item outcomes
  delete <id>  Delete a recorded run`,
	RunE: runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a run and its per-item outcomes",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a recorded run",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryDelete,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "Maximum number of runs to list")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)
}

// openHistoryStore opens the project run-history store. Returns nil without
// error when no runs have been recorded yet.
func openHistoryStore() (*history.Store, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}

	dbPath := historyDBPath(cwd)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, nil
	}
	return history.NewStore(dbPath)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	store, err := openHistoryStore()
	if err != nil {
		return err
	}
	if store == nil {
		fmt.Println("No runs recorded. Run 'hydra run <task-file>' to start.")
		return nil
	}
	defer store.Close()

	runs, err := store.List(historyLimit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	for _, run := range runs {
		marker := color.GreenString("✓")
		if !run.Success {
			marker = color.RedString("✗")
		}
		fmt.Printf("%s %s  %-20s  %-18s  %d/%d  %s ago\n",
			marker, run.ID, run.TaskName, run.Strategy,
			run.Successes, run.TotalSessions, formatDuration(time.Since(run.StartedAt)))
	}
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	store, err := openHistoryStore()
	if err != nil {
		return err
	}
	if store == nil {
		fmt.Println("No runs recorded.")
		return nil
	}
	defer store.Close()

	run, err := store.Get(args[0])
	if err != nil {
		return fmt.Errorf("get run: %w", err)
	}

	fmt.Printf("Run: %s\n", run.ID)
	fmt.Printf("  Task: %s\n", run.TaskName)
	fmt.Printf("  Strategy: %s\n", run.Strategy)
	fmt.Printf("  Sessions: %d/%d succeeded\n", run.Successes, run.TotalSessions)
	fmt.Printf("  Started: %s ago\n", formatDuration(time.Since(run.StartedAt)))
	fmt.Printf("  Duration: %s\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	if run.ErrorMessage != "" {
		fmt.Printf("  Error: %s\n", run.ErrorMessage)
	}

	outcomes, err := store.Outcomes(run.ID)
	if err != nil {
		return fmt.Errorf("load outcomes: %w", err)
	}
	if len(outcomes) > 0 {
		fmt.Printf("\nOutcomes (%d):\n", len(outcomes))
		for _, o := range outcomes {
			if o.Success {
				fmt.Printf("  %s %s  %s\n", color.GreenString("✓"), o.SessionID, truncateLine(fmt.Sprintf("%v", o.Result), 80))
			} else {
				fmt.Printf("  %s %s  %s\n", color.RedString("✗"), o.SessionID, truncateLine(o.Error, 80))
			}
		}
	}
	return nil
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	store, err := openHistoryStore()
	if err != nil {
		return err
	}
	if store == nil {
		fmt.Println("No runs recorded.")
		return nil
	}
	defer store.Close()

	if err := store.Delete(args[0]); err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	fmt.Printf("Deleted run %s.\n", args[0])
	return nil
}
