package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hydrakit/hydra/internal/claude"
	"github.com/hydrakit/hydra/internal/config"
	"github.com/hydrakit/hydra/internal/extract"
	"github.com/hydrakit/hydra/internal/history"
	"github.com/hydrakit/hydra/internal/orchestrator"
	"github.com/hydrakit/hydra/internal/signals"
	"github.com/hydrakit/hydra/internal/state"
	"github.com/hydrakit/hydra/pkg/models"
)

var (
	runData        string
	runDataFile    string
	runPerson      string
	runHeadless    bool
	runMaxTurns    int
	runStrategy    string
	runConcurrency int
	runTimeoutMs   int64
)

var runCmd = &cobra.Command{
	Use:   "run <task-file>",
	Short: "Run a task file against the Anthropic API",
	Long: `Run a task defined in a YAML task file.

The task file declares the prompt and urging templates, the parameters
the templates consume, a recursion ceiling, and an optional parallel
policy. Request data is supplied as JSON via --data or --data-file.

Without a parallel policy the task runs as a single child session. With
one, hydra extracts work items from the request data per the policy's
mode, runs one child session per item with bounded concurrency, and
aggregates the outcomes under the policy's result strategy.

A run can be stopped from another terminal with 'hydra sessions kill'.

Examples:
  hydra run tasks/summarize.yaml -d '{"topic": "caching"}'
  hydra run tasks/fanout.yaml --data-file request.json --headless
  hydra run tasks/fanout.yaml -d '{"regions": ["eu", "us"]}' --person researcher`,
	Args: cobra.ExactArgs(1),
	RunE: runTask,
}

func init() {
	runCmd.Flags().StringVarP(&runData, "data", "d", "", "Request data as inline JSON")
	runCmd.Flags().StringVar(&runDataFile, "data-file", "", "Path to a JSON file with request data")
	runCmd.Flags().StringVar(&runPerson, "person", "", "Persona name for spawned sessions (default from config)")
	runCmd.Flags().BoolVar(&runHeadless, "headless", false, "Run without TUI (headless mode)")
	runCmd.Flags().IntVar(&runMaxTurns, "max-turns", 0, "Cap API round-trips per session (default from config)")
	runCmd.Flags().StringVar(&runStrategy, "strategy", "", "Override the task's result strategy: wait_for_all, stream_individual, or first_result_wins")
	runCmd.Flags().IntVar(&runConcurrency, "max-concurrency", 0, "Override the task's max concurrency")
	runCmd.Flags().Int64Var(&runTimeoutMs, "timeout-ms", 0, "Override the task's per-session timeout in milliseconds")
}

func runTask(cmd *cobra.Command, args []string) (retErr error) {
	// Recover from panics and report them
	defer func() {
		if r := recover(); r != nil {
			retErr = fmt.Errorf("PANIC in runTask: %v", r)
		}
	}()

	taskPath := args[0]
	verbose := os.Getenv("HYDRA_DEBUG") != ""

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	task, err := models.LoadTaskFile(taskPath)
	if err != nil {
		return err
	}
	if err := task.Validate(); err != nil {
		return fmt.Errorf("invalid task file %s: %w", taskPath, err)
	}
	if err := applyFlagOverrides(task); err != nil {
		return err
	}
	applyConfigDefaults(task, cfg)

	taskName := task.Name
	if taskName == "" {
		taskName = filepath.Base(taskPath)
	}

	refsources, err := parseRequestData(runData, runDataFile)
	if err != nil {
		return err
	}

	personName := runPerson
	if personName == "" {
		personName = cfg.Defaults.PersonName
	}

	if verbose {
		fmt.Printf("[DEBUG] Task: %s\n", taskName)
		fmt.Printf("[DEBUG] Person: %s\n", personName)
		fmt.Printf("[DEBUG] Headless: %v\n", runHeadless)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	// Open project state database and bring the schema up to date
	db, err := state.OpenProject(cwd)
	if err != nil {
		return fmt.Errorf("open state database: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	// Sessions left active by a crashed run are marked failed before we start
	recovery := state.NewRecoveryManager(db)
	if interrupted, err := recovery.CheckForInterrupted(); err == nil && interrupted != nil {
		fmt.Printf("Found interrupted session %s from a previous run, cleaning up...\n", interrupted.SessionID)
		if n, err := recovery.Clean(); err == nil && verbose {
			fmt.Printf("[DEBUG] Marked %d interrupted sessions as failed\n", n)
		}
	}

	// File-based kill/pause signals under .hydra/signals
	watcher, err := signals.NewWatcher(cwd)
	if err != nil {
		fmt.Printf("Warning: signal watcher unavailable: %v\n", err)
		watcher = nil
	} else {
		defer watcher.Close()
		defer watcher.Clear()
	}

	if verbose {
		logger := orchestrator.NewDebugLoggerForDir(cwd)
		orchestrator.SetDebugLogger(logger)
		defer logger.Close()
		defer orchestrator.SetDebugLogger(nil)
	}

	client, err := claude.NewClient(claude.ClientConfig{
		Model:         anthropic.Model(cfg.Anthropic.Model),
		APIKey:        cfg.Anthropic.APIKey,
		UseAWSBedrock: cfg.Anthropic.UseBedrock,
		AWSRegion:     cfg.Anthropic.AWSRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
	})
	if err != nil {
		return err
	}

	maxTurns := runMaxTurns
	if maxTurns == 0 {
		maxTurns = cfg.Defaults.MaxTurns
	}
	hostCfg := claude.HostConfig{
		Messenger: client,
		Store:     db,
		MaxTurns:  maxTurns,
	}
	if watcher != nil {
		hostCfg.Stop = watcher
		hostCfg.Pause = watcher
	}
	host := claude.NewSessionHost(hostCfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nReceived interrupt, shutting down...")
		cancel()
	}()

	// Without a parallel policy the task is a single child session
	if task.Parallel == nil {
		return runSingleSession(ctx, host, personName, refsources, task)
	}

	items := extract.WorkItems(refsources, task.Parallel)

	var result *models.OrchestrationResult
	if runHeadless {
		result, err = runOrchestrationHeadless(ctx, host, personName, refsources, items, task, taskName)
	} else {
		result, err = runWithTUI(ctx, host, personName, refsources, items, task, taskName)
	}
	if err != nil {
		return fmt.Errorf("orchestration failed: %w", err)
	}

	recordHistory(cfg, cwd, taskName, result, verbose)

	if verbose {
		input, output := client.Tracker().Total()
		fmt.Printf("[DEBUG] API calls: %d, tokens in/out: %d/%d, est. cost: $%.4f\n",
			client.Tracker().Calls(), input, output, client.Tracker().Cost())
	}

	if !result.Success {
		return fmt.Errorf("%s", result.ErrorMessage)
	}
	return nil
}

// runSingleSession runs a task with no parallel policy as one child session.
func runSingleSession(ctx context.Context, host orchestrator.Host, personName string, refsources map[string]any, task *models.TaskConfig) error {
	fmt.Printf("Starting session as %s...\n", personName)

	outcome, err := orchestrator.RunSession(ctx, host, nil, personName, refsources, task, models.WorkItem{})
	if err != nil {
		return err
	}

	if outcome.Success {
		fmt.Printf("%s Session %s completed in %s\n",
			color.GreenString("✓"), outcome.SessionID, outcome.EndTime.Sub(outcome.StartTime).Round(time.Millisecond))
		if outcome.Result != nil {
			fmt.Println()
			fmt.Println(outcome.Result)
		}
		return nil
	}

	fmt.Printf("%s Session %s failed: %s\n", color.RedString("✗"), outcome.SessionID, outcome.Error)
	return fmt.Errorf("session failed: %s", outcome.Error)
}

// runOrchestrationHeadless fans the task out and prints outcomes to stdout
// as they complete.
func runOrchestrationHeadless(ctx context.Context, host orchestrator.Host, personName string, refsources map[string]any, items []models.WorkItem, task *models.TaskConfig, taskName string) (*models.OrchestrationResult, error) {
	fmt.Printf("Starting task: %s\n", taskName)
	fmt.Printf("  Work items: %d\n", len(items))
	fmt.Printf("  Strategy: %s\n", task.Parallel.ResultStrategy)
	fmt.Printf("  Max concurrency: %d\n", task.Parallel.EffectiveMaxConcurrency())
	fmt.Println()

	orch := orchestrator.New(host, orchestrator.WithOutcomeSink(func(item models.WorkItem, outcome models.SessionOutcome) {
		if outcome.Success {
			fmt.Printf("%s %s\n", color.GreenString("✓"), item.Name)
		} else {
			fmt.Printf("%s %s: %s\n", color.RedString("✗"), item.Name, outcome.Error)
		}
	}))

	result, err := orch.Orchestrate(ctx, nil, personName, refsources, items, task)
	if err != nil {
		return nil, err
	}

	line := fmt.Sprintf("%d/%d succeeded in %s",
		result.SuccessCount(), result.TotalSessions, result.Duration().Round(time.Millisecond))
	if result.Success {
		fmt.Printf("\n%s %s\n", color.GreenString("✓"), line)
	} else {
		fmt.Printf("\n%s %s\n", color.RedString("✗"), line)
	}

	return result, nil
}

// recordHistory persists a finished run when history is enabled. Failures
// here never fail the run itself.
func recordHistory(cfg *config.Config, projectRoot, taskName string, result *models.OrchestrationResult, verbose bool) {
	if !cfg.History.Enabled || result == nil {
		return
	}

	store, err := history.NewStore(historyDBPath(projectRoot))
	if err != nil {
		fmt.Printf("Warning: run history unavailable: %v\n", err)
		return
	}
	defer store.Close()

	run, err := store.Record(taskName, result)
	if err != nil {
		fmt.Printf("Warning: recording run failed: %v\n", err)
		return
	}
	if verbose {
		fmt.Printf("[DEBUG] Recorded run %s\n", run.ID)
	}
}

// historyDBPath returns the project-local run-history database path.
func historyDBPath(projectRoot string) string {
	return filepath.Join(projectRoot, ".hydra", "history.db")
}

// parseRequestData resolves the request-data map from the --data and
// --data-file flags. No flags yields an empty map, not nil, because nil
// request data fails validation downstream.
func parseRequestData(inline, file string) (map[string]any, error) {
	var raw []byte
	switch {
	case inline != "" && file != "":
		return nil, fmt.Errorf("--data and --data-file are mutually exclusive")
	case inline != "":
		raw = []byte(inline)
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read data file: %w", err)
		}
		raw = b
	default:
		return map[string]any{}, nil
	}

	data := map[string]any{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse request data: %w", err)
	}
	return data, nil
}

// applyFlagOverrides applies explicit run flags on top of the task file's
// parallel policy.
func applyFlagOverrides(task *models.TaskConfig) error {
	if task.Parallel == nil {
		if runStrategy != "" || runConcurrency != 0 || runTimeoutMs != 0 {
			return fmt.Errorf("task has no parallel policy; --strategy, --max-concurrency, and --timeout-ms do not apply")
		}
		return nil
	}
	if runStrategy != "" {
		strategy := models.ResultStrategy(runStrategy)
		if !strategy.Valid() {
			return fmt.Errorf("invalid strategy %q: must be wait_for_all, stream_individual, or first_result_wins", runStrategy)
		}
		task.Parallel.ResultStrategy = strategy
	}
	if runConcurrency != 0 {
		task.Parallel.MaxConcurrency = runConcurrency
	}
	if runTimeoutMs != 0 {
		task.Parallel.SessionTimeoutMs = runTimeoutMs
	}
	return nil
}

// applyConfigDefaults fills policy fields the task file left unset from the
// loaded configuration.
func applyConfigDefaults(task *models.TaskConfig, cfg *config.Config) {
	if task.Parallel == nil {
		return
	}
	if task.Parallel.MaxConcurrency == 0 {
		task.Parallel.MaxConcurrency = cfg.Defaults.MaxConcurrency
	}
	if task.Parallel.SessionTimeoutMs == 0 {
		task.Parallel.SessionTimeoutMs = cfg.Defaults.SessionTimeoutMs
	}
}
