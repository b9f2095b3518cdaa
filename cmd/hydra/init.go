package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hydrakit/hydra/internal/config"
)

var (
	initForce       bool
	initWithConfig  bool
	initWithExample bool
)

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Initialize a hydra project",
	Long: `Initialize a directory for use with hydra.

This command sets up everything needed to run hydra:
  - Creates the .hydra directory structure (state, logs, signals)
  - Checks that an Anthropic API key is configured
  - Optionally creates a project config and an example task file

The directory argument is optional and defaults to the current directory.

Examples:
  hydra init                  # Initialize current directory
  hydra init ./myproject      # Initialize specific directory
  hydra init --with-config    # Also create a .hydra.yaml template
  hydra init --with-example   # Also create tasks/example.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Reinitialize even if already set up")
	initCmd.Flags().BoolVar(&initWithConfig, "with-config", false, "Create a .hydra.yaml project config template")
	initCmd.Flags().BoolVar(&initWithExample, "with-example", false, "Create an example task file under tasks/")
}

func runInit(cmd *cobra.Command, args []string) error {
	targetDir := "."
	if len(args) > 0 {
		targetDir = args[0]
	}

	absPath, err := filepath.Abs(targetDir)
	if err != nil {
		return fmt.Errorf("resolving absolute path: %w", err)
	}
	if err := os.MkdirAll(absPath, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", absPath, err)
	}

	fmt.Printf("Initializing hydra in %s...\n\n", absPath)

	hydraDir := filepath.Join(absPath, ".hydra")
	if _, err := os.Stat(hydraDir); err == nil && !initForce {
		fmt.Println("Directory already initialized. Use --force to reinitialize.")
		return nil
	}

	for _, sub := range []string{"logs", "signals"} {
		if err := os.MkdirAll(filepath.Join(hydraDir, sub), 0755); err != nil {
			return fmt.Errorf("creating .hydra/%s directory: %w", sub, err)
		}
	}
	printStatus("✓", "Created .hydra directory structure", color.FgGreen)

	cfg, err := config.Load()
	if err != nil {
		printStatus("⚠", fmt.Sprintf("Config could not be loaded: %v", err), color.FgYellow)
		cfg = config.Default()
	}
	if _, err := config.GetAPIKey(cfg); err != nil {
		printStatus("⚠", "No Anthropic API key configured (you can set it later)", color.FgYellow)
	} else {
		printStatus("✓", fmt.Sprintf("Anthropic API key found (%s)", config.GetAPIKeySource(cfg)), color.FgGreen)
	}

	if initWithConfig {
		if err := createProjectConfig(absPath); err != nil {
			return fmt.Errorf("creating project config: %w", err)
		}
		printStatus("✓", "Created .hydra.yaml template", color.FgGreen)
	}

	if initWithExample {
		if err := createExampleTask(absPath); err != nil {
			return fmt.Errorf("creating example task: %w", err)
		}
		printStatus("✓", "Created tasks/example.yaml", color.FgGreen)
	}

	fmt.Printf("\n%s Hydra initialization complete!\n\n", color.GreenString("✓"))
	fmt.Println("Next steps:")
	fmt.Println("  1. Set your API key (if not already set):")
	fmt.Println("     export ANTHROPIC_API_KEY=your-key-here")
	fmt.Println()
	fmt.Println("  2. Run a task:")
	fmt.Println("     hydra run tasks/example.yaml -d '{\"topics\": [\"caching\", \"sharding\"]}'")
	fmt.Println()
	fmt.Println("  3. Learn more:")
	fmt.Println("     hydra --help")

	return nil
}

// createProjectConfig creates a .hydra.yaml template if none exists.
func createProjectConfig(repoPath string) error {
	configPath := filepath.Join(repoPath, ".hydra.yaml")
	if _, err := os.Stat(configPath); err == nil {
		return nil
	}

	template := `# Hydra Project Configuration
# This file overrides defaults from ~/.config/hydra/config.yaml

# anthropic:
#   model: claude-sonnet-4-20250514
#   use_bedrock: false

# defaults:
#   person_name: worker
#   max_concurrency: 4
#   session_timeout_ms: 0
#   max_recursion_level: 3
#   max_turns: 50

# history:
#   enabled: true
#   retain_for: 720h
`

	return os.WriteFile(configPath, []byte(template), 0644)
}

// createExampleTask creates tasks/example.yaml if none exists.
func createExampleTask(repoPath string) error {
	tasksDir := filepath.Join(repoPath, "tasks")
	if err := os.MkdirAll(tasksDir, 0755); err != nil {
		return err
	}

	taskPath := filepath.Join(tasksDir, "example.yaml")
	if _, err := os.Stat(taskPath); err == nil {
		return nil
	}

	template := `name: example
description: Research each topic and produce a short summary.
prompt_template: |
  Research the topic {{ .Item.Value }} and write a three-sentence summary.
urging_template: |
  If your research on {{ .Item.Value }} is finished, report the summary
  with the report_done tool. Otherwise, continue.
parameters:
  - name: topics
    description: Topics to research, one child session per topic
    required: true
    type: array
max_recursion_level: 1
parallel:
  mode: list_based
  list_parameter: topics
  max_concurrency: 2
  result_strategy: wait_for_all
`

	return os.WriteFile(taskPath, []byte(template), 0644)
}

// printStatus prints a status line with color
func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Printf("%s %s\n", c.Sprint(symbol), message)
}
