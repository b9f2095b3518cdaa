package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hydrakit/hydra/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify hydra configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/hydra/config.yaml
Project-specific overrides can be placed in .hydra.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			displayConfigKey(cfg, args[0])
		default:
			setConfigKey(cfg, args[0], args[1])
		}
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	fmt.Printf("anthropic.api_key: %s (from %s)\n",
		config.MaskAPIKey(cfg.Anthropic.APIKey), config.GetAPIKeySource(cfg))
	fmt.Printf("anthropic.model: %s\n", orUnset(cfg.Anthropic.Model))
	fmt.Printf("anthropic.use_bedrock: %t\n", cfg.Anthropic.UseBedrock)
	fmt.Printf("anthropic.aws_region: %s\n", orUnset(cfg.Anthropic.AWSRegion))
	fmt.Printf("anthropic.aws_profile: %s\n", orUnset(cfg.Anthropic.AWSProfile))
	fmt.Printf("defaults.person_name: %s\n", cfg.Defaults.PersonName)
	fmt.Printf("defaults.max_concurrency: %d\n", cfg.Defaults.MaxConcurrency)
	fmt.Printf("defaults.session_timeout_ms: %d\n", cfg.Defaults.SessionTimeoutMs)
	fmt.Printf("defaults.max_recursion_level: %d\n", cfg.Defaults.MaxRecursionLevel)
	fmt.Printf("defaults.max_turns: %d\n", cfg.Defaults.MaxTurns)
	fmt.Printf("tui.refresh_rate: %s\n", cfg.TUI.RefreshRate)
	fmt.Printf("history.enabled: %t\n", cfg.History.Enabled)
	fmt.Printf("history.retain_for: %s\n", cfg.History.RetainFor)
	fmt.Printf("history.session_purge: %s\n", cfg.History.SessionPurge)
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) {
	value, err := getConfigValue(cfg, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(value)
}

// setConfigKey sets a configuration value and saves the config.
func setConfigKey(cfg *config.Config, key, value string) {
	if err := setConfigValue(cfg, key, value); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Set %s = %s\n", key, value)
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "anthropic.api_key":
		return config.MaskAPIKey(cfg.Anthropic.APIKey), nil
	case "anthropic.model":
		return orUnset(cfg.Anthropic.Model), nil
	case "anthropic.use_bedrock":
		return strconv.FormatBool(cfg.Anthropic.UseBedrock), nil
	case "anthropic.aws_region":
		return orUnset(cfg.Anthropic.AWSRegion), nil
	case "anthropic.aws_profile":
		return orUnset(cfg.Anthropic.AWSProfile), nil
	case "defaults.person_name":
		return cfg.Defaults.PersonName, nil
	case "defaults.max_concurrency":
		return strconv.Itoa(cfg.Defaults.MaxConcurrency), nil
	case "defaults.session_timeout_ms":
		return strconv.FormatInt(cfg.Defaults.SessionTimeoutMs, 10), nil
	case "defaults.max_recursion_level":
		return strconv.Itoa(cfg.Defaults.MaxRecursionLevel), nil
	case "defaults.max_turns":
		return strconv.Itoa(cfg.Defaults.MaxTurns), nil
	case "tui.refresh_rate":
		return cfg.TUI.RefreshRate.String(), nil
	case "history.enabled":
		return strconv.FormatBool(cfg.History.Enabled), nil
	case "history.retain_for":
		return cfg.History.RetainFor.String(), nil
	case "history.session_purge":
		return cfg.History.SessionPurge.String(), nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "anthropic.api_key":
		cfg.Anthropic.APIKey = value
	case "anthropic.model":
		cfg.Anthropic.Model = value
	case "anthropic.use_bedrock":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for use_bedrock: %w", err)
		}
		cfg.Anthropic.UseBedrock = b
	case "anthropic.aws_region":
		cfg.Anthropic.AWSRegion = value
	case "anthropic.aws_profile":
		cfg.Anthropic.AWSProfile = value
	case "defaults.person_name":
		cfg.Defaults.PersonName = value
	case "defaults.max_concurrency":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for max_concurrency: %w", err)
		}
		cfg.Defaults.MaxConcurrency = n
	case "defaults.session_timeout_ms":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid value for session_timeout_ms: %w", err)
		}
		cfg.Defaults.SessionTimeoutMs = n
	case "defaults.max_recursion_level":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for max_recursion_level: %w", err)
		}
		cfg.Defaults.MaxRecursionLevel = n
	case "defaults.max_turns":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for max_turns: %w", err)
		}
		cfg.Defaults.MaxTurns = n
	case "tui.refresh_rate":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for refresh_rate: %w", err)
		}
		cfg.TUI.RefreshRate = d
	case "history.enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for history.enabled: %w", err)
		}
		cfg.History.Enabled = b
	case "history.retain_for":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for history.retain_for: %w", err)
		}
		cfg.History.RetainFor = d
	case "history.session_purge":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for history.session_purge: %w", err)
		}
		cfg.History.SessionPurge = d
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

// orUnset substitutes a placeholder for empty string values.
func orUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}
