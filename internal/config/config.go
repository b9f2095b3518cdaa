// Package config handles configuration loading and management for hydra.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for hydra.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Defaults  DefaultsConfig  `mapstructure:"defaults"`
	TUI       TUIConfig       `mapstructure:"tui"`
	History   HistoryConfig   `mapstructure:"history"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
	// UseBedrock routes API calls through AWS Bedrock.
	UseBedrock bool   `mapstructure:"use_bedrock"`
	AWSRegion  string `mapstructure:"aws_region"`
	AWSProfile string `mapstructure:"aws_profile"`
}

// DefaultsConfig holds default values for orchestration runs.
type DefaultsConfig struct {
	PersonName        string `mapstructure:"person_name"`
	MaxConcurrency    int    `mapstructure:"max_concurrency"`
	SessionTimeoutMs  int64  `mapstructure:"session_timeout_ms"`
	MaxRecursionLevel int    `mapstructure:"max_recursion_level"`
	MaxTurns          int    `mapstructure:"max_turns"`
}

// TUIConfig holds TUI display settings.
type TUIConfig struct {
	RefreshRate time.Duration `mapstructure:"refresh_rate"`
}

// HistoryConfig holds run-history retention settings.
type HistoryConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	RetainFor    time.Duration `mapstructure:"retain_for"`
	SessionPurge time.Duration `mapstructure:"session_purge"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY)
// 2. Project config (.hydra.yaml in current directory or parent)
// 3. User config (~/.config/hydra/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	// Load project config if present
	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			// Merge project config (takes precedence)
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	// Environment variable overrides
	v.AutomaticEnv()
	v.SetEnvPrefix("")

	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("anthropic.model", "HYDRA_MODEL")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand ${VAR} references
	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)
	v.Set("anthropic.model", cfg.Anthropic.Model)
	v.Set("anthropic.use_bedrock", cfg.Anthropic.UseBedrock)
	v.Set("anthropic.aws_region", cfg.Anthropic.AWSRegion)
	v.Set("anthropic.aws_profile", cfg.Anthropic.AWSProfile)
	v.Set("defaults.person_name", cfg.Defaults.PersonName)
	v.Set("defaults.max_concurrency", cfg.Defaults.MaxConcurrency)
	v.Set("defaults.session_timeout_ms", cfg.Defaults.SessionTimeoutMs)
	v.Set("defaults.max_recursion_level", cfg.Defaults.MaxRecursionLevel)
	v.Set("defaults.max_turns", cfg.Defaults.MaxTurns)
	v.Set("tui.refresh_rate", cfg.TUI.RefreshRate.String())
	v.Set("history.enabled", cfg.History.Enabled)
	v.Set("history.retain_for", cfg.History.RetainFor.String())
	v.Set("history.session_purge", cfg.History.SessionPurge.String())

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "")
	v.SetDefault("anthropic.use_bedrock", false)

	v.SetDefault("defaults.person_name", "worker")
	v.SetDefault("defaults.max_concurrency", 4)
	v.SetDefault("defaults.session_timeout_ms", 0)
	v.SetDefault("defaults.max_recursion_level", 3)
	v.SetDefault("defaults.max_turns", 50)

	v.SetDefault("tui.refresh_rate", "100ms")

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.retain_for", "720h")
	v.SetDefault("history.session_purge", "168h")
}

// getUserConfigDir returns the XDG config directory for hydra.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "hydra")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "hydra")
	}
	return filepath.Join(home, ".config", "hydra")
}

// findProjectConfig searches for .hydra.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".hydra.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Defaults: DefaultsConfig{
			PersonName:        "worker",
			MaxConcurrency:    4,
			MaxRecursionLevel: 3,
			MaxTurns:          50,
		},
		TUI: TUIConfig{
			RefreshRate: 100 * time.Millisecond,
		},
		History: HistoryConfig{
			Enabled:      true,
			RetainFor:    720 * time.Hour,
			SessionPurge: 168 * time.Hour,
		},
	}
}
