package config

import (
	"errors"
	"os"
	"strings"
)

// ErrNoAPIKey is returned when no Anthropic API key can be resolved.
var ErrNoAPIKey = errors.New("no Anthropic API key configured")

// KeySource names where an API key was resolved from.
type KeySource string

const (
	KeySourceEnv    KeySource = "environment"
	KeySourceConfig KeySource = "config_file"
	KeySourceNone   KeySource = "none"
)

// resolveAPIKey finds the API key and its source. The environment wins
// over the config file; a config value may reference env vars via ${VAR},
// and an unresolved reference counts as unset.
func resolveAPIKey(cfg *Config) (string, KeySource) {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		return key, KeySourceEnv
	}
	if cfg != nil && cfg.Anthropic.APIKey != "" {
		key := os.ExpandEnv(cfg.Anthropic.APIKey)
		if key != "" && !strings.HasPrefix(key, "${") {
			return key, KeySourceConfig
		}
	}
	return "", KeySourceNone
}

// GetAPIKey returns the Anthropic API key, environment first, then the
// loaded configuration.
func GetAPIKey(cfg *Config) (string, error) {
	key, source := resolveAPIKey(cfg)
	if source == KeySourceNone {
		return "", ErrNoAPIKey
	}
	return key, nil
}

// GetAPIKeySource reports where GetAPIKey would find the key. Used by
// `hydra config` and `hydra init` to tell the user which layer is active.
func GetAPIKeySource(cfg *Config) KeySource {
	_, source := resolveAPIKey(cfg)
	return source
}

// ValidateAPIKey checks the shape of a key without calling the API.
func ValidateAPIKey(key string) error {
	switch {
	case key == "":
		return ErrNoAPIKey
	case !strings.HasPrefix(key, "sk-ant-"):
		return errors.New("invalid API key format: expected 'sk-ant-' prefix")
	case len(key) < 20:
		return errors.New("invalid API key format: key too short")
	}
	return nil
}

// MaskAPIKey renders a key for terminal display, keeping the sk-ant-
// prefix and the last four characters.
func MaskAPIKey(key string) string {
	switch {
	case key == "":
		return "(not set)"
	case len(key) <= 15:
		return "***"
	}
	return key[:7] + "..." + key[len(key)-4:]
}
