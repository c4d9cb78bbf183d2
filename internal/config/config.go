// Package config loads archon's process configuration via viper, layering
// defaults, an optional config file, and env var overrides, trimmed to
// what the workflow engine actually consumes.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config is archon's immutable, process-wide configuration. It is loaded
// once via Load() and passed explicitly to constructors; no package in
// internal/engine reads the global viper instance directly.
type Config struct {
	// CommandsFolder overrides the Command Prompt Resolver's first search
	// path; a relative value is resolved against the run's working tree.
	// Empty means the resolver only searches the working-tree default,
	// <cwd>/.archon/commands.
	CommandsFolder string

	// WorkflowDirs are the Loader's search folders, searched
	// in order with recursive descent into subdirectories.
	WorkflowDirs []string

	Engine    EngineConfig
	Assistant AssistantConfig
}

// EngineConfig holds the Executor Dispatcher's tunables.
type EngineConfig struct {
	StaleAfterMinutes  int
	MaxCriticalRetries int
}

// AssistantConfig holds per-provider CLI settings.
type AssistantConfig struct {
	Claude ProviderConfig
	Codex  ProviderConfig
}

// ProviderConfig is one assistant provider's CLI invocation settings.
type ProviderConfig struct {
	BinaryPath      string
	Model           string
	MaxTurns        int
	AllowedTools    []string
	DisallowedTools []string
}

// Load reads archon configuration from environment variables (with an
// ARCHON_ prefix) and an optional config file discovered on the XDG config
// path, applying defaults for anything unset.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ARCHON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigType("yaml")
	v.SetConfigName("config")
	v.AddConfigPath(getXDGConfigDir())
	if cwd, err := os.Getwd(); err == nil {
		v.AddConfigPath(cwd)
	}

	v.SetDefault("commands.folder", "")
	v.SetDefault("workflows.dirs", []string{".archon/workflows"})
	v.SetDefault("engine.stale_after_minutes", 15)
	v.SetDefault("engine.max_critical_retries", 3)
	v.SetDefault("assistant.claude.binary_path", "claude")
	v.SetDefault("assistant.claude.max_turns", 0)
	v.SetDefault("assistant.codex.binary_path", "codex")
	v.SetDefault("assistant.codex.max_turns", 0)

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		CommandsFolder: v.GetString("commands.folder"),
		WorkflowDirs:   v.GetStringSlice("workflows.dirs"),
		Engine: EngineConfig{
			StaleAfterMinutes:  v.GetInt("engine.stale_after_minutes"),
			MaxCriticalRetries: v.GetInt("engine.max_critical_retries"),
		},
		Assistant: AssistantConfig{
			Claude: ProviderConfig{
				BinaryPath:      v.GetString("assistant.claude.binary_path"),
				Model:           v.GetString("assistant.claude.model"),
				MaxTurns:        v.GetInt("assistant.claude.max_turns"),
				AllowedTools:    v.GetStringSlice("assistant.claude.allowed_tools"),
				DisallowedTools: v.GetStringSlice("assistant.claude.disallowed_tools"),
			},
			Codex: ProviderConfig{
				BinaryPath:      v.GetString("assistant.codex.binary_path"),
				Model:           v.GetString("assistant.codex.model"),
				MaxTurns:        v.GetInt("assistant.codex.max_turns"),
				AllowedTools:    v.GetStringSlice("assistant.codex.allowed_tools"),
				DisallowedTools: v.GetStringSlice("assistant.codex.disallowed_tools"),
			},
		},
	}

	return cfg, nil
}
