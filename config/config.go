// Package config loads agentwire configuration from layered YAML files: the
// user-level ~/.agentwire/config.yaml first, then the project-level
// ./.agentwire/config.yaml, with the project file taking precedence.
package config

import (
	"os"
	"path/filepath"

	"github.com/agentwire/agentwire/errors"
	"gopkg.in/yaml.v3"
)

// DotDir is the per-user / per-project directory agentwire keeps its state in.
const DotDir = ".agentwire"

// FilesystemAccess restricts what the agent-side file tools may touch.
type FilesystemAccess struct {
	Hidden   []string `yaml:"hidden"`
	ReadOnly []string `yaml:"read_only"`
}

// MCPServer describes one Model Context Protocol tool server to spawn.
type MCPServer struct {
	Name    string   `yaml:"name"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

// LLM selects the model backend used when an agent runs with a real
// responder instead of the deterministic mock.
type LLM struct {
	Provider string `yaml:"provider"` // anthropic, openai, gemini, bedrock, mock
	Model    string `yaml:"model"`
}

type Config struct {
	// DefaultProvider is the registry id used when a chat command does not
	// name a provider explicitly.
	DefaultProvider string `yaml:"default_provider"`
	SessionsDir     string `yaml:"sessions_dir"`
	RegistryPath    string `yaml:"registry_path"`

	// StreamChunks is how many deltas the agent splits a streamed reply into.
	StreamChunks int    `yaml:"stream_chunks"`
	LogLevel     string `yaml:"log_level"`

	LLM              LLM              `yaml:"llm"`
	AllowedCommands  []string         `yaml:"allowed_commands"`
	FilesystemAccess FilesystemAccess `yaml:"filesystem_access"`
	MCPServers       []MCPServer      `yaml:"mcp_servers"`
}

// Load reads configuration from the user's home directory and the current
// working directory, the latter taking precedence, and applies defaults.
func Load() (*Config, error) {
	cfg := &Config{}

	// The dot-dir itself is always hidden from agent file tools.
	cfg.FilesystemAccess.Hidden = append(cfg.FilesystemAccess.Hidden, DotDir, DotDir+"/**")

	home, err := os.UserHomeDir()
	if err == nil {
		userPath := filepath.Join(home, DotDir, "config.yaml")
		if _, err := os.Stat(userPath); err == nil {
			if err := loadFromFile(userPath, cfg); err != nil {
				return nil, errors.Wrapf(err, "load user config")
			}
		}
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrapf(err, "get working directory")
	}
	projectPath := filepath.Join(wd, DotDir, "config.yaml")
	if _, err := os.Stat(projectPath); err == nil {
		if err := loadFromFile(projectPath, cfg); err != nil {
			return nil, errors.Wrapf(err, "load project config")
		}
	}

	cfg.applyDefaults(wd)
	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	// Unmarshal overwrites fields present in the YAML, which gives the simple
	// merge where project-level values replace user-level ones.
	return yaml.Unmarshal(data, cfg)
}

func (c *Config) applyDefaults(wd string) {
	if c.DefaultProvider == "" {
		c.DefaultProvider = "mock"
	}
	if c.SessionsDir == "" {
		c.SessionsDir = filepath.Join(wd, DotDir, "sessions")
	}
	if c.RegistryPath == "" {
		c.RegistryPath = filepath.Join(wd, DotDir, "providers.json")
	}
	if c.StreamChunks <= 0 {
		c.StreamChunks = 4
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "mock"
	}
}
