package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"taskboard/internal/domain"
)

// Config models taskboard.yml.
type Config struct {
	Server struct {
		BasePath               string `yaml:"base_path"`
		JWTSecret              string `yaml:"jwt_secret"`
		AllowLegacyActorHeader bool   `yaml:"allow_legacy_actor_header"`
	} `yaml:"server"`
	Defaults struct {
		Status   string `yaml:"status"`
		Priority string `yaml:"priority"`
	} `yaml:"defaults"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

type WebhookConfig struct {
	URL            string   `yaml:"url"`
	Types          []string `yaml:"types"`
	Secret         string   `yaml:"secret"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
}

// Validate ensures the config meets the required structure.
func (c *Config) Validate() error {
	if c.Defaults.Status != "" && domain.ParseStatus(c.Defaults.Status) != domain.Status(c.Defaults.Status) {
		return fmt.Errorf("defaults.status %q is not one of TODO, IN_PROGRESS, DONE", c.Defaults.Status)
	}
	if c.Defaults.Priority != "" && domain.ParsePriority(c.Defaults.Priority) != domain.Priority(c.Defaults.Priority) {
		return fmt.Errorf("defaults.priority %q is not one of LOW, MEDIUM, HIGH, CRITICAL", c.Defaults.Priority)
	}
	for i, wh := range c.Webhooks {
		if wh.URL == "" {
			return fmt.Errorf("webhooks[%d].url is required", i)
		}
	}
	return nil
}

// DefaultStatus returns the configured default column for new tasks.
func (c *Config) DefaultStatus() domain.Status {
	return domain.ParseStatus(c.Defaults.Status)
}

// DefaultPriority returns the configured default priority for new tasks.
func (c *Config) DefaultPriority() domain.Priority {
	return domain.ParsePriority(c.Defaults.Priority)
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "taskboard.yml")
}

// Load reads and validates config from the workspace, returning defaults
// when the file does not exist.
func Load(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the default Config.
func Default() *Config {
	var cfg Config
	cfg.Server.BasePath = "/v1"
	cfg.Server.AllowLegacyActorHeader = true
	cfg.Defaults.Status = string(domain.StatusTodo)
	cfg.Defaults.Priority = string(domain.PriorityMedium)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Missing fields
// keep their defaults.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
