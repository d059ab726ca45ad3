package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LookoutConfig represents the top-level lookout.yml configuration
type LookoutConfig struct {
	Version  string            `yaml:"version"`
	Instance string            `yaml:"instance"`
	Redis    *RedisConfig      `yaml:"redis,omitempty"`
	Pipeline *PipelineConfig   `yaml:"pipeline,omitempty"`
	Sources  map[string]Source `yaml:"sources"`
}

// RedisConfig specifies the view bus connection
type RedisConfig struct {
	URL string `yaml:"url"`
}

// PipelineConfig specifies derivation tuning
type PipelineConfig struct {
	// MaxVisible caps the visible photo list published per area change
	// (0 = unlimited, default = 200)
	MaxVisible *int `yaml:"max_visible,omitempty"`
}

// Source represents a single photo source configuration
type Source struct {
	Enabled bool   `yaml:"enabled"`
	Kind    string `yaml:"kind,omitempty"` // "hillview", "mapillary" or "device"
}

// EnabledSources returns the names of all enabled sources.
func (c *LookoutConfig) EnabledSources() []string {
	var names []string
	for name, s := range c.Sources {
		if s.Enabled {
			names = append(names, name)
		}
	}
	return names
}

// Validate performs strict validation on the configuration
func (c *LookoutConfig) Validate() error {
	// Required: version
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	// Required: instance name (namespaces the view bus channels)
	if c.Instance == "" {
		return fmt.Errorf("instance name is required")
	}

	// Required: at least one source
	if len(c.Sources) == 0 {
		return fmt.Errorf("no sources defined")
	}

	for name, s := range c.Sources {
		if s.Kind != "" && s.Kind != "hillview" && s.Kind != "mapillary" && s.Kind != "device" {
			return fmt.Errorf("source '%s': invalid kind: %s (must be 'hillview', 'mapillary' or 'device')", name, s.Kind)
		}
	}

	// Apply default redis config if missing
	if c.Redis == nil {
		c.Redis = &RedisConfig{URL: "redis://localhost:6379"}
	} else if c.Redis.URL == "" {
		return fmt.Errorf("redis.url must not be empty when a redis section is present")
	}

	// Apply default pipeline tuning if missing
	if c.Pipeline == nil {
		defaultMax := 200
		c.Pipeline = &PipelineConfig{MaxVisible: &defaultMax}
	} else if c.Pipeline.MaxVisible == nil {
		defaultMax := 200
		c.Pipeline.MaxVisible = &defaultMax
	}

	if *c.Pipeline.MaxVisible < 0 {
		return fmt.Errorf("pipeline.max_visible must be >= 0 (0 = unlimited), got %d", *c.Pipeline.MaxVisible)
	}

	return nil
}

// Load reads and validates lookout.yml from the specified path
func Load(path string) (*LookoutConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config LookoutConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}
