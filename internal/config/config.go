package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all hexowl configuration.
type Config struct {
	// Reasoner and store context settings
	Reasoner ReasonerConfig `yaml:"reasoner"`

	// Conflict clause generation
	Learning LearningConfig `yaml:"learning"`

	// Mangle-backed solver host
	Host HostConfig `yaml:"host"`

	// Nogood journal
	Store StoreConfig `yaml:"store"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// ReasonerConfig configures store contexts.
type ReasonerConfig struct {
	// SimplifyOrder picks the namespace used by dl_simplify: insertion, longest
	SimplifyOrder string `yaml:"simplify_order"`
}

// LearningConfig configures the conflict clause generator.
type LearningConfig struct {
	Enabled bool `yaml:"enabled"`
	// IncludeCurrent also learns the clause of the evaluated grounding.
	IncludeCurrent bool `yaml:"include_current"`
}

// HostConfig configures the Mangle host.
type HostConfig struct {
	FactLimit int `yaml:"fact_limit"`
	// ReuseNogoods lets the host decide zero-output atoms from learned clauses.
	ReuseNogoods bool `yaml:"reuse_nogoods"`
}

// StoreConfig configures the nogood journal.
type StoreConfig struct {
	Backend string `yaml:"backend"` // memory, sqlite
	Path    string `yaml:"path"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Reasoner: ReasonerConfig{
			SimplifyOrder: "insertion",
		},
		Learning: LearningConfig{
			Enabled:        true,
			IncludeCurrent: true,
		},
		Host: HostConfig{
			FactLimit:    1000000,
			ReuseNogoods: true,
		},
		Store: StoreConfig{
			Backend: "memory",
			Path:    "data/nogoods.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if level := os.Getenv("HEXOWL_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if debug := os.Getenv("HEXOWL_DEBUG"); debug != "" {
		if on, err := strconv.ParseBool(debug); err == nil {
			c.Logging.DebugMode = on
		}
	}

	// Nogood journal path from environment switches to the SQLite backend
	if path := os.Getenv("HEXOWL_NOGOOD_DB"); path != "" {
		c.Store.Backend = "sqlite"
		c.Store.Path = path
	}

	if order := os.Getenv("HEXOWL_SIMPLIFY_ORDER"); order != "" {
		c.Reasoner.SimplifyOrder = order
	}
}

// Valid option values.
var (
	ValidSimplifyOrders = []string{"insertion", "longest"}
	ValidBackends       = []string{"memory", "sqlite"}
	ValidLogFormats     = []string{"json", "console"}
)

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !contains(ValidSimplifyOrders, c.Reasoner.SimplifyOrder) {
		return fmt.Errorf("invalid simplify order: %s (valid: %v)", c.Reasoner.SimplifyOrder, ValidSimplifyOrders)
	}
	if !contains(ValidBackends, c.Store.Backend) {
		return fmt.Errorf("invalid nogood store backend: %s (valid: %v)", c.Store.Backend, ValidBackends)
	}
	if c.Store.Backend == "sqlite" && c.Store.Path == "" {
		return fmt.Errorf("sqlite nogood store requires store.path")
	}
	if c.Host.FactLimit < 0 {
		return fmt.Errorf("host.fact_limit must not be negative, got %d", c.Host.FactLimit)
	}
	if c.Logging.Format != "" && !contains(ValidLogFormats, c.Logging.Format) {
		return fmt.Errorf("invalid log format: %s (valid: %v)", c.Logging.Format, ValidLogFormats)
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
