package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Reasoner.SimplifyOrder != "insertion" {
		t.Errorf("expected SimplifyOrder=insertion, got %s", cfg.Reasoner.SimplifyOrder)
	}
	if !cfg.Learning.Enabled || !cfg.Learning.IncludeCurrent {
		t.Error("expected learning enabled with current-instance clauses")
	}
	require.NoError(t, cfg.Validate())
}

// clearEnv keeps the caller's environment out of Load.
func clearEnv(t *testing.T) {
	for _, k := range []string{"HEXOWL_LOG_LEVEL", "HEXOWL_DEBUG", "HEXOWL_NOGOOD_DB", "HEXOWL_SIMPLIFY_ORDER"} {
		t.Setenv(k, "")
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "nested", "hexowl.yaml")

	cfg := DefaultConfig()
	cfg.Reasoner.SimplifyOrder = "longest"
	cfg.Store.Backend = "sqlite"
	cfg.Store.Path = "/tmp/ng.db"
	cfg.Logging.Categories = map[string]bool{"host": false}

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assert.Equal(t, cfg, loaded)
}

func TestConfig_LoadMissingReturnsDefaults(t *testing.T) {
	clearEnv(t)
	loaded, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), loaded)
}

func TestConfig_LoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("learning: [unclosed"), 0644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HEXOWL_LOG_LEVEL", "debug")
	t.Setenv("HEXOWL_DEBUG", "true")
	t.Setenv("HEXOWL_NOGOOD_DB", "/tmp/test.db")
	t.Setenv("HEXOWL_SIMPLIFY_ORDER", "longest")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.DebugMode)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, "/tmp/test.db", cfg.Store.Path)
	assert.Equal(t, "longest", cfg.Reasoner.SimplifyOrder)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"simplify order", func(c *Config) { c.Reasoner.SimplifyOrder = "random" }},
		{"backend", func(c *Config) { c.Store.Backend = "postgres" }},
		{"sqlite path", func(c *Config) { c.Store.Backend = "sqlite"; c.Store.Path = "" }},
		{"fact limit", func(c *Config) { c.Host.FactLimit = -1 }},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoggingOptions(t *testing.T) {
	cfg := LoggingConfig{Level: "debug", Format: "json", File: "x.log", DebugMode: true, Categories: map[string]bool{"atoms": false}}
	assert.False(t, cfg.IsCategoryEnabled("atoms"))
	assert.True(t, cfg.IsCategoryEnabled("host"))

	o := cfg.Options()
	assert.Equal(t, "x.log", o.OutputPath)
	assert.True(t, o.DebugMode)
	assert.Equal(t, map[string]bool{"atoms": false}, o.Categories)
}
