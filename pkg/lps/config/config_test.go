package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cognicore/lps/pkg/lps/internalerr"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Engine.MaxTime != 20 {
		t.Errorf("expected default max_time 20, got %d", cfg.Engine.MaxTime)
	}
	if cfg.Engine.CycleInterval != 100*time.Millisecond {
		t.Errorf("expected default cycle_interval 100ms, got %v", cfg.Engine.CycleInterval)
	}
}

func TestLoadConfig(t *testing.T) {
	path := writeFile(t, "lps.yaml", `engine:
  max_time: 50
  cycle_interval: 250ms
  continuous_execution: true
resolve:
  max_depth: 64
history:
  driver: sqlite
  path: runs.db
log:
  level: debug
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Engine.MaxTime != 50 {
		t.Errorf("max_time: got %d", cfg.Engine.MaxTime)
	}
	if cfg.Engine.CycleInterval != 250*time.Millisecond {
		t.Errorf("cycle_interval: got %v", cfg.Engine.CycleInterval)
	}
	if !cfg.Engine.Continuous {
		t.Error("continuous_execution should be true")
	}
	if cfg.Resolve.MaxDepth != 64 {
		t.Errorf("max_depth: got %d", cfg.Resolve.MaxDepth)
	}
	// Unset fields keep their defaults
	if cfg.Resolve.FunctorCacheSize != 1024 {
		t.Errorf("functor_cache_size should default to 1024, got %d", cfg.Resolve.FunctorCacheSize)
	}
	if cfg.History.Driver != "sqlite" || cfg.History.Path != "runs.db" {
		t.Errorf("history: got %+v", cfg.History)
	}

	opts := cfg.EngineOptions(nil)
	if opts.Settings.MaxTime != 50 || !opts.Settings.Continuous || opts.Resolve.MaxDepth != 64 {
		t.Errorf("engine options mismatch: %+v", opts)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative max time", func(c *Config) { c.Engine.MaxTime = -1 }},
		{"negative interval", func(c *Config) { c.Engine.CycleInterval = -time.Second }},
		{"negative depth", func(c *Config) { c.Resolve.MaxDepth = -5 }},
		{"unknown driver", func(c *Config) { c.History.Driver = "postgres" }},
		{"sqlite without path", func(c *Config) { c.History.Driver = "sqlite" }},
		{"unknown level", func(c *Config) { c.Log.Level = "chatty" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if !errors.Is(err, internalerr.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/lps.yaml"); err == nil {
		t.Error("should error on missing file")
	}

	bad := writeFile(t, "bad.yaml", "engine: [not, a, map]\n")
	if _, err := LoadConfig(bad); err == nil {
		t.Error("should error on malformed yaml")
	}

	invalidCfg := writeFile(t, "invalid.yaml", "engine:\n  max_time: -3\n")
	if _, err := LoadConfig(invalidCfg); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}
