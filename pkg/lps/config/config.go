package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/lps/pkg/lps/engine"
	"github.com/cognicore/lps/pkg/lps/internalerr"
	"github.com/cognicore/lps/pkg/lps/resolve"
)

// Config is the runtime configuration file
type Config struct {
	Engine  Engine  `yaml:"engine"`
	Resolve Resolve `yaml:"resolve"`
	History History `yaml:"history"`
	Log     Log     `yaml:"log"`
}

// Engine holds scheduler defaults. Declarations in a program override them.
type Engine struct {
	MaxTime       int64         `yaml:"max_time"`
	CycleInterval time.Duration `yaml:"cycle_interval"`
	Continuous    bool          `yaml:"continuous_execution"`
	MaxExpansion  int           `yaml:"max_expansion"`
}

// Resolve bounds the resolver.
type Resolve struct {
	MaxDepth         int `yaml:"max_depth"`
	FunctorCacheSize int `yaml:"functor_cache_size"`
}

// History selects the cycle journal.
type History struct {
	Driver string `yaml:"driver"` // sqlite, memory or none
	Path   string `yaml:"path"`
}

// Log configures the structured logger.
type Log struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	s := engine.DefaultSettings()
	return Config{
		Engine: Engine{
			MaxTime:       s.MaxTime,
			CycleInterval: s.CycleInterval,
		},
		Resolve: Resolve{
			MaxDepth:         resolve.DefaultMaxDepth,
			FunctorCacheSize: resolve.DefaultCacheSize,
		},
		History: History{Driver: "none"},
		Log:     Log{Level: "info"},
	}
}

// LoadConfig reads a YAML file over the defaults and validates it
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every field and names the first bad one.
func (c Config) Validate() error {
	switch {
	case c.Engine.MaxTime < 0:
		return invalid("engine.max_time", c.Engine.MaxTime)
	case c.Engine.CycleInterval < 0:
		return invalid("engine.cycle_interval", c.Engine.CycleInterval)
	case c.Engine.MaxExpansion < 0:
		return invalid("engine.max_expansion", c.Engine.MaxExpansion)
	case c.Resolve.MaxDepth < 0:
		return invalid("resolve.max_depth", c.Resolve.MaxDepth)
	case c.Resolve.FunctorCacheSize < 0:
		return invalid("resolve.functor_cache_size", c.Resolve.FunctorCacheSize)
	}
	switch c.History.Driver {
	case "", "none", "memory":
	case "sqlite":
		if c.History.Path == "" {
			return invalid("history.path", `""`)
		}
	default:
		return invalid("history.driver", c.History.Driver)
	}
	if _, err := c.Log.level(); err != nil {
		return err
	}
	return nil
}

func invalid(field string, v any) error {
	return fmt.Errorf("%s: bad value %v: %w", field, v, internalerr.ErrInvalidConfig)
}

// EngineOptions converts the configuration into engine options.
func (c Config) EngineOptions(logger *slog.Logger) engine.Options {
	return engine.Options{
		Settings: engine.Settings{
			MaxTime:       c.Engine.MaxTime,
			CycleInterval: c.Engine.CycleInterval,
			Continuous:    c.Engine.Continuous,
		},
		Resolve: resolve.Options{
			MaxDepth:  c.Resolve.MaxDepth,
			CacheSize: c.Resolve.FunctorCacheSize,
		},
		MaxExpansion: c.Engine.MaxExpansion,
		Logger:       logger,
	}
}

func (l Log) level() (slog.Level, error) {
	switch strings.ToLower(l.Level) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, invalid("log.level", l.Level)
}
