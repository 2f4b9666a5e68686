package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/cognicore/lps/pkg/lps/history"
	"github.com/cognicore/lps/pkg/lps/history/memstore"
	"github.com/cognicore/lps/pkg/lps/history/sqlite"
	"github.com/cognicore/lps/pkg/lps/program"
	"github.com/cognicore/lps/pkg/lps/syntax"
)

// Loader loads the configuration file and the program and constructs
// the components a run needs
type Loader struct {
	ConfigPath  string
	ProgramPath string

	// LogOutput receives log lines. Defaults to os.Stderr.
	LogOutput io.Writer
}

// Components holds everything a run is built from
type Components struct {
	Config  Config
	Source  string
	Program *program.Program
	Logger  *slog.Logger
	History history.Store // nil when the driver is none
}

// Close releases the history store.
func (c *Components) Close() error {
	if c.History == nil {
		return nil
	}
	return c.History.Close()
}

// Load reads all configured files and returns initialized components
func (l *Loader) Load(ctx context.Context) (*Components, error) {
	comp := &Components{Config: Default()}

	// Load config
	if l.ConfigPath != "" {
		cfg, err := LoadConfig(l.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		comp.Config = *cfg
	}

	level, err := comp.Config.Log.level()
	if err != nil {
		return nil, err
	}
	out := l.LogOutput
	if out == nil {
		out = os.Stderr
	}
	comp.Logger = slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))

	// Load program
	if l.ProgramPath != "" {
		data, err := os.ReadFile(l.ProgramPath)
		if err != nil {
			return nil, fmt.Errorf("load program: %w", err)
		}
		comp.Source = string(data)
		if comp.Program, err = syntax.ParseProgram(comp.Source); err != nil {
			return nil, fmt.Errorf("load program %s: %w", l.ProgramPath, err)
		}
	}

	// Open history
	if comp.History, err = OpenHistory(ctx, comp.Config.History); err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return comp, nil
}

// OpenHistory opens the journal selected by h. The none driver returns a
// nil store.
func OpenHistory(ctx context.Context, h History) (history.Store, error) {
	switch h.Driver {
	case "", "none":
		return nil, nil
	case "memory":
		return memstore.New(), nil
	case "sqlite":
		return sqlite.OpenSQLite(ctx, h.Path)
	}
	return nil, invalid("history.driver", h.Driver)
}
