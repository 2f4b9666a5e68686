// Package engine runs LPS programs in discrete time.
//
// Each cycle ingests observations, evaluates the live goal trees, selects
// a set of actions that keeps every integrity constraint satisfied and
// every chosen goal achievable, applies the actions' effects to the fluent
// state, fires the reactive rules whose antecedents now hold and advances
// time by one.
package engine

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/cognicore/lps/pkg/lps/goaltree"
	"github.com/cognicore/lps/pkg/lps/internalerr"
	"github.com/cognicore/lps/pkg/lps/program"
	"github.com/cognicore/lps/pkg/lps/resolve"
	"github.com/cognicore/lps/pkg/lps/term"
)

// Settings is the run configuration.
type Settings struct {
	MaxTime       int64
	CycleInterval time.Duration
	Continuous    bool
}

// DefaultSettings returns the settings used when neither the options nor
// the program declare any.
func DefaultSettings() Settings {
	return Settings{
		MaxTime:       20,
		CycleInterval: 100 * time.Millisecond,
	}
}

// State of the scheduler.
type State uint8

const (
	Idle State = iota
	InCycle
	Terminated
)

func (s State) String() string {
	switch s {
	case InCycle:
		return "in-cycle"
	case Terminated:
		return "terminated"
	}
	return "idle"
}

// CycleReport describes one completed cycle.
type CycleReport struct {
	Time         int64
	Actions      []string
	Observations []string
	Fluents      []string
	Goals        int
	Duration     time.Duration
}

// Options configures an Engine.
type Options struct {
	// Settings are defaults; declarations in the program override them.
	Settings Settings

	Resolve      resolve.Options
	MaxExpansion int

	Logger *slog.Logger
	Tracer trace.Tracer
}

// Engine is the cycle scheduler.
type Engine struct {
	logger *slog.Logger
	tracer trace.Tracer
	res    *resolve.Resolutor
	ids    *goaltree.IDs
	opts   Options

	running    atomic.Bool
	terminated atomic.Bool

	mu           sync.RWMutex
	loaded       bool
	kb           *program.Program
	settings     Settings
	now          int64
	trees        []*goaltree.Tree
	partials     []partial
	scheduled    []observation
	adhoc        []term.Compound
	defined      []program.Functor
	lastActions  []term.Compound
	lastObserved []term.Compound
	hooks        []func(CycleReport)
	err          error
}

// New creates an engine. Load a program before stepping it.
func New(opts Options) *Engine {
	if opts.Settings == (Settings{}) {
		opts.Settings = DefaultSettings()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer("lps")
	}
	return &Engine{
		logger:   logger.With(slog.String("component", "engine")),
		tracer:   tracer,
		res:      resolve.New(opts.Resolve),
		ids:      goaltree.NewIDs(),
		opts:     opts,
		settings: opts.Settings,
		kb:       program.New(),
	}
}

// OnCycle registers fn to be called after every completed cycle.
func (e *Engine) OnCycle(fn func(CycleReport)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hooks = append(e.hooks, fn)
}

// Define registers a user functor. Functors survive across cycles.
func (e *Engine) Define(f program.Functor) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.defined = append(e.defined, f)
	e.kb.Define(f)
}

// Observe injects an observation for the next cycle. The literal is given
// without time arguments.
func (e *Engine) Observe(lit term.Compound) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.adhoc = append(e.adhoc, lit)
}

// Terminate stops the engine. Further steps return ErrTerminated.
func (e *Engine) Terminate() {
	if e.terminated.CompareAndSwap(false, true) {
		e.logger.Info("engine terminated", slog.Int64("time", e.Time()))
	}
}

// Status returns the scheduler state.
func (e *Engine) Status() State {
	switch {
	case e.terminated.Load():
		return Terminated
	case e.running.Load():
		return InCycle
	}
	return Idle
}

// Err returns the error that terminated the engine, if any.
func (e *Engine) Err() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.err
}

// Settings returns the effective settings.
func (e *Engine) Settings() Settings {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.settings
}

// SetSettings replaces the settings. They are fixed once time has moved.
func (e *Engine) SetSettings(s Settings) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.now > 0 {
		return internalerr.ErrSettingsLocked
	}
	e.settings = s
	return nil
}

// Time returns the current time.
func (e *Engine) Time() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.now
}

// LastActions returns the actions executed in the last cycle.
func (e *Engine) LastActions() []term.Compound {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]term.Compound(nil), e.lastActions...)
}

// LastObservations returns the observations of the last cycle.
func (e *Engine) LastObservations() []term.Compound {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]term.Compound(nil), e.lastObserved...)
}

// ActiveFluents returns the fluents holding now.
func (e *Engine) ActiveFluents() []term.Compound {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.kb.State()
}

// LastActionStrings renders LastActions.
func (e *Engine) LastActionStrings() []string { return render(e.LastActions()) }

// LastObservationStrings renders LastObservations.
func (e *Engine) LastObservationStrings() []string { return render(e.LastObservations()) }

// ActiveFluentStrings renders ActiveFluents.
func (e *Engine) ActiveFluentStrings() []string { return render(e.ActiveFluents()) }

// Goals returns copies of the live goal trees.
func (e *Engine) Goals() []*goaltree.Tree {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*goaltree.Tree, len(e.trees))
	for i, t := range e.trees {
		out[i] = t.Clone()
	}
	return out
}

// Program returns a snapshot of the knowledge base.
func (e *Engine) Program() *program.Program {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.kb.Clone()
}

func render(lits []term.Compound) []string {
	out := make([]string, len(lits))
	for i, l := range lits {
		out[i] = l.String()
	}
	return out
}
