package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/cognicore/lps/pkg/lps"
	"github.com/cognicore/lps/pkg/lps/config"
	"github.com/cognicore/lps/pkg/lps/engine"
	"github.com/cognicore/lps/pkg/lps/history"
)

func main() {
	var (
		programPath = flag.String("program", "", "LPS program file (required unless -runs)")
		configPath  = flag.String("config", "", "YAML config file (optional)")
		dbPath      = flag.String("db", "", "SQLite history path, overrides the config driver")
		maxTime     = flag.Int64("max-time", 0, "Max time when the program does not declare one")
		steps       = flag.Int("steps", -1, "Cycles to run before answering -query (-1 runs to the end)")
		query       = flag.String("query", "", "One-shot query (non-interactive mode)")
		kind        = flag.String("kind", "", "Query kind: fluent, action, observation or empty")
		interactive = flag.Bool("i", false, "Interactive mode")
		listRuns    = flag.Bool("runs", false, "List recorded runs and exit")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := runOptions{
		ProgramPath: *programPath,
		ConfigPath:  *configPath,
		DBPath:      *dbPath,
		MaxTime:     *maxTime,
	}

	if *listRuns {
		comp, err := opts.components(ctx)
		if err != nil {
			log.Fatal(err)
		}
		defer comp.Close()
		if err := printRuns(ctx, os.Stdout, comp.History); err != nil {
			log.Fatal(err)
		}
		return
	}

	if *programPath == "" {
		log.Fatal("--program required")
	}

	session, cleanup, err := buildSession(ctx, opts)
	if err != nil {
		log.Fatal(err)
	}
	defer cleanup()

	// One-shot query mode
	if *query != "" {
		if err := advance(ctx, session, *steps); err != nil {
			log.Fatal(err)
		}
		if err := executeQuery(ctx, os.Stdout, session, *query, *kind); err != nil {
			log.Fatal(err)
		}
		return
	}

	if *interactive {
		repl(ctx, os.Stdin, os.Stdout, session)
		return
	}

	session.Engine().OnCycle(func(r engine.CycleReport) { printCycle(os.Stdout, r) })
	start := time.Now()
	if err := session.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal(err)
	}
	printSummary(os.Stdout, session, time.Since(start))
}

type runOptions struct {
	ProgramPath string
	ConfigPath  string
	DBPath      string
	MaxTime     int64
}

func (o runOptions) components(ctx context.Context) (*config.Components, error) {
	loader := config.Loader{
		ConfigPath:  o.ConfigPath,
		ProgramPath: o.ProgramPath,
	}
	comp, err := loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if o.DBPath != "" {
		comp.Close()
		h := config.History{Driver: "sqlite", Path: o.DBPath}
		if comp.History, err = config.OpenHistory(ctx, h); err != nil {
			return nil, fmt.Errorf("open history: %w", err)
		}
		comp.Config.History = h
	}
	if o.MaxTime > 0 {
		comp.Config.Engine.MaxTime = o.MaxTime
	}
	return comp, nil
}

func buildSession(ctx context.Context, opts runOptions) (*lps.Session, func(), error) {
	comp, err := opts.components(ctx)
	if err != nil {
		return nil, nil, err
	}

	session := lps.New(lps.Options{
		Engine:  comp.Config.EngineOptions(comp.Logger),
		History: comp.History,
		Logger:  comp.Logger,
	})
	if err := session.Load(ctx, comp.Source); err != nil {
		session.Close()
		return nil, nil, fmt.Errorf("load program %s: %w", opts.ProgramPath, err)
	}

	cleanup := func() {
		session.Close()
	}
	return session, cleanup, nil
}

// advance runs n cycles, or the whole program when n is negative.
func advance(ctx context.Context, s *lps.Session, n int) error {
	if n < 0 {
		return s.Run(ctx)
	}
	for i := 0; i < n && s.Engine().Status() != engine.Terminated; i++ {
		if err := s.Step(ctx); err != nil {
			return err
		}
	}
	return nil
}

func executeQuery(ctx context.Context, w io.Writer, s *lps.Session, src, kind string) error {
	res, err := s.Query(ctx, src, kind)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	if len(res) == 0 {
		fmt.Fprintln(w, "no.")
		return nil
	}
	for _, th := range res {
		if th.Len() == 0 {
			fmt.Fprintln(w, "yes.")
			continue
		}
		fmt.Fprintln(w, th.String())
	}
	return nil
}

func printCycle(w io.Writer, r engine.CycleReport) {
	fmt.Fprintf(w, "--- t=%d (%s) ---\n", r.Time, r.Duration.Round(time.Microsecond))
	printList(w, "observed", r.Observations)
	printList(w, "actions", r.Actions)
	printList(w, "fluents", r.Fluents)
	fmt.Fprintf(w, "  goals: %d\n", r.Goals)
}

func printList(w io.Writer, label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "  %s: %s\n", label, strings.Join(items, ", "))
}

func printSummary(w io.Writer, s *lps.Session, elapsed time.Duration) {
	e := s.Engine()
	fmt.Fprintf(w, "\nFinished at t=%s in %s", humanize.Comma(e.Time()), elapsed.Round(time.Millisecond))
	if id := s.RunID(); id != "" {
		fmt.Fprintf(w, " (run %s)", id)
	}
	fmt.Fprintln(w)
	if err := e.Err(); err != nil {
		fmt.Fprintf(w, "Stopped with error: %v\n", err)
	}
}

func printRuns(ctx context.Context, w io.Writer, st history.Store) error {
	if st == nil {
		return errors.New("no history store configured (use -db or history.driver)")
	}
	runs, err := st.Runs(ctx)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	for _, r := range runs {
		status := "running"
		if !r.FinishedAt.IsZero() {
			status = fmt.Sprintf("finished at t=%s", humanize.Comma(r.FinalTime))
		}
		if r.Error != "" {
			status = "failed: " + r.Error
		}
		fmt.Fprintf(w, "%s  started %s  %s\n", r.ID, humanize.Time(r.StartedAt), status)
	}
	return nil
}

func repl(ctx context.Context, in io.Reader, w io.Writer, s *lps.Session) {
	fmt.Fprintln(w, "===========================================")
	fmt.Fprintln(w, "  LPS interactive runner")
	fmt.Fprintln(w, "===========================================")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands: step, run, observe <lit>, query [kind] <lit>, state, quit")
	fmt.Fprintln(w)

	s.Engine().OnCycle(func(r engine.CycleReport) { printCycle(w, r) })

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(w, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}
		if err := command(ctx, w, s, line); err != nil {
			fmt.Fprintln(w, "Error:", err)
		}
	}

	fmt.Fprintln(w, "\nGoodbye!")
}

func command(ctx context.Context, w io.Writer, s *lps.Session, line string) error {
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch cmd {
	case "step":
		return s.Step(ctx)
	case "run":
		return s.Run(ctx)
	case "observe":
		return s.Observe(rest)
	case "query":
		kind := engine.QueryAll
		if k, lit, ok := strings.Cut(rest, " "); ok && isKind(k) {
			kind, rest = k, strings.TrimSpace(lit)
		}
		return executeQuery(ctx, w, s, rest, kind)
	case "state":
		e := s.Engine()
		fmt.Fprintf(w, "t=%d status=%s goals=%d\n", e.Time(), e.Status(), len(e.Goals()))
		printList(w, "fluents", e.ActiveFluentStrings())
		printList(w, "last actions", e.LastActionStrings())
		return nil
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func isKind(k string) bool {
	switch k {
	case engine.QueryFluent, engine.QueryAction, engine.QueryObservation:
		return true
	}
	return false
}

