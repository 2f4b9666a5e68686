package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cognicore/lps/pkg/lps/history"
	"github.com/cognicore/lps/pkg/lps/history/memstore"
)

const lamp = `
fluent(lit(Lamp)).
action(turn_off/3).
maxTime(4).
initially(lit(desk)).
terminates(turn_off(L), lit(L)).

lit(L, T) -> turn_off(L, T, T2).
`

func writeProgram(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prog.lps")
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBuildSession(t *testing.T) {
	ctx := context.Background()
	session, cleanup, err := buildSession(ctx, runOptions{ProgramPath: writeProgram(t, lamp)})
	if err != nil {
		t.Fatalf("buildSession failed: %v", err)
	}
	defer cleanup()

	if session.RunID() == "" {
		t.Error("Expected a run id after loading")
	}
	if got := session.Engine().Settings().MaxTime; got != 4 {
		t.Errorf("program should declare max time 4, got %d", got)
	}
}

func TestBuildSessionNonExistentProgram(t *testing.T) {
	_, _, err := buildSession(context.Background(), runOptions{ProgramPath: filepath.Join(t.TempDir(), "missing.lps")})
	if err == nil {
		t.Error("buildSession should fail with non-existent program")
	}
}

func TestBuildSessionMaxTimeOverride(t *testing.T) {
	src := strings.Replace(lamp, "maxTime(4).\n", "", 1)
	session, cleanup, err := buildSession(context.Background(), runOptions{
		ProgramPath: writeProgram(t, src),
		MaxTime:     7,
	})
	if err != nil {
		t.Fatalf("buildSession failed: %v", err)
	}
	defer cleanup()

	if got := session.Engine().Settings().MaxTime; got != 7 {
		t.Errorf("expected max time 7 from the flag, got %d", got)
	}
}

func TestOneShotQuery(t *testing.T) {
	ctx := context.Background()
	session, cleanup, err := buildSession(ctx, runOptions{ProgramPath: writeProgram(t, lamp)})
	if err != nil {
		t.Fatalf("buildSession: %v", err)
	}
	defer cleanup()

	var out bytes.Buffer
	if err := executeQuery(ctx, &out, session, "lit(L)", "fluent"); err != nil {
		t.Fatalf("query: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "{L: desk}" {
		t.Errorf("unexpected answer before any cycle: %q", got)
	}

	if err := advance(ctx, session, 1); err != nil {
		t.Fatalf("advance: %v", err)
	}
	out.Reset()
	if err := executeQuery(ctx, &out, session, "lit(desk)", "fluent"); err != nil {
		t.Fatalf("query: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "no." {
		t.Errorf("lamp should be off after one cycle, got %q", got)
	}

	out.Reset()
	if err := executeQuery(ctx, &out, session, "turn_off(desk)", "action"); err != nil {
		t.Fatalf("query: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "yes." {
		t.Errorf("expected turn_off in the last cycle, got %q", got)
	}
}

func TestAdvanceToEnd(t *testing.T) {
	ctx := context.Background()
	src := lamp + "continuousExecution(yes).\n"
	session, cleanup, err := buildSession(ctx, runOptions{ProgramPath: writeProgram(t, src)})
	if err != nil {
		t.Fatalf("buildSession: %v", err)
	}
	defer cleanup()

	if err := advance(ctx, session, -1); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if got := session.Engine().Time(); got != 4 {
		t.Errorf("expected to stop at t=4, got %d", got)
	}
}

func TestCommands(t *testing.T) {
	ctx := context.Background()
	session, cleanup, err := buildSession(ctx, runOptions{ProgramPath: writeProgram(t, lamp)})
	if err != nil {
		t.Fatalf("buildSession: %v", err)
	}
	defer cleanup()

	in := strings.NewReader("state\nstep\nquery action turn_off(L)\nbogus\nquit\n")
	var out bytes.Buffer
	repl(ctx, in, &out, session)

	text := out.String()
	for _, want := range []string{
		"t=0 status=idle",
		"fluents: lit(desk, 0)",
		"--- t=0",
		"actions: turn_off(desk, 0, 1)",
		"{L: desk}",
		`Error: unknown command "bogus"`,
		"Goodbye!",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}

func TestPrintRuns(t *testing.T) {
	ctx := context.Background()
	var out bytes.Buffer

	if err := printRuns(ctx, &out, nil); err == nil {
		t.Error("printRuns should fail without a store")
	}

	st := memstore.New()
	if err := printRuns(ctx, &out, st); err != nil {
		t.Fatalf("printRuns: %v", err)
	}
	if !strings.Contains(out.String(), "No runs recorded.") {
		t.Errorf("unexpected output for empty store: %q", out.String())
	}

	out.Reset()
	if err := st.BeginRun(ctx, history.Run{ID: "run-1", Program: lamp, MaxTime: 4}); err != nil {
		t.Fatal(err)
	}
	if err := printRuns(ctx, &out, st); err != nil {
		t.Fatalf("printRuns: %v", err)
	}
	if !strings.Contains(out.String(), "run-1") || !strings.Contains(out.String(), "running") {
		t.Errorf("unexpected run listing: %q", out.String())
	}
}
