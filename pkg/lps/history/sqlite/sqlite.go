package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/lps/pkg/lps/history"
	"github.com/cognicore/lps/pkg/lps/internalerr"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (history.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("open %s: %w: %v", path, internalerr.ErrStoreUnavailable, err)
	}

	// Enable foreign keys
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	program TEXT,
	max_time INTEGER NOT NULL DEFAULT 0,
	started_at TEXT NOT NULL,
	finished_at TEXT,
	final_time INTEGER,
	error TEXT
);

CREATE TABLE IF NOT EXISTS cycles (
	run_id TEXT NOT NULL,
	time INTEGER NOT NULL,
	actions TEXT,
	observations TEXT,
	fluents TEXT,
	goals INTEGER NOT NULL DEFAULT 0,
	duration_ns INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY(run_id, time),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// BeginRun inserts a run row
func (s *sqliteStore) BeginRun(ctx context.Context, r history.Run) error {
	if r.ID == "" {
		return fmt.Errorf("begin run: empty id: %w", internalerr.ErrInvalidInput)
	}
	if ok, err := s.runExists(ctx, r.ID); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("begin run %s: %w", r.ID, internalerr.ErrDuplicate)
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO runs (id, program, max_time, started_at)
VALUES (?, ?, ?, ?);
`, r.ID, r.Program, r.MaxTime, formatTime(r.StartedAt))
	return err
}

// EndRun fills in how a run stopped
func (s *sqliteStore) EndRun(ctx context.Context, id string, end history.End) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE runs SET finished_at = ?, final_time = ?, error = ?
WHERE id = ?;
`, formatTime(end.FinishedAt), end.FinalTime, end.Error, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("end run %s: %w", id, internalerr.ErrNotFound)
	}
	return nil
}

// Runs lists every run, oldest first
func (s *sqliteStore) Runs(ctx context.Context) ([]history.Run, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, program, max_time, started_at,
	COALESCE(finished_at, ''), COALESCE(final_time, 0), COALESCE(error, '')
FROM runs
ORDER BY started_at, id;
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []history.Run
	for rows.Next() {
		var r history.Run
		var started, finished string
		var program sql.NullString
		if err := rows.Scan(&r.ID, &program, &r.MaxTime, &started, &finished, &r.FinalTime, &r.Error); err != nil {
			return nil, err
		}
		r.Program = program.String
		if r.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		if r.FinishedAt, err = parseTime(finished); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RecordCycle upserts the cycle for (run, time)
func (s *sqliteStore) RecordCycle(ctx context.Context, c history.Cycle) error {
	if ok, err := s.runExists(ctx, c.RunID); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("record cycle %d: run %s: %w", c.Time, c.RunID, internalerr.ErrNotFound)
	}

	actions, err := json.Marshal(nonNil(c.Actions))
	if err != nil {
		return err
	}
	observations, err := json.Marshal(nonNil(c.Observations))
	if err != nil {
		return err
	}
	fluents, err := json.Marshal(nonNil(c.Fluents))
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO cycles (run_id, time, actions, observations, fluents, goals, duration_ns)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(run_id, time) DO UPDATE SET
	actions=excluded.actions,
	observations=excluded.observations,
	fluents=excluded.fluents,
	goals=excluded.goals,
	duration_ns=excluded.duration_ns;
`, c.RunID, c.Time, string(actions), string(observations), string(fluents), c.Goals, int64(c.Duration))
	return err
}

// Cycles returns the cycles of a run in time order
func (s *sqliteStore) Cycles(ctx context.Context, runID string) ([]history.Cycle, error) {
	if ok, err := s.runExists(ctx, runID); err != nil {
		return nil, err
	} else if !ok {
		return nil, fmt.Errorf("cycles of run %s: %w", runID, internalerr.ErrNotFound)
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT time, actions, observations, fluents, goals, duration_ns
FROM cycles
WHERE run_id = ?
ORDER BY time;
`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []history.Cycle
	for rows.Next() {
		c := history.Cycle{RunID: runID}
		var actions, observations, fluents string
		var dur int64
		if err := rows.Scan(&c.Time, &actions, &observations, &fluents, &c.Goals, &dur); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(actions), &c.Actions); err != nil {
			return nil, fmt.Errorf("decode actions of cycle %d: %w", c.Time, err)
		}
		if err := json.Unmarshal([]byte(observations), &c.Observations); err != nil {
			return nil, fmt.Errorf("decode observations of cycle %d: %w", c.Time, err)
		}
		if err := json.Unmarshal([]byte(fluents), &c.Fluents); err != nil {
			return nil, fmt.Errorf("decode fluents of cycle %d: %w", c.Time, err)
		}
		c.Duration = time.Duration(dur)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *sqliteStore) runExists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM runs WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

func nonNil(xs []string) []string {
	if xs == nil {
		return []string{}
	}
	return xs
}
