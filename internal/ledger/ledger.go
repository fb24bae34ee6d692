// Package ledger records the outcome of every run of a batch in a SQLite
// database kept in the batch directory.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/nvandessel/simsweep/internal/constants"
	_ "modernc.org/sqlite" // SQLite driver
)

// ErrNoLedger is returned by OpenExisting when the directory has no ledger.
var ErrNoLedger = errors.New("no run ledger")

// Status is the lifecycle state of a run.
type Status string

const (
	// StatusRunning marks a run that was submitted and has not finished.
	StatusRunning Status = "running"

	// StatusOK marks a run whose lifecycle completed without error.
	StatusOK Status = "ok"

	// StatusFailed marks a run that returned an error or panicked.
	StatusFailed Status = "failed"
)

// Run is one row of the ledger.
type Run struct {
	Number      int       `json:"run"`
	Path        string    `json:"path"`
	Combination string    `json:"combination"`
	Status      Status    `json:"status"`
	Error       string    `json:"error,omitempty"`
	SimTime     float64   `json:"sim_time"`
	Steps       int       `json:"steps"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at,omitzero"`
}

// Ledger is a run ledger backed by SQLite. It is safe for concurrent use.
type Ledger struct {
	mu     sync.Mutex
	db     *sql.DB
	dbPath string
}

// Open opens or creates dir/runs.db, creating dir when needed.
func Open(dir string) (*Ledger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}
	return open(filepath.Join(dir, constants.LedgerFile), true)
}

// OpenExisting opens the ledger of dir for inspection and fails with
// ErrNoLedger when the directory holds none. It never creates or migrates
// the schema.
func OpenExisting(dir string) (*Ledger, error) {
	dbPath := filepath.Join(dir, constants.LedgerFile)
	if _, err := os.Stat(dbPath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w in %s", ErrNoLedger, dir)
		}
		return nil, fmt.Errorf("failed to stat ledger: %w", err)
	}
	return open(dbPath, false)
}

// open connects to dbPath. With create set the journal is switched to WAL
// and the schema is brought up to date; otherwise the file is only checked.
func open(dbPath string, create bool) (*Ledger, error) {
	dsn := dbPath + "?_pragma=busy_timeout(5000)"
	if create {
		dsn += "&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite works best with single writer

	check := verify
	if create {
		check = migrate
	}
	if err := check(context.Background(), db); err != nil {
		db.Close()
		if create {
			return nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
		return nil, fmt.Errorf("%s: %w", dbPath, err)
	}
	return &Ledger{db: db, dbPath: dbPath}, nil
}

// Path returns the database file path.
func (l *Ledger) Path() string {
	return l.dbPath
}

// Start records a run as running. Re-recording an existing run number
// replaces the earlier row.
func (l *Ledger) Start(ctx context.Context, r Run) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO runs (run, path, combination, status, started_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run) DO UPDATE SET
			path = excluded.path,
			combination = excluded.combination,
			status = excluded.status,
			error = NULL,
			sim_time = 0,
			steps = 0,
			started_at = excluded.started_at,
			finished_at = NULL`,
		r.Number, r.Path, r.Combination, string(StatusRunning), formatTime(r.StartedAt))
	if err != nil {
		return fmt.Errorf("failed to record run %d start: %w", r.Number, err)
	}
	return nil
}

// Finish records the outcome of a started run.
func (l *Ledger) Finish(ctx context.Context, number int, status Status, runErr error, simTime float64, steps int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var errText sql.NullString
	if runErr != nil {
		errText = sql.NullString{String: runErr.Error(), Valid: true}
	}
	res, err := l.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, error = ?, sim_time = ?, steps = ?, finished_at = ?
		WHERE run = ?`,
		string(status), errText, simTime, steps, formatTime(time.Now()), number)
	if err != nil {
		return fmt.Errorf("failed to record run %d finish: %w", number, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %d was never started", number)
	}
	return nil
}

// Runs returns every run ordered by run number.
func (l *Ledger) Runs(ctx context.Context) ([]Run, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rows, err := l.db.QueryContext(ctx, `
		SELECT run, path, combination, status, error, sim_time, steps, started_at, finished_at
		FROM runs ORDER BY run`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r        Run
			status   string
			errText  sql.NullString
			started  string
			finished sql.NullString
		)
		if err := rows.Scan(&r.Number, &r.Path, &r.Combination, &status, &errText,
			&r.SimTime, &r.Steps, &started, &finished); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.Status = Status(status)
		r.Error = errText.String
		r.StartedAt = parseTime(started)
		if finished.Valid {
			r.FinishedAt = parseTime(finished.String)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Counts returns the number of runs per status.
func (l *Ledger) Counts(ctx context.Context) (map[Status]int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rows, err := l.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM runs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count runs: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan run count: %w", err)
		}
		counts[Status(status)] = n
	}
	return counts, rows.Err()
}

// Close closes the database.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
