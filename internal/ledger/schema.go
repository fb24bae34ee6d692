package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// schemaVersion is stored in PRAGMA user_version.
const schemaVersion = 1

// ErrNewerSchema is returned for a ledger written by a newer simsweep.
var ErrNewerSchema = errors.New("ledger schema is newer than this build supports")

const runsTable = `
CREATE TABLE IF NOT EXISTS runs (
    run INTEGER PRIMARY KEY,
    path TEXT NOT NULL,
    combination TEXT NOT NULL,
    status TEXT NOT NULL CHECK (status IN ('running', 'ok', 'failed')),
    error TEXT,
    sim_time REAL DEFAULT 0,
    steps INTEGER DEFAULT 0,
    started_at TEXT NOT NULL,
    finished_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
`

// ErrNotLedger is returned by OpenExisting for a database without a
// ledger schema, such as an empty or foreign file.
var ErrNotLedger = errors.New("not a run ledger")

func userVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&version); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return version, nil
}

// verify checks an existing ledger without writing to it.
func verify(ctx context.Context, db *sql.DB) error {
	version, err := userVersion(ctx, db)
	if err != nil {
		return err
	}
	switch {
	case version == 0:
		return ErrNotLedger
	case version > schemaVersion:
		return fmt.Errorf("%w (version %d, supported %d)", ErrNewerSchema, version, schemaVersion)
	}
	return checkIntegrity(ctx, db)
}

// migrate brings a fresh database to schemaVersion and checks that an
// existing one is readable.
func migrate(ctx context.Context, db *sql.DB) error {
	version, err := userVersion(ctx, db)
	if err != nil {
		return err
	}

	switch {
	case version > schemaVersion:
		return fmt.Errorf("%w (version %d, supported %d)", ErrNewerSchema, version, schemaVersion)
	case version == schemaVersion:
		return checkIntegrity(ctx, db)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning migration: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, runsTable); err != nil {
		return fmt.Errorf("creating runs table: %w", err)
	}
	// PRAGMA does not accept bound parameters.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d`, schemaVersion)); err != nil {
		return fmt.Errorf("recording schema version: %w", err)
	}
	return tx.Commit()
}

// checkIntegrity runs SQLite's quick_check over the ledger.
func checkIntegrity(ctx context.Context, db *sql.DB) error {
	var result string
	if err := db.QueryRowContext(ctx, `PRAGMA quick_check`).Scan(&result); err != nil {
		return fmt.Errorf("running quick_check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("ledger is corrupt: %s", result)
	}
	return nil
}
