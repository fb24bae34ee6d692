package ledger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/nvandessel/simsweep/internal/constants"
)

func TestMigrate_RecordsVersion(t *testing.T) {
	l := openTestLedger(t)

	var version int
	if err := l.db.QueryRow(`PRAGMA user_version`).Scan(&version); err != nil {
		t.Fatal(err)
	}
	if version != schemaVersion {
		t.Errorf("user_version = %d, want %d", version, schemaVersion)
	}

	// Migrating an up-to-date ledger only checks it
	if err := migrate(context.Background(), l.db); err != nil {
		t.Errorf("migrate on current schema: %v", err)
	}
}

func TestMigrate_RejectsNewerSchema(t *testing.T) {
	dir := t.TempDir()
	l, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := l.db.Exec(`PRAGMA user_version = 99`); err != nil {
		t.Fatal(err)
	}
	l.Close()

	_, err = OpenExisting(dir)
	if !errors.Is(err, ErrNewerSchema) {
		t.Errorf("OpenExisting error = %v, want ErrNewerSchema", err)
	}
}

func TestLedger_RejectsUnknownStatus(t *testing.T) {
	l := openTestLedger(t)
	_, err := l.db.Exec(`INSERT INTO runs (run, path, combination, status, started_at) VALUES (0, 'p', 'c', 'lost', 'now')`)
	if err == nil {
		t.Error("expected the status check constraint to reject 'lost'")
	}
}

func TestOpenExisting_LeavesUnversionedFileUntouched(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, constants.LedgerFile)
	if err := os.WriteFile(dbPath, nil, 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := OpenExisting(dir); !errors.Is(err, ErrNotLedger) {
		t.Fatalf("OpenExisting error = %v, want ErrNotLedger", err)
	}

	info, err := os.Stat(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 0 {
		t.Errorf("runs.db grew to %d bytes; inspecting must not create the schema", info.Size())
	}
	if _, err := os.Stat(dbPath + "-wal"); err == nil {
		t.Error("inspecting should not switch the journal to WAL")
	}
}
