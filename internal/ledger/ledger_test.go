package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestLedger_StartFinishRoundTrip(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t)

	if err := l.Start(ctx, Run{Number: 0, Path: "/out/run_00000", Combination: "wator.seed=1"}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := l.Start(ctx, Run{Number: 1, Path: "/out/run_00001", Combination: "wator.seed=2"}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := l.Finish(ctx, 0, StatusOK, nil, 12.5, 25); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if err := l.Finish(ctx, 1, StatusFailed, errors.New("exploded"), 3, 6); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	runs, err := l.Runs(ctx)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("len(runs) = %d, want 2", len(runs))
	}

	ok := runs[0]
	if ok.Status != StatusOK || ok.SimTime != 12.5 || ok.Steps != 25 || ok.Error != "" {
		t.Errorf("run 0 = %+v", ok)
	}
	if ok.StartedAt.IsZero() || ok.FinishedAt.IsZero() {
		t.Errorf("run 0 timestamps not recorded: %+v", ok)
	}
	failed := runs[1]
	if failed.Status != StatusFailed || failed.Error != "exploded" || failed.Combination != "wator.seed=2" {
		t.Errorf("run 1 = %+v", failed)
	}

	counts, err := l.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if counts[StatusOK] != 1 || counts[StatusFailed] != 1 || counts[StatusRunning] != 0 {
		t.Errorf("Counts = %v", counts)
	}
}

func TestLedger_FinishUnknownRun(t *testing.T) {
	l := openTestLedger(t)
	if err := l.Finish(context.Background(), 42, StatusOK, nil, 0, 0); err == nil {
		t.Error("expected error finishing a run that was never started")
	}
}

func TestLedger_RestartReplacesRow(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t)

	if err := l.Start(ctx, Run{Number: 3, Path: "a", Combination: "x"}); err != nil {
		t.Fatal(err)
	}
	if err := l.Finish(ctx, 3, StatusFailed, errors.New("first try"), 1, 1); err != nil {
		t.Fatal(err)
	}
	if err := l.Start(ctx, Run{Number: 3, Path: "a", Combination: "x"}); err != nil {
		t.Fatal(err)
	}

	runs, err := l.Runs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Status != StatusRunning || runs[0].Error != "" {
		t.Errorf("runs = %+v", runs)
	}
}

func TestLedger_ConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t)

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Go(func() {
			if err := l.Start(ctx, Run{Number: i, Path: "p", Combination: "c"}); err != nil {
				t.Errorf("Start(%d): %v", i, err)
				return
			}
			if err := l.Finish(ctx, i, StatusOK, nil, 1, 1); err != nil {
				t.Errorf("Finish(%d): %v", i, err)
			}
		})
	}
	wg.Wait()

	counts, err := l.Counts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts[StatusOK] != 16 {
		t.Errorf("ok runs = %d, want 16", counts[StatusOK])
	}
}

func TestLedger_Reopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	l, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Start(ctx, Run{Number: 0, Path: "p", Combination: "c"}); err != nil {
		t.Fatal(err)
	}
	l.Close()

	again, err := OpenExisting(dir)
	if err != nil {
		t.Fatalf("OpenExisting: %v", err)
	}
	defer again.Close()
	runs, err := again.Runs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Errorf("len(runs) = %d, want 1", len(runs))
	}
	if again.Path() != filepath.Join(dir, "runs.db") {
		t.Errorf("Path = %q", again.Path())
	}
}

func TestOpenExisting_Missing(t *testing.T) {
	if _, err := OpenExisting(t.TempDir()); !errors.Is(err, ErrNoLedger) {
		t.Errorf("OpenExisting on empty dir = %v, want ErrNoLedger", err)
	}
}
