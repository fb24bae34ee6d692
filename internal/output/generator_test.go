package output

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nvandessel/simsweep/internal/constants"
)

func take(g *Generator, n int) []string {
	var out []string
	for p := range g.Paths() {
		out = append(out, p)
		if len(out) == n {
			break
		}
	}
	return out
}

func mkdirs(t *testing.T, paths ...string) {
	t.Helper()
	for _, p := range paths {
		if err := os.MkdirAll(p, 0755); err != nil {
			t.Fatal(err)
		}
	}
}

func TestGenerator_FreshBatch(t *testing.T) {
	parent := t.TempDir()
	g, err := NewGenerator(parent, "wator", constants.ModeBatch)
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}

	want := []string{
		filepath.Join(parent, "wator_output_batch_00000", "run_00000"),
		filepath.Join(parent, "wator_output_batch_00000", "run_00001"),
		filepath.Join(parent, "wator_output_batch_00000", "run_00002"),
	}
	if diff := cmp.Diff(want, take(g, 3)); diff != "" {
		t.Errorf("paths mismatch (-want +got):\n%s", diff)
	}
	if g.BatchDir() != filepath.Join(parent, "wator_output_batch_00000") {
		t.Errorf("BatchDir = %q", g.BatchDir())
	}
}

func TestGenerator_NextBatchIndex(t *testing.T) {
	parent := t.TempDir()
	mkdirs(t,
		filepath.Join(parent, "wator_output_batch_00000"),
		filepath.Join(parent, "wator_output_batch_00003"),
		filepath.Join(parent, "wator_output_batch_notes"),
		filepath.Join(parent, "other_output_batch_00009"),
	)

	g, err := NewGenerator(parent, "wator", constants.ModeBatch)
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	if g.BatchIndex() != 4 {
		t.Errorf("BatchIndex = %d, want 4", g.BatchIndex())
	}
	got := take(g, 1)[0]
	if want := filepath.Join(parent, "wator_output_batch_00004", "run_00000"); got != want {
		t.Errorf("first path = %q, want %q", got, want)
	}
}

func TestGenerator_SingleModeResumes(t *testing.T) {
	parent := t.TempDir()
	outer := filepath.Join(parent, "wator_output_single")
	mkdirs(t,
		filepath.Join(outer, "run_00000"),
		filepath.Join(outer, "run_00001"),
		filepath.Join(outer, "run_00006"),
		filepath.Join(outer, "run_x"),
	)

	g, err := NewGenerator(parent, "wator", constants.ModeSingle)
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	want := []string{
		filepath.Join(outer, "run_00007"),
		filepath.Join(outer, "run_00008"),
	}
	if diff := cmp.Diff(want, take(g, 2)); diff != "" {
		t.Errorf("paths mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerator_PinnedBatchContinues(t *testing.T) {
	parent := t.TempDir()
	batch := filepath.Join(parent, "wator_output_batch_00002")
	mkdirs(t, filepath.Join(batch, "run_00000"), filepath.Join(batch, "run_00001"))

	g, err := NewGenerator(parent, "wator", constants.ModeBatch, WithBatchIndex(2))
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	if got, want := take(g, 1)[0], filepath.Join(batch, "run_00002"); got != want {
		t.Errorf("first path = %q, want %q", got, want)
	}
}

func TestGenerator_UniqueAcrossCalls(t *testing.T) {
	g, err := NewGenerator(t.TempDir(), "wator", constants.ModeBatch)
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	seen := make(map[string]bool)
	for range 3 {
		for _, p := range take(g, 50) {
			if seen[p] {
				t.Fatalf("duplicate path %q", p)
			}
			seen[p] = true
		}
	}
	if len(seen) != 150 {
		t.Errorf("got %d unique paths, want 150", len(seen))
	}
}

func TestGenerator_IndexIncrementsWithoutUse(t *testing.T) {
	g, err := NewGenerator(t.TempDir(), "wator", constants.ModeSingle)
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	_, first := g.Next()
	_, second := g.Next()
	if first != 0 || second != 1 {
		t.Errorf("indices = %d, %d, want 0, 1", first, second)
	}
}

func TestNewGenerator_Invalid(t *testing.T) {
	dir := t.TempDir()
	if _, err := NewGenerator(dir, "", constants.ModeBatch); err == nil {
		t.Error("expected error for empty kind")
	}
	if _, err := NewGenerator(dir, "wator", constants.Mode("many")); err == nil {
		t.Error("expected error for invalid mode")
	}
	if _, err := NewGenerator(dir, "wator", constants.ModeBatch, WithBatchIndex(-1)); err == nil {
		t.Error("expected error for negative batch index")
	}
}

func TestParseIndex(t *testing.T) {
	tests := []struct {
		name   string
		want   int
		wantOK bool
	}{
		{"run_00042", 42, true},
		{"run_123456", 123456, true},
		{"run_", 0, false},
		{"run_12a", 0, false},
		{"run_+1", 0, false},
		{"batch_00001", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseIndex(tt.name, "run_")
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseIndex(%q) = %d, %v, want %d, %v", tt.name, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestFormatIndex(t *testing.T) {
	if got := FormatIndex(7); got != "00007" {
		t.Errorf("FormatIndex(7) = %q", got)
	}
	if got := FormatIndex(123456); got != "123456" {
		t.Errorf("FormatIndex(123456) = %q", got)
	}
}
