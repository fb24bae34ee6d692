package pathutil

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"
)

func TestValidatePath(t *testing.T) {
	allowedDir := t.TempDir()
	otherDir := t.TempDir()
	runDir := filepath.Join(allowedDir, "wator_output_batch_00000", "run_00000")
	if err := os.MkdirAll(runDir, 0700); err != nil {
		t.Fatalf("failed to create run dir: %v", err)
	}

	tests := []struct {
		name        string
		path        string
		allowedDirs []string
		wantErr     error
		errContains string
	}{
		{"file in allowed dir", filepath.Join(allowedDir, "automation.yaml"), []string{allowedDir}, nil, ""},
		{"file in run dir", filepath.Join(runDir, "combination.xml"), []string{allowedDir}, nil, ""},
		{"not yet created batch", filepath.Join(allowedDir, "wator_output_batch_00001", "run_00000"), []string{allowedDir}, nil, ""},
		{"the allowed dir itself", allowedDir, []string{allowedDir}, nil, ""},
		{"redundant separators", allowedDir + string(os.PathSeparator) + string(os.PathSeparator) + "wator.yaml", []string{allowedDir}, nil, ""},
		{"second allowed dir", filepath.Join(otherDir, "wator.yaml"), []string{allowedDir, otherDir}, nil, ""},
		{"dot-dot traversal", filepath.Join(allowedDir, "..", "etc", "passwd"), []string{allowedDir}, ErrOutsideAllowed, ""},
		{"embedded dot-dot traversal", allowedDir + "/wator_output_batch_00000/../../etc/passwd", []string{allowedDir}, ErrOutsideAllowed, ""},
		{"sibling with shared prefix", allowedDir + "-evil/wator.yaml", []string{allowedDir}, ErrOutsideAllowed, ""},
		{"outside", filepath.Join(otherDir, "wator.yaml"), []string{allowedDir}, ErrOutsideAllowed, ""},
		{"null byte", filepath.Join(allowedDir, "wa\x00tor.yaml"), []string{allowedDir}, ErrNullByte, ""},
		{"empty", "", []string{allowedDir}, ErrEmptyPath, ""},
		{"no allowed dirs", filepath.Join(allowedDir, "wator.yaml"), nil, nil, "no allowed directories"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.path, tt.allowedDirs)
			switch {
			case tt.errContains != "":
				if err == nil || !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("ValidatePath() error = %v, want error containing %q", err, tt.errContains)
				}
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("ValidatePath() error = %v, want %v", err, tt.wantErr)
				}
			case err != nil:
				t.Errorf("ValidatePath() unexpected error: %v", err)
			}
		})
	}
}

func TestValidatePath_Symlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink test not supported on Windows")
	}

	allowedDir := t.TempDir()
	outsideDir := t.TempDir()
	realDir := filepath.Join(allowedDir, "real")
	if err := os.MkdirAll(realDir, 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(outsideDir, filepath.Join(allowedDir, "escape")); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(realDir, filepath.Join(allowedDir, "link")); err != nil {
		t.Fatal(err)
	}

	err := ValidatePath(filepath.Join(allowedDir, "escape", "runs.db"), []string{allowedDir})
	if !errors.Is(err, ErrOutsideAllowed) {
		t.Errorf("symlink out of the allowed dir: error = %v, want ErrOutsideAllowed", err)
	}
	if err := ValidatePath(filepath.Join(allowedDir, "link", "runs.db"), []string{allowedDir}); err != nil {
		t.Errorf("symlink inside the allowed dir rejected: %v", err)
	}
	// Missing directories below a symlink are still resolved through it
	err = ValidatePath(filepath.Join(allowedDir, "escape", "new", "deeper", "runs.db"), []string{allowedDir})
	if !errors.Is(err, ErrOutsideAllowed) {
		t.Errorf("missing tail below escaping symlink: error = %v, want ErrOutsideAllowed", err)
	}
}

func TestRedactPath(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"/home/user/.simsweep/config.yaml", ".../.simsweep/config.yaml"},
		{"/a/b/c/d/e.txt", ".../d/e.txt"},
		{"/file.txt", "file.txt"},
		{"dir/file.txt", ".../dir/file.txt"},
		{"file.txt", "file.txt"},
		{"/home/user/.simsweep/", ".../user/.simsweep"},
	}
	for _, tt := range tests {
		if got := RedactPath(tt.input); got != tt.want {
			t.Errorf("RedactPath(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestAllowedSweepDirs(t *testing.T) {
	root := t.TempDir()
	home := t.TempDir()
	t.Setenv("HOME", home)
	global := filepath.Join(home, ".simsweep")
	absOut := t.TempDir()

	tests := []struct {
		name      string
		outputDir string
		want      []string
	}{
		{"no output dir", "", []string{root, global}},
		{"relative output dir", "sweeps", []string{root, filepath.Join(root, "sweeps"), global}},
		{"absolute output dir", absOut, []string{root, absOut, global}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dirs, err := AllowedSweepDirs(root, tt.outputDir)
			if err != nil {
				t.Fatalf("AllowedSweepDirs() error = %v", err)
			}
			if !slices.Equal(dirs, tt.want) {
				t.Errorf("AllowedSweepDirs() = %v, want %v", dirs, tt.want)
			}
		})
	}
}

func TestSandbox_Resolve(t *testing.T) {
	root := t.TempDir()
	t.Setenv("HOME", t.TempDir())
	absOut := t.TempDir()

	sb, err := NewSandbox(root, absOut)
	if err != nil {
		t.Fatalf("NewSandbox() error = %v", err)
	}
	if sb.Root() != root {
		t.Errorf("Root() = %q, want %q", sb.Root(), root)
	}

	got, err := sb.Resolve("automation.yaml")
	if err != nil {
		t.Fatalf("Resolve(relative) error = %v", err)
	}
	if want := filepath.Join(root, "automation.yaml"); got != want {
		t.Errorf("Resolve(relative) = %q, want %q", got, want)
	}

	batch := filepath.Join(absOut, "wator_output_batch_00002")
	if got, err := sb.Resolve(batch); err != nil || got != batch {
		t.Errorf("Resolve(output batch) = %q, %v", got, err)
	}

	if _, err := sb.Resolve("../escape.yaml"); !errors.Is(err, ErrOutsideAllowed) {
		t.Errorf("Resolve(../escape.yaml) error = %v, want ErrOutsideAllowed", err)
	}
	if _, err := sb.Resolve(""); !errors.Is(err, ErrEmptyPath) {
		t.Errorf("Resolve(\"\") error = %v, want ErrEmptyPath", err)
	}
}
