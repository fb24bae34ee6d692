package simulation

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/nvandessel/simsweep/internal/simulation/wator"
)

func TestDefault_HasWator(t *testing.T) {
	r := Default()
	k, err := r.Lookup("wator")
	if err != nil {
		t.Fatalf("Lookup(wator) error = %v", err)
	}
	if k.ConfigFile != wator.ConfigFile {
		t.Errorf("ConfigFile = %q, want %q", k.ConfigFile, wator.ConfigFile)
	}
	if got := k.DefaultConfig().Kind(); got != k.Name {
		t.Errorf("DefaultConfig().Kind() = %q, want %q", got, k.Name)
	}
	sim, err := k.New()
	if err != nil || sim == nil {
		t.Fatalf("New() = %v, %v", sim, err)
	}
}

func TestLookup_Unknown(t *testing.T) {
	_, err := Default().Lookup("lattice")
	if !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("Lookup(lattice) = %v, want ErrUnknownKind", err)
	}
}

func TestRegister(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(Wator()); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register(Wator()); !errors.Is(err, ErrDuplicateKind) {
		t.Errorf("second Register() = %v, want ErrDuplicateKind", err)
	}
	if err := r.Register(Kind{}); err == nil {
		t.Error("Register(Kind{}) = nil, want error")
	}
	incomplete := Wator()
	incomplete.Name = "other"
	incomplete.New = nil
	if err := r.Register(incomplete); err == nil {
		t.Error("Register(incomplete) = nil, want error")
	}
}

func TestKinds_SortedByName(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "wator"} {
		k := Wator()
		k.Name = name
		if err := r.Register(k); err != nil {
			t.Fatal(err)
		}
	}
	var names []string
	for _, k := range r.Kinds() {
		names = append(names, k.Name)
	}
	want := []string{"alpha", "wator", "zeta"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("Kinds() = %v, want %v", names, want)
		}
	}
}

func TestDefaults(t *testing.T) {
	k := Wator()

	t.Run("built-in when no file", func(t *testing.T) {
		t.Chdir(t.TempDir())
		cfg, used, err := k.Defaults("", "")
		if err != nil {
			t.Fatalf("Defaults() error = %v", err)
		}
		if used != "" {
			t.Errorf("used = %q, want built-in", used)
		}
		if cfg.(*wator.Config).Seed != wator.DefaultConfig().Seed {
			t.Errorf("unexpected config %+v", cfg)
		}
	})

	t.Run("conventional file in working directory", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)
		if err := os.WriteFile(wator.ConfigFile, []byte("seed: 99\n"), 0644); err != nil {
			t.Fatal(err)
		}
		cfg, used, err := k.Defaults("", "")
		if err != nil {
			t.Fatalf("Defaults() error = %v", err)
		}
		if used != wator.ConfigFile {
			t.Errorf("used = %q, want %q", used, wator.ConfigFile)
		}
		if got := cfg.(*wator.Config).Seed; got != 99 {
			t.Errorf("seed = %d, want 99", got)
		}
	})

	t.Run("explicit path must exist", func(t *testing.T) {
		_, _, err := k.Defaults(t.TempDir(), "missing.yaml")
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("Defaults(missing) = %v, want ErrNotExist", err)
		}
	})

	t.Run("conventional file in project directory", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, wator.ConfigFile), []byte("seed: 7\n"), 0644); err != nil {
			t.Fatal(err)
		}
		cfg, used, err := k.Defaults(dir, "")
		if err != nil {
			t.Fatalf("Defaults() error = %v", err)
		}
		if used != filepath.Join(dir, wator.ConfigFile) {
			t.Errorf("used = %q", used)
		}
		if got := cfg.(*wator.Config).Seed; got != 7 {
			t.Errorf("seed = %d, want 7", got)
		}
	})

	t.Run("explicit path relative to project directory", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "custom.yaml"), []byte("seed: 11\n"), 0644); err != nil {
			t.Fatal(err)
		}
		cfg, _, err := k.Defaults(dir, "custom.yaml")
		if err != nil {
			t.Fatalf("Defaults() error = %v", err)
		}
		if got := cfg.(*wator.Config).Seed; got != 11 {
			t.Errorf("seed = %d, want 11", got)
		}
	})
}
