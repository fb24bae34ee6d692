package provenance

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/simsweep/internal/automation"
	"github.com/nvandessel/simsweep/internal/param"
	"gopkg.in/yaml.v3"
)

type testConfig struct {
	Seed  int     `yaml:"seed"`
	Scale float64 `yaml:"scale"`
}

func (c *testConfig) Kind() string { return "cfg" }
func (c *testConfig) Title() string { return "" }
func (c *testConfig) bindings() param.Bindings {
	return param.Bindings{
		param.IntField("seed", &c.Seed, true),
		param.FloatField("scale", &c.Scale, true),
	}
}
func (c *testConfig) Fields() []param.Field { return c.bindings().Fields() }
func (c *testConfig) Get(f string) (any, error) { return c.bindings().Get(c.Kind(), f) }
func (c *testConfig) Set(f string, v any) error { return c.bindings().Set(c.Kind(), f, v) }
func (c *testConfig) Clone() param.Node { cp := *c; return &cp }

var seedLoc = param.MustLocator(param.Identifier{Kind: "cfg", Field: "seed"})

func TestWriter_Record(t *testing.T) {
	dir := t.TempDir()
	combo, err := automation.NewCombination(automation.Entry{Locator: seedLoc, Value: 9})
	if err != nil {
		t.Fatal(err)
	}
	applied, err := automation.ApplyOne(combo, &testConfig{Seed: 1, Scale: 2.5})
	if err != nil {
		t.Fatal(err)
	}

	if err := NewWriter("cfg.yaml").Record(dir, applied); err != nil {
		t.Fatalf("Record: %v", err)
	}

	back, err := ReadCombination(dir)
	if err != nil {
		t.Fatalf("ReadCombination: %v", err)
	}
	if !back.Equal(combo) {
		t.Errorf("combination = %s, want %s", back, combo)
	}

	data, err := os.ReadFile(filepath.Join(dir, "cfg.yaml"))
	if err != nil {
		t.Fatalf("reading config snapshot: %v", err)
	}
	var got testConfig
	if err := yaml.Unmarshal(data, &got); err != nil {
		t.Fatalf("parsing config snapshot: %v", err)
	}
	if got != (testConfig{Seed: 9, Scale: 2.5}) {
		t.Errorf("snapshot = %+v, want seed 9 scale 2.5", got)
	}
}

func TestWriter_RecordMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "absent")
	applied := automation.Applied{Config: &testConfig{}}
	err := NewWriter("cfg.yaml").Record(dir, applied)
	if err == nil {
		t.Fatal("expected error writing into a missing directory")
	}
	if !strings.Contains(err.Error(), "combination.xml") || !strings.Contains(err.Error(), "cfg.yaml") {
		t.Errorf("error should name both files: %v", err)
	}
}

func TestWriter_NoConfigFile(t *testing.T) {
	dir := t.TempDir()
	if err := NewWriter("").Record(dir, automation.Applied{Config: &testConfig{}}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "combination.xml" {
		t.Errorf("dir entries = %v, want only combination.xml", entries)
	}
}

func TestReadCombination_Missing(t *testing.T) {
	if _, err := ReadCombination(t.TempDir()); !os.IsNotExist(err) {
		t.Errorf("ReadCombination on empty dir = %v, want not-exist", err)
	}
}
