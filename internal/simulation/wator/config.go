package wator

import (
	"errors"
	"fmt"
	"os"

	"github.com/nvandessel/simsweep/internal/automation"
	"github.com/nvandessel/simsweep/internal/param"
	"gopkg.in/yaml.v3"
)

// ConfigFile is the conventional file name of a wator configuration.
const ConfigFile = "wator.yaml"

// Species titles.
const (
	Fish  = "fish"
	Shark = "shark"
)

// Config is the root of a wator configuration tree.
type Config struct {
	Seed int `yaml:"seed"`
	// Dt is the simulated time of one chronon. It is fixed per configuration
	// and cannot be swept.
	Dt      float64    `yaml:"dt"`
	World   World      `yaml:"world"`
	Species []*Species `yaml:"species"`
}

// World is the toroidal grid.
type World struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Species holds the parameters of fish or sharks. Name is the node title.
type Species struct {
	Name       string `yaml:"name"`
	Initial    int    `yaml:"initial"`
	BreedTime  int    `yaml:"breed_time"`
	StarveTime int    `yaml:"starve_time,omitempty"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Seed: 42,
		Dt:   1,
		World: World{
			Width:  80,
			Height: 60,
		},
		Species: []*Species{
			{Name: Fish, Initial: 900, BreedTime: 3},
			{Name: Shark, Initial: 150, BreedTime: 8, StarveTime: 3},
		},
	}
}

// LoadConfig reads a configuration file. A missing file yields the
// built-in configuration; fields absent from the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading wator config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing wator config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for values a run cannot start with.
func (c *Config) Validate() error {
	if c.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %g", c.Dt)
	}
	if c.World.Width <= 0 || c.World.Height <= 0 {
		return fmt.Errorf("world must be at least 1x1, got %dx%d", c.World.Width, c.World.Height)
	}
	fish, err := c.species(Fish)
	if err != nil {
		return err
	}
	shark, err := c.species(Shark)
	if err != nil {
		return err
	}
	if len(c.Species) != 2 {
		return fmt.Errorf("expected species %q and %q only, got %d species", Fish, Shark, len(c.Species))
	}
	for _, s := range []*Species{fish, shark} {
		if s.Initial < 0 {
			return fmt.Errorf("%s: initial must not be negative, got %d", s.Name, s.Initial)
		}
		if s.BreedTime < 1 {
			return fmt.Errorf("%s: breed_time must be at least 1, got %d", s.Name, s.BreedTime)
		}
	}
	if shark.StarveTime < 1 {
		return fmt.Errorf("shark: starve_time must be at least 1, got %d", shark.StarveTime)
	}
	if cells := c.World.Width * c.World.Height; fish.Initial+shark.Initial > cells {
		return fmt.Errorf("%d fish and %d sharks do not fit in %d cells", fish.Initial, shark.Initial, cells)
	}
	return nil
}

func (c *Config) species(name string) (*Species, error) {
	var found *Species
	for _, s := range c.Species {
		if s == nil || s.Name != name {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("species %q listed twice", name)
		}
		found = s
	}
	if found == nil {
		return nil, fmt.Errorf("species %q missing", name)
	}
	return found, nil
}

// Kind implements param.Node.
func (c *Config) Kind() string { return "wator" }

// Title implements param.Node.
func (c *Config) Title() string { return "" }

func (c *Config) bindings() param.Bindings {
	return param.Bindings{
		param.IntField("seed", &c.Seed, true),
		param.FloatField("dt", &c.Dt, false),
		param.NodeField("world", func() param.Node { return &c.World }),
		param.NodeListField("species", func() []param.Node {
			nodes := make([]param.Node, len(c.Species))
			for i, s := range c.Species {
				nodes[i] = s
			}
			return nodes
		}),
	}
}

// Fields implements param.Node.
func (c *Config) Fields() []param.Field { return c.bindings().Fields() }

// Get implements param.Node.
func (c *Config) Get(field string) (any, error) { return c.bindings().Get(c.Kind(), field) }

// Set implements param.Node.
func (c *Config) Set(field string, v any) error { return c.bindings().Set(c.Kind(), field, v) }

// Clone implements param.Node.
func (c *Config) Clone() param.Node {
	cp := *c
	cp.Species = make([]*Species, len(c.Species))
	for i, s := range c.Species {
		if s != nil {
			dup := *s
			cp.Species[i] = &dup
		}
	}
	return &cp
}

// Kind implements param.Node.
func (w *World) Kind() string { return "world" }

// Title implements param.Node.
func (w *World) Title() string { return "" }

func (w *World) bindings() param.Bindings {
	return param.Bindings{
		param.IntField("width", &w.Width, true),
		param.IntField("height", &w.Height, true),
	}
}

// Fields implements param.Node.
func (w *World) Fields() []param.Field { return w.bindings().Fields() }

// Get implements param.Node.
func (w *World) Get(field string) (any, error) { return w.bindings().Get(w.Kind(), field) }

// Set implements param.Node.
func (w *World) Set(field string, v any) error { return w.bindings().Set(w.Kind(), field, v) }

// Clone implements param.Node.
func (w *World) Clone() param.Node {
	cp := *w
	return &cp
}

// Kind implements param.Node.
func (s *Species) Kind() string { return "species" }

// Title implements param.Node.
func (s *Species) Title() string { return s.Name }

func (s *Species) bindings() param.Bindings {
	return param.Bindings{
		param.IntField("initial", &s.Initial, true),
		param.IntField("breed_time", &s.BreedTime, true),
		param.IntField("starve_time", &s.StarveTime, true),
	}
}

// Fields implements param.Node.
func (s *Species) Fields() []param.Field { return s.bindings().Fields() }

// Get implements param.Node.
func (s *Species) Get(field string) (any, error) { return s.bindings().Get(s.Kind(), field) }

// Set implements param.Node.
func (s *Species) Set(field string, v any) error { return s.bindings().Set(s.Kind(), field, v) }

// Clone implements param.Node.
func (s *Species) Clone() param.Node {
	cp := *s
	return &cp
}

// SampleAutomation returns definitions that sweep the most influential
// parameters over a small grid.
func SampleAutomation() []automation.Definition {
	return []automation.Definition{
		{Locator: mustParse("wator.species/species[shark].starve_time"), Values: []any{2, 3, 4}},
		{Locator: mustParse("wator.species/species[fish].breed_time"), Values: []any{2, 4}},
		{Locator: mustParse("wator.seed"), Values: []any{1, 2}},
	}
}

func mustParse(s string) param.Locator {
	loc, err := param.ParseLocator(s)
	if err != nil {
		panic(err)
	}
	return loc
}
