// Package wator implements the Wa-Tor predator/prey model on a toroidal
// grid. Fish move to a free neighbouring cell and breed after breed_time
// chronons. Sharks eat a neighbouring fish when they can, otherwise move,
// breed like fish and die after starve_time chronons without food.
package wator

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"

	"github.com/nvandessel/simsweep/internal/param"
)

// PopulationsFile is the per-run time series written by Finish.
const PopulationsFile = "populations.csv"

var (
	errNotBound   = errors.New("wator: simulation is not bound")
	errNotStarted = errors.New("wator: simulation is not started")
)

type creature uint8

const (
	empty creature = iota
	fish
	shark
)

type cell struct {
	kind creature
	// breed counts chronons since the creature last bred.
	breed int
	// hunger counts chronons since a shark last ate.
	hunger int
	// moved is the tick in which the creature last acted.
	moved int
}

// Sample is the population at the end of one chronon.
type Sample struct {
	Tick   int
	Time   float64
	Fish   int
	Sharks int
}

// Simulation is a reusable Wa-Tor instance. It is not safe for concurrent
// use; each worker owns one.
type Simulation struct {
	cfg *Config
	dir string
	run int

	fishTraits  Species
	sharkTraits Species

	rng     *rand.Rand
	width   int
	height  int
	grid    []cell
	tick    int
	now     float64
	fish    int
	sharks  int
	history []Sample
	started bool
}

// New creates an unbound simulation.
func New() *Simulation {
	return &Simulation{}
}

// Bind attaches a validated configuration and the run's output directory.
func (s *Simulation) Bind(cfg param.Node, outputDir string, run int) error {
	c, ok := cfg.(*Config)
	if !ok {
		return fmt.Errorf("wator: unexpected configuration type %T", cfg)
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("wator: %w", err)
	}
	s.cfg = c
	s.dir = outputDir
	s.run = run
	fishTraits, _ := c.species(Fish)
	sharkTraits, _ := c.species(Shark)
	s.fishTraits, s.sharkTraits = *fishTraits, *sharkTraits
	return nil
}

// Start seeds the grid. The same seed always yields the same run.
func (s *Simulation) Start(ctx context.Context) error {
	if s.cfg == nil {
		return errNotBound
	}
	seed := uint64(s.cfg.Seed)
	s.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	s.width, s.height = s.cfg.World.Width, s.cfg.World.Height

	n := s.width * s.height
	if cap(s.grid) >= n {
		s.grid = s.grid[:n]
		clear(s.grid)
	} else {
		s.grid = make([]cell, n)
	}

	positions := s.rng.Perm(n)
	for _, idx := range positions[:s.fishTraits.Initial] {
		s.grid[idx] = cell{kind: fish, breed: s.rng.IntN(s.fishTraits.BreedTime)}
	}
	for _, idx := range positions[s.fishTraits.Initial : s.fishTraits.Initial+s.sharkTraits.Initial] {
		s.grid[idx] = cell{kind: shark, breed: s.rng.IntN(s.sharkTraits.BreedTime)}
	}

	s.tick, s.now = 0, 0
	s.fish, s.sharks = s.fishTraits.Initial, s.sharkTraits.Initial
	s.history = append(s.history[:0], s.sample())
	s.started = true
	return nil
}

// HasWork is false once either population is extinct.
func (s *Simulation) HasWork() bool {
	return s.started && s.fish > 0 && s.sharks > 0
}

// Time returns the simulated time.
func (s *Simulation) Time() float64 {
	return s.now
}

// Populations returns the current fish and shark counts.
func (s *Simulation) Populations() (fish, sharks int) {
	return s.fish, s.sharks
}

// History returns the samples recorded so far.
func (s *Simulation) History() []Sample {
	return append([]Sample(nil), s.history...)
}

// Step advances one chronon.
func (s *Simulation) Step(ctx context.Context) error {
	if !s.started {
		return errNotStarted
	}
	s.tick++
	for idx := range s.grid {
		c := s.grid[idx]
		if c.kind == empty || c.moved == s.tick {
			continue
		}
		switch c.kind {
		case fish:
			s.moveFish(idx)
		case shark:
			s.moveShark(idx)
		}
	}
	s.now += s.cfg.Dt
	s.history = append(s.history, s.sample())
	return nil
}

func (s *Simulation) moveFish(idx int) {
	c := s.grid[idx]
	c.breed++
	c.moved = s.tick

	target, ok := s.pick(idx, empty)
	if !ok {
		s.grid[idx] = c
		return
	}
	s.relocate(idx, target, c, s.fishTraits.BreedTime)
	if s.grid[idx].kind == fish {
		s.fish++
	}
}

func (s *Simulation) moveShark(idx int) {
	c := s.grid[idx]
	c.breed++
	c.hunger++
	c.moved = s.tick

	target, ate := s.pick(idx, fish)
	if ate {
		c.hunger = 0
		s.fish--
	} else if c.hunger >= s.sharkTraits.StarveTime {
		s.grid[idx] = cell{}
		s.sharks--
		return
	} else {
		var ok bool
		if target, ok = s.pick(idx, empty); !ok {
			s.grid[idx] = c
			return
		}
	}
	s.relocate(idx, target, c, s.sharkTraits.BreedTime)
	if s.grid[idx].kind == shark {
		s.sharks++
	}
}

// relocate moves c from idx to target. A creature due to breed leaves a
// newborn of its kind behind.
func (s *Simulation) relocate(idx, target int, c cell, breedTime int) {
	if c.breed >= breedTime {
		c.breed = 0
		s.grid[idx] = cell{kind: c.kind, moved: s.tick}
	} else {
		s.grid[idx] = cell{}
	}
	s.grid[target] = c
}

// pick chooses a random von Neumann neighbour of idx holding want.
func (s *Simulation) pick(idx int, want creature) (int, bool) {
	x, y := idx%s.width, idx/s.width
	neighbours := [4]int{
		y*s.width + (x+s.width-1)%s.width,
		y*s.width + (x+1)%s.width,
		((y+s.height-1)%s.height)*s.width + x,
		((y+1)%s.height)*s.width + x,
	}
	var candidates [4]int
	n := 0
	for _, nb := range neighbours {
		if nb != idx && s.grid[nb].kind == want {
			candidates[n] = nb
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return candidates[s.rng.IntN(n)], true
}

func (s *Simulation) sample() Sample {
	return Sample{Tick: s.tick, Time: s.now, Fish: s.fish, Sharks: s.sharks}
}

// Finish writes the population time series into the run directory.
func (s *Simulation) Finish() error {
	if !s.started {
		return errNotStarted
	}
	path := filepath.Join(s.dir, PopulationsFile)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", PopulationsFile, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"tick", "time", "fish", "shark"}); err != nil {
		return err
	}
	for _, h := range s.history {
		if err := w.Write([]string{
			strconv.Itoa(h.Tick),
			strconv.FormatFloat(h.Time, 'g', -1, 64),
			strconv.Itoa(h.Fish),
			strconv.Itoa(h.Sharks),
		}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("writing %s: %w", PopulationsFile, err)
	}
	return f.Close()
}

// Reset clears the binding. The grid's storage is kept for the next run.
func (s *Simulation) Reset() {
	s.cfg = nil
	s.dir = ""
	s.run = 0
	s.rng = nil
	s.started = false
	s.tick, s.now = 0, 0
	s.fish, s.sharks = 0, 0
	s.history = s.history[:0]
}
