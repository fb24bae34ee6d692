// Package simulation keeps the registry of simulation kinds a sweep can
// run. A kind bundles a configuration schema with a factory for reusable
// simulation instances.
package simulation

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/nvandessel/simsweep/internal/automation"
	"github.com/nvandessel/simsweep/internal/looper"
	"github.com/nvandessel/simsweep/internal/param"
	"github.com/nvandessel/simsweep/internal/simulation/wator"
)

var (
	// ErrUnknownKind is returned by Lookup for unregistered kinds.
	ErrUnknownKind = errors.New("unknown simulation kind")

	// ErrDuplicateKind is returned when a kind name is registered twice.
	ErrDuplicateKind = errors.New("simulation kind already registered")
)

// Kind describes one simulation kind.
type Kind struct {
	// Name is the root node kind of the configuration tree and the prefix
	// of output directories.
	Name        string
	Description string

	// ConfigFile is the conventional file name of the default configuration.
	ConfigFile string

	// DefaultConfig returns the built-in default configuration.
	DefaultConfig func() param.Node

	// LoadConfig reads a configuration file. A missing file yields the
	// built-in default.
	LoadConfig func(path string) (param.Node, error)

	// New creates an unbound simulation instance.
	New looper.Factory

	// SampleAutomation returns example definitions for `simsweep init`.
	SampleAutomation func() []automation.Definition
}

// Defaults resolves the default configuration for a run. An explicit path
// must exist; relative paths are taken against dir. Without one the kind's
// conventional file in dir is used when present, and the built-in default
// otherwise. The returned path is empty when the built-in default is used.
func (k Kind) Defaults(dir, path string) (param.Node, string, error) {
	if path == "" {
		path = filepath.Join(dir, k.ConfigFile)
	} else {
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		if _, err := os.Stat(path); err != nil {
			return nil, "", fmt.Errorf("default configuration: %w", err)
		}
	}
	cfg, err := k.LoadConfig(path)
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(path); err != nil {
		path = ""
	}
	return cfg, path, nil
}

// Registry maps kind names to kinds.
type Registry struct {
	mu    sync.RWMutex
	kinds map[string]Kind
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{kinds: make(map[string]Kind)}
}

// Register adds a kind. Names must be unique and non-empty, and a kind
// must provide its configuration and factory functions.
func (r *Registry) Register(k Kind) error {
	switch {
	case strings.TrimSpace(k.Name) == "":
		return errors.New("simulation kind has no name")
	case k.DefaultConfig == nil || k.LoadConfig == nil || k.New == nil:
		return fmt.Errorf("simulation kind %q is incomplete", k.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.kinds[k.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateKind, k.Name)
	}
	r.kinds[k.Name] = k
	return nil
}

// Lookup returns the kind registered under name.
func (r *Registry) Lookup(name string) (Kind, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.kinds[name]
	if !ok {
		return Kind{}, fmt.Errorf("%w: %q (available: %s)", ErrUnknownKind, name, strings.Join(r.names(), ", "))
	}
	return k, nil
}

// Kinds returns every registered kind ordered by name.
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Kind, 0, len(r.kinds))
	for _, name := range r.names() {
		result = append(result, r.kinds[name])
	}
	return result
}

func (r *Registry) names() []string {
	names := make([]string, 0, len(r.kinds))
	for name := range r.kinds {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Default returns a registry holding the built-in kinds.
func Default() *Registry {
	r := NewRegistry()
	if err := r.Register(Wator()); err != nil {
		panic(err)
	}
	return r
}

// Wator describes the built-in predator/prey kind.
func Wator() Kind {
	return Kind{
		Name:          "wator",
		Description:   "Wa-Tor predator/prey model of fish and sharks on a toroidal grid",
		ConfigFile:    wator.ConfigFile,
		DefaultConfig: func() param.Node { return wator.DefaultConfig() },
		LoadConfig: func(path string) (param.Node, error) {
			cfg, err := wator.LoadConfig(path)
			if err != nil {
				return nil, err
			}
			return cfg, nil
		},
		New: func() (looper.Simulation, error) {
			return wator.New(), nil
		},
		SampleAutomation: wator.SampleAutomation,
	}
}
