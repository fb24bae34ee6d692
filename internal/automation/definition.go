// Package automation expands parameter sweep definitions into the Cartesian
// product of their values and applies each resulting combination to a clone
// of a default configuration tree.
package automation

import (
	"errors"
	"fmt"
	"os"

	"github.com/nvandessel/simsweep/internal/param"
	"gopkg.in/yaml.v3"
)

var (
	// ErrDuplicateLocator is returned when two definitions target the same field.
	ErrDuplicateLocator = errors.New("duplicate locator")

	// ErrNoValues is returned for a definition with an empty value list.
	ErrNoValues = errors.New("definition has no values")

	// ErrUnsupportedValue is returned for values that are not int, float,
	// bool or string.
	ErrUnsupportedValue = errors.New("unsupported value")
)

// Definition assigns a list of candidate values to one field.
type Definition struct {
	Locator param.Locator
	Values  []any
}

// definitionFile is the on-disk YAML form of an automation file.
type definitionFile struct {
	Automations []definitionEntry `yaml:"automations"`
}

type definitionEntry struct {
	Path   string `yaml:"path"`
	Values []any  `yaml:"values"`
}

// LoadDefinitions reads an automation file.
func LoadDefinitions(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading automation file: %w", err)
	}
	defs, err := ParseDefinitions(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return defs, nil
}

// ParseDefinitions decodes automation YAML of the form
//
//	automations:
//	  - path: wator.world/world.width
//	    values: [40, 80]
func ParseDefinitions(data []byte) ([]Definition, error) {
	var file definitionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing automation YAML: %w", err)
	}

	defs := make([]Definition, 0, len(file.Automations))
	for i, entry := range file.Automations {
		loc, err := param.ParseLocator(entry.Path)
		if err != nil {
			return nil, fmt.Errorf("automation %d: %w", i, err)
		}
		for _, v := range entry.Values {
			if _, ok := param.TypeName(v); !ok {
				return nil, fmt.Errorf("automation %d (%s): %w: %T", i, loc, ErrUnsupportedValue, v)
			}
		}
		defs = append(defs, Definition{Locator: loc, Values: entry.Values})
	}
	return defs, nil
}

// MarshalDefinitions encodes definitions in the form ParseDefinitions reads.
func MarshalDefinitions(defs []Definition) ([]byte, error) {
	file := definitionFile{Automations: make([]definitionEntry, len(defs))}
	for i, d := range defs {
		file.Automations[i] = definitionEntry{Path: d.Locator.String(), Values: d.Values}
	}
	return yaml.Marshal(file)
}
