// Package provenance writes the files that let a run directory be traced back
// to the combination and configuration that produced it.
package provenance

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nvandessel/simsweep/internal/automation"
	"github.com/nvandessel/simsweep/internal/constants"
	"github.com/nvandessel/simsweep/internal/param"
	"gopkg.in/yaml.v3"
)

// Writer records combination.xml and the resolved configuration into run
// directories.
type Writer struct {
	configFile string
}

// NewWriter creates a Writer that names the configuration snapshot
// configFile, the simulation kind's conventional file name.
func NewWriter(configFile string) *Writer {
	return &Writer{configFile: configFile}
}

// Record writes both files into dir. Both writes are attempted even when
// one fails.
func (w *Writer) Record(dir string, applied automation.Applied) error {
	return errors.Join(
		WriteCombination(dir, applied.Combination),
		w.writeConfig(dir, applied.Config),
	)
}

func (w *Writer) writeConfig(dir string, cfg param.Node) error {
	if w.configFile == "" || cfg == nil {
		return nil
	}
	data, err := MarshalConfig(cfg)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, w.configFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// MarshalConfig encodes a configuration tree as YAML. The node's concrete
// type carries the yaml tags.
func MarshalConfig(cfg param.Node) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("encoding %s configuration: %w", cfg.Kind(), err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteCombination writes dir/combination.xml.
func WriteCombination(dir string, c automation.Combination) error {
	var buf bytes.Buffer
	if err := automation.WriteXML(&buf, c); err != nil {
		return err
	}
	path := filepath.Join(dir, constants.CombinationFile)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// ReadCombination reads dir/combination.xml.
func ReadCombination(dir string) (automation.Combination, error) {
	f, err := os.Open(filepath.Join(dir, constants.CombinationFile))
	if err != nil {
		return automation.Combination{}, err
	}
	defer f.Close()
	return automation.ReadXML(f)
}
