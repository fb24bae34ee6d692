// Package output generates collision-free run directory paths of the form
// <parent>/<kind>_output_<mode>[_NNNNN]/run_MMMMM.
package output

import (
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nvandessel/simsweep/internal/constants"
)

// Option configures a Generator.
type Option func(*Generator)

// WithBatchIndex pins the batch index instead of scanning for the next free
// one. Runs already present in that batch directory are skipped, so an
// interrupted batch can be continued in place.
func WithBatchIndex(n int) Option {
	return func(g *Generator) {
		g.batchIndex = n
		g.pinned = true
	}
}

// Generator yields run directory paths. It is not safe for concurrent use;
// a single producer owns it.
type Generator struct {
	parent     string
	kind       string
	mode       constants.Mode
	batchIndex int
	pinned     bool
	batchDir   string
	next       int
}

// NewGenerator scans parent and the outer directory once to pick the batch
// and starting run indices. Missing directories count as empty.
func NewGenerator(parent, kind string, mode constants.Mode, opts ...Option) (*Generator, error) {
	if kind == "" {
		return nil, fmt.Errorf("output: empty simulation kind")
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("output: invalid mode %q", mode)
	}
	g := &Generator{parent: parent, kind: kind, mode: mode}
	for _, opt := range opts {
		opt(g)
	}
	if g.pinned && g.batchIndex < 0 {
		return nil, fmt.Errorf("output: negative batch index %d", g.batchIndex)
	}

	outer := kind + constants.OutputInfix + string(mode)
	if mode == constants.ModeBatch {
		if !g.pinned {
			next, err := NextIndex(parent, outer+"_")
			if err != nil {
				return nil, err
			}
			g.batchIndex = next
		}
		outer += "_" + FormatIndex(g.batchIndex)
	}
	g.batchDir = filepath.Join(parent, outer)

	next, err := NextIndex(g.batchDir, constants.RunPrefix)
	if err != nil {
		return nil, err
	}
	g.next = next
	return g, nil
}

// BatchDir returns the outer directory all runs are placed in.
func (g *Generator) BatchDir() string {
	return g.batchDir
}

// BatchIndex returns the batch index. It is meaningful in batch mode only.
func (g *Generator) BatchIndex() int {
	return g.batchIndex
}

// Next returns the next run path and its run index. Every call consumes an
// index whether or not the caller uses the path.
func (g *Generator) Next() (string, int) {
	n := g.next
	g.next++
	return filepath.Join(g.batchDir, constants.RunPrefix+FormatIndex(n)), n
}

// Paths is an unbounded sequence of run paths. Consumers bound it by
// stopping iteration.
func (g *Generator) Paths() iter.Seq[string] {
	return func(yield func(string) bool) {
		for {
			path, _ := g.Next()
			if !yield(path) {
				return
			}
		}
	}
}

// FormatIndex zero-pads n to the index width.
func FormatIndex(n int) string {
	return fmt.Sprintf("%0*d", constants.IndexWidth, n)
}

// ParseIndex returns the numeric suffix of name after prefix. The suffix
// must be all decimal digits.
func ParseIndex(name, prefix string) (int, bool) {
	digits, ok := strings.CutPrefix(name, prefix)
	if !ok || digits == "" {
		return 0, false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}

// NextIndex scans dir for entries named prefix followed by digits and
// returns one past the highest index found, or 0 when there are none.
func NextIndex(dir, prefix string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("scanning output directory: %w", err)
	}

	next := 0
	for _, e := range entries {
		if n, ok := ParseIndex(e.Name(), prefix); ok && n >= next {
			next = n + 1
		}
	}
	return next, nil
}
