package automation

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/nvandessel/simsweep/internal/logging"
	"github.com/nvandessel/simsweep/internal/param"
)

// preallocLimit bounds the up-front allocation for very large products.
const preallocLimit = 1 << 12

// Compiler expands definitions into combinations.
type Compiler struct {
	schema param.Node
	logger *slog.Logger
	events *logging.EventLogger
}

// NewCompiler creates a compiler. When schema is non-nil every definition's
// locator is resolved against it and must address an automatable field.
func NewCompiler(schema param.Node) *Compiler {
	return &Compiler{schema: schema}
}

// SetLogger sets the structured logger and event logger for observability.
func (c *Compiler) SetLogger(logger *slog.Logger, events *logging.EventLogger) {
	c.logger = logger
	c.events = events
}

// Compile returns the Cartesian product of all definitions' values. Each
// combination holds exactly one value per definition. The first definition
// varies slowest and values keep their listed order, so the result is
// deterministic for a given input. An empty input yields no combinations.
func (c *Compiler) Compile(defs []Definition) ([]Combination, error) {
	if len(defs) == 0 {
		if c.logger != nil {
			c.logger.Warn("no automation definitions, nothing to compile")
		}
		return nil, nil
	}
	if err := c.validate(defs); err != nil {
		return nil, err
	}

	out := make([]Combination, 0, min(Count(defs), preallocLimit))
	expand(defs, make([]Entry, 0, len(defs)), &out)

	if c.logger != nil {
		c.logger.Debug("automation compiled", "definitions", len(defs), "combinations", len(out))
	}
	if c.events != nil {
		c.events.Log(map[string]any{
			"event":        "automation_compiled",
			"definitions":  len(defs),
			"combinations": len(out),
		})
	}
	return out, nil
}

func (c *Compiler) validate(defs []Definition) error {
	seen := make(map[param.Locator]int, len(defs))
	for i, d := range defs {
		if d.Locator.IsZero() {
			return fmt.Errorf("definition %d: %w", i, param.ErrEmptyLocator)
		}
		if first, dup := seen[d.Locator]; dup {
			return fmt.Errorf("definitions %d and %d: %w: %s", first, i, ErrDuplicateLocator, d.Locator)
		}
		seen[d.Locator] = i

		if len(d.Values) == 0 {
			return fmt.Errorf("definition %d (%s): %w", i, d.Locator, ErrNoValues)
		}
		for _, v := range d.Values {
			if _, ok := param.TypeName(v); !ok {
				return fmt.Errorf("definition %d (%s): %w: %T", i, d.Locator, ErrUnsupportedValue, v)
			}
		}
		if c.schema != nil {
			if err := param.CheckAutomatable(c.schema, d.Locator); err != nil {
				return fmt.Errorf("definition %d: %w", i, err)
			}
		}
	}
	return nil
}

// expand appends one combination per choice of value for the remaining
// definitions, extending the assignments already fixed in prefix.
func expand(defs []Definition, prefix []Entry, out *[]Combination) {
	if len(defs) == 0 {
		*out = append(*out, Combination{entries: append([]Entry(nil), prefix...)})
		return
	}
	head := defs[0]
	for _, v := range head.Values {
		expand(defs[1:], append(prefix, Entry{Locator: head.Locator, Value: v}), out)
	}
}

// Count returns the number of combinations Compile produces for defs without
// building them. It saturates at math.MaxInt.
func Count(defs []Definition) int {
	if len(defs) == 0 {
		return 0
	}
	n := 1
	for _, d := range defs {
		k := len(d.Values)
		if k == 0 {
			return 0
		}
		if n > math.MaxInt/k {
			return math.MaxInt
		}
		n *= k
	}
	return n
}
