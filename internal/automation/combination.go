package automation

import (
	"fmt"
	"iter"
	"strconv"
	"strings"

	"github.com/nvandessel/simsweep/internal/param"
)

// Entry is one locator/value pair of a combination.
type Entry struct {
	Locator param.Locator
	Value   any
}

// Combination is an immutable, ordered set of assignments with at most one
// value per locator. The zero Combination is empty and applies no changes.
type Combination struct {
	entries []Entry
}

// NewCombination builds a combination, rejecting empty and repeated locators.
func NewCombination(entries ...Entry) (Combination, error) {
	seen := make(map[param.Locator]struct{}, len(entries))
	for _, e := range entries {
		if e.Locator.IsZero() {
			return Combination{}, param.ErrEmptyLocator
		}
		if _, dup := seen[e.Locator]; dup {
			return Combination{}, fmt.Errorf("%w: %s", ErrDuplicateLocator, e.Locator)
		}
		if _, ok := param.TypeName(e.Value); !ok {
			return Combination{}, fmt.Errorf("%s: %w: %T", e.Locator, ErrUnsupportedValue, e.Value)
		}
		seen[e.Locator] = struct{}{}
	}
	return Combination{entries: append([]Entry(nil), entries...)}, nil
}

// Len returns the number of assignments.
func (c Combination) Len() int {
	return len(c.entries)
}

// Entries returns a copy of the assignments in order.
func (c Combination) Entries() []Entry {
	return append([]Entry(nil), c.entries...)
}

// All iterates the assignments in order.
func (c Combination) All() iter.Seq2[param.Locator, any] {
	return func(yield func(param.Locator, any) bool) {
		for _, e := range c.entries {
			if !yield(e.Locator, e.Value) {
				return
			}
		}
	}
}

// Value returns the value assigned to loc.
func (c Combination) Value(loc param.Locator) (any, bool) {
	for _, e := range c.entries {
		if e.Locator == loc {
			return e.Value, true
		}
	}
	return nil, false
}

// ID is a stable human-readable identifier, for example
// "wator.world/world.width=40,wator.seed=7". The empty combination is "default".
// String values containing ',', '=' or '"' are Go-quoted so that distinct
// combinations never share an ID.
func (c Combination) ID() string {
	if len(c.entries) == 0 {
		return "default"
	}
	var b strings.Builder
	for i, e := range c.entries {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(e.Locator.String())
		b.WriteByte('=')
		b.WriteString(idValue(e.Value))
	}
	return b.String()
}

func idValue(v any) string {
	if s, ok := v.(string); ok && strings.ContainsAny(s, `,="`) {
		return strconv.Quote(s)
	}
	return param.Format(v)
}

// String implements fmt.Stringer.
func (c Combination) String() string {
	return c.ID()
}

// Equal reports whether both combinations hold the same assignments in the
// same order.
func (c Combination) Equal(o Combination) bool {
	if len(c.entries) != len(o.entries) {
		return false
	}
	for i := range c.entries {
		if c.entries[i].Locator != o.entries[i].Locator || c.entries[i].Value != o.entries[i].Value {
			return false
		}
	}
	return true
}
