package automation

import (
	"iter"

	"github.com/nvandessel/simsweep/internal/param"
)

// Applied pairs a combination with the configuration it produced.
type Applied struct {
	Combination Combination
	Config      param.Node
}

// ApplyOne clones defaults and assigns every entry of c to the clone. The
// defaults tree is never modified.
func ApplyOne(c Combination, defaults param.Node) (Applied, error) {
	root := defaults.Clone()
	for _, e := range c.entries {
		if err := param.Assign(root, e.Locator, e.Value); err != nil {
			return Applied{}, err
		}
	}
	return Applied{Combination: c, Config: root}, nil
}

// Apply lazily applies each combination pulled from combos. The sequence
// yields the first error and stops.
func Apply(combos iter.Seq[Combination], defaults param.Node) iter.Seq2[Applied, error] {
	return func(yield func(Applied, error) bool) {
		for c := range combos {
			applied, err := ApplyOne(c, defaults)
			if err != nil {
				yield(Applied{}, err)
				return
			}
			if !yield(applied, nil) {
				return
			}
		}
	}
}
