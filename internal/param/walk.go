package param

import (
	"fmt"
	"iter"
)

// Resolve walks root along loc and returns the node owning the addressed
// field together with the field's declaration. Every intermediate step must
// resolve to a node; anything else is a schema error.
func Resolve(root Node, loc Locator) (Node, Field, error) {
	if loc.IsZero() {
		return nil, Field{}, ErrEmptyLocator
	}
	ids := loc.Identifiers()
	node := root

	for step, id := range ids {
		if err := matchNode(node, id); err != nil {
			return nil, Field{}, &PathError{Locator: loc, Step: step, Err: err}
		}
		field, ok := FieldOf(node, id.Field)
		if !ok {
			return nil, Field{}, &PathError{Locator: loc, Step: step,
				Err: fmt.Errorf("%w: %s.%s", ErrUnknownField, id.Kind, id.Field)}
		}
		if step == len(ids)-1 {
			return node, field, nil
		}

		v, err := node.Get(id.Field)
		if err != nil {
			return nil, Field{}, &PathError{Locator: loc, Step: step, Err: err}
		}
		next, err := descend(v, ids[step+1])
		if err != nil {
			return nil, Field{}, &PathError{Locator: loc, Step: step, Err: err}
		}
		node = next
	}
	// Unreachable: a non-empty locator returns inside the loop.
	return nil, Field{}, ErrEmptyLocator
}

// Lookup reads the field addressed by loc.
func Lookup(root Node, loc Locator) (any, error) {
	node, field, err := Resolve(root, loc)
	if err != nil {
		return nil, err
	}
	v, err := node.Get(field.Name)
	if err != nil {
		return nil, &PathError{Locator: loc, Step: loc.Len() - 1, Err: err}
	}
	return v, nil
}

// Assign writes value into the field addressed by loc.
func Assign(root Node, loc Locator, value any) error {
	node, field, err := Resolve(root, loc)
	if err != nil {
		return err
	}
	if err := node.Set(field.Name, value); err != nil {
		return &PathError{Locator: loc, Step: loc.Len() - 1, Err: err}
	}
	return nil
}

// CheckAutomatable resolves loc and fails with ErrNotAutomatable when the
// addressed field is declared non-automatable.
func CheckAutomatable(root Node, loc Locator) error {
	_, field, err := Resolve(root, loc)
	if err != nil {
		return err
	}
	if !field.Automatable {
		return &PathError{Locator: loc, Step: loc.Len() - 1,
			Err: fmt.Errorf("%w: %s", ErrNotAutomatable, loc.Last())}
	}
	return nil
}

func matchNode(n Node, id Identifier) error {
	if n.Kind() != id.Kind {
		return fmt.Errorf("%w: want %q, found %q", ErrKindMismatch, id.Kind, n.Kind())
	}
	if id.Title != "" && n.Title() != id.Title {
		return fmt.Errorf("%w: want %q, found %q", ErrTitleNotFound, id.Title, n.Title())
	}
	return nil
}

// descend turns the value of a composite field into the node the next
// identifier addresses.
func descend(v any, next Identifier) (Node, error) {
	switch n := v.(type) {
	case Node:
		return n, nil
	case []Node:
		var candidates []Node
		for _, sibling := range n {
			if sibling.Kind() != next.Kind {
				continue
			}
			if next.Title == "" || sibling.Title() == next.Title {
				candidates = append(candidates, sibling)
			}
		}
		switch {
		case len(candidates) == 1:
			return candidates[0], nil
		case len(candidates) == 0:
			return nil, fmt.Errorf("%w: %s[%s]", ErrTitleNotFound, next.Kind, next.Title)
		default:
			return nil, fmt.Errorf("%w: %d %q siblings, a title is required", ErrTitleNotFound, len(candidates), next.Kind)
		}
	}
	return nil, fmt.Errorf("%w: got %T", ErrNotNode, v)
}

// Leaves yields the locator and declaration of every primitive field in the
// tree rooted at root, depth first in declaration order. Siblings in a node
// list are addressed by title.
func Leaves(root Node) iter.Seq2[Locator, Field] {
	return func(yield func(Locator, Field) bool) {
		walkLeaves(root, nil, yield)
	}
}

func walkLeaves(n Node, prefix []Identifier, yield func(Locator, Field) bool) bool {
	for _, f := range n.Fields() {
		path := append(prefix[:len(prefix):len(prefix)], Identifier{Kind: n.Kind(), Title: n.Title(), Field: f.Name})
		v, err := n.Get(f.Name)
		if err != nil {
			continue
		}
		switch child := v.(type) {
		case Node:
			if !walkLeaves(child, path, yield) {
				return false
			}
		case []Node:
			for _, sibling := range child {
				if !walkLeaves(sibling, path, yield) {
					return false
				}
			}
		default:
			loc, err := NewLocator(path...)
			if err != nil {
				continue
			}
			if !yield(loc, f) {
				return false
			}
		}
	}
	return true
}
