// Package param defines the configuration tree contract used by automation:
// nodes that expose their fields through an explicit accessor, and locators
// that address a single field inside such a tree.
package param

import (
	"fmt"
	"strings"
)

// reserved characters may not appear inside kind, title or field names
// because they delimit the text form of a locator.
const reserved = "/.[]="

// Identifier names one field of one node kind. Title disambiguates sibling
// nodes of the same kind and is empty when the kind is unique at its level.
type Identifier struct {
	Kind  string
	Title string
	Field string
}

// String returns the text form kind[title].field.
func (id Identifier) String() string {
	if id.Title == "" {
		return id.Kind + "." + id.Field
	}
	return id.Kind + "[" + id.Title + "]." + id.Field
}

func (id Identifier) validate() error {
	if id.Kind == "" || id.Field == "" {
		return fmt.Errorf("%w: kind and field are required: %q", ErrInvalidIdentifier, id.String())
	}
	for _, part := range []string{id.Kind, id.Title, id.Field} {
		if strings.ContainsAny(part, reserved) {
			return fmt.Errorf("%w: %q contains one of %q", ErrInvalidIdentifier, part, reserved)
		}
		if strings.TrimSpace(part) != part {
			return fmt.Errorf("%w: %q has surrounding whitespace", ErrInvalidIdentifier, part)
		}
	}
	return nil
}

// ParseIdentifier parses kind.field or kind[title].field.
func ParseIdentifier(s string) (Identifier, error) {
	dot := strings.LastIndex(s, ".")
	if dot < 0 {
		return Identifier{}, fmt.Errorf("%w: missing field in %q", ErrInvalidIdentifier, s)
	}
	head, field := s[:dot], s[dot+1:]

	id := Identifier{Kind: head, Field: field}
	if open := strings.Index(head, "["); open >= 0 {
		if !strings.HasSuffix(head, "]") {
			return Identifier{}, fmt.Errorf("%w: unterminated title in %q", ErrInvalidIdentifier, s)
		}
		id.Kind = head[:open]
		id.Title = head[open+1 : len(head)-1]
		if id.Title == "" {
			return Identifier{}, fmt.Errorf("%w: empty title in %q", ErrInvalidIdentifier, s)
		}
	}
	if err := id.validate(); err != nil {
		return Identifier{}, err
	}
	return id, nil
}

// Locator is an immutable, non-empty path of identifiers from the root of a
// configuration tree to one field. Locators are comparable with == and can be
// used as map keys. The zero Locator is empty and never resolves.
type Locator struct {
	path string
}

// NewLocator builds a locator from one or more identifiers.
func NewLocator(ids ...Identifier) (Locator, error) {
	if len(ids) == 0 {
		return Locator{}, ErrEmptyLocator
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		if err := id.validate(); err != nil {
			return Locator{}, err
		}
		parts[i] = id.String()
	}
	return Locator{path: strings.Join(parts, "/")}, nil
}

// MustLocator is NewLocator for statically known paths; it panics on error.
func MustLocator(ids ...Identifier) Locator {
	l, err := NewLocator(ids...)
	if err != nil {
		panic(err)
	}
	return l
}

// ParseLocator parses the text form produced by Locator.String, for example
// "wator.species/species[shark].starve_time".
func ParseLocator(s string) (Locator, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Locator{}, ErrEmptyLocator
	}
	segments := strings.Split(s, "/")
	ids := make([]Identifier, len(segments))
	for i, seg := range segments {
		id, err := ParseIdentifier(seg)
		if err != nil {
			return Locator{}, fmt.Errorf("parsing locator %q: %w", s, err)
		}
		ids[i] = id
	}
	return NewLocator(ids...)
}

// IsZero reports whether the locator is empty.
func (l Locator) IsZero() bool {
	return l.path == ""
}

// String returns the canonical text form.
func (l Locator) String() string {
	return l.path
}

// Identifiers returns a fresh copy of the locator's identifiers.
func (l Locator) Identifiers() []Identifier {
	if l.path == "" {
		return nil
	}
	segments := strings.Split(l.path, "/")
	ids := make([]Identifier, 0, len(segments))
	for _, seg := range segments {
		// Segments were validated on construction.
		id, _ := ParseIdentifier(seg)
		ids = append(ids, id)
	}
	return ids
}

// Len returns the number of identifiers.
func (l Locator) Len() int {
	if l.path == "" {
		return 0
	}
	return strings.Count(l.path, "/") + 1
}

// Head returns the first identifier. It panics on an empty locator.
func (l Locator) Head() Identifier {
	if l.path == "" {
		panic(ErrEmptyLocator)
	}
	seg, _, _ := strings.Cut(l.path, "/")
	id, _ := ParseIdentifier(seg)
	return id
}

// Tail returns the locator without its first identifier. The tail of a
// single-identifier locator is the zero Locator.
func (l Locator) Tail() Locator {
	_, rest, _ := strings.Cut(l.path, "/")
	return Locator{path: rest}
}

// Last returns the identifier naming the addressed field.
func (l Locator) Last() Identifier {
	if l.path == "" {
		panic(ErrEmptyLocator)
	}
	seg := l.path[strings.LastIndex(l.path, "/")+1:]
	id, _ := ParseIdentifier(seg)
	return id
}

// MarshalText implements encoding.TextMarshaler.
func (l Locator) MarshalText() ([]byte, error) {
	return []byte(l.path), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Locator) UnmarshalText(text []byte) error {
	parsed, err := ParseLocator(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
