package param

import "fmt"

// Field describes one declared field of a node.
type Field struct {
	Name string
	// Automatable reports whether automation definitions may target the field.
	Automatable bool
}

// Node is one object in a configuration tree. Its accessor methods read and
// write the node's own declared fields by name. A composite field's Get
// returns either a nested Node or a []Node of siblings that share a kind and
// are told apart by Title.
//
// Clone returns a deep copy that shares no mutable state with the receiver,
// nested nodes included.
type Node interface {
	Kind() string
	Title() string
	Fields() []Field
	Get(field string) (any, error)
	Set(field string, value any) error
	Clone() Node
}

// FieldOf returns the declaration of the named field.
func FieldOf(n Node, name string) (Field, bool) {
	for _, f := range n.Fields() {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Binding ties a declared field to closures over the owning struct. Nodes
// build their Bindings on demand and delegate Fields/Get/Set to them.
type Binding struct {
	Field
	get func() any
	set func(any) error
}

// Bindings is the accessor table of one node.
type Bindings []Binding

// Fields lists the declared fields in declaration order.
func (b Bindings) Fields() []Field {
	fields := make([]Field, len(b))
	for i, binding := range b {
		fields[i] = binding.Field
	}
	return fields
}

// Get reads a field.
func (b Bindings) Get(kind, name string) (any, error) {
	for _, binding := range b {
		if binding.Name == name {
			return binding.get(), nil
		}
	}
	return nil, fmt.Errorf("%w: %s.%s", ErrUnknownField, kind, name)
}

// Set writes a field, converting the value to the field's type.
func (b Bindings) Set(kind, name string, value any) error {
	for _, binding := range b {
		if binding.Name != name {
			continue
		}
		if binding.set == nil {
			return fmt.Errorf("%w: %s.%s", ErrReadOnly, kind, name)
		}
		if err := binding.set(value); err != nil {
			return fmt.Errorf("setting %s.%s: %w", kind, name, err)
		}
		return nil
	}
	return fmt.Errorf("%w: %s.%s", ErrUnknownField, kind, name)
}

// IntField binds an int field.
func IntField(name string, p *int, automatable bool) Binding {
	return Binding{
		Field: Field{Name: name, Automatable: automatable},
		get:   func() any { return *p },
		set: func(v any) error {
			n, err := Int(v)
			if err != nil {
				return err
			}
			*p = n
			return nil
		},
	}
}

// FloatField binds a float64 field.
func FloatField(name string, p *float64, automatable bool) Binding {
	return Binding{
		Field: Field{Name: name, Automatable: automatable},
		get:   func() any { return *p },
		set: func(v any) error {
			f, err := Float(v)
			if err != nil {
				return err
			}
			*p = f
			return nil
		},
	}
}

// BoolField binds a bool field.
func BoolField(name string, p *bool, automatable bool) Binding {
	return Binding{
		Field: Field{Name: name, Automatable: automatable},
		get:   func() any { return *p },
		set: func(v any) error {
			b, err := Bool(v)
			if err != nil {
				return err
			}
			*p = b
			return nil
		},
	}
}

// StringField binds a string field.
func StringField(name string, p *string, automatable bool) Binding {
	return Binding{
		Field: Field{Name: name, Automatable: automatable},
		get:   func() any { return *p },
		set: func(v any) error {
			s, err := String(v)
			if err != nil {
				return err
			}
			*p = s
			return nil
		},
	}
}

// NodeField binds a composite field holding one nested node. Composite
// fields are read-only and never automatable; automation targets the
// primitive fields inside them.
func NodeField(name string, get func() Node) Binding {
	return Binding{
		Field: Field{Name: name},
		get:   func() any { return get() },
	}
}

// NodeListField binds a composite field holding titled sibling nodes.
func NodeListField(name string, get func() []Node) Binding {
	return Binding{
		Field: Field{Name: name},
		get:   func() any { return get() },
	}
}
