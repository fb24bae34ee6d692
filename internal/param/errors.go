package param

import (
	"errors"
	"fmt"
)

// Traversal and assignment errors. Callers match them with errors.Is.
var (
	ErrEmptyLocator      = errors.New("empty locator")
	ErrInvalidIdentifier = errors.New("invalid identifier")
	ErrUnknownField      = errors.New("unknown field")
	ErrNotNode           = errors.New("field is not a configuration node")
	ErrKindMismatch      = errors.New("node kind mismatch")
	ErrTitleNotFound     = errors.New("no node with matching title")
	ErrTypeMismatch      = errors.New("type mismatch")
	ErrReadOnly          = errors.New("field is read-only")
	ErrNotAutomatable    = errors.New("field is not automatable")
)

// PathError records which step of a locator failed to resolve.
type PathError struct {
	Locator Locator
	Step    int
	Err     error
}

func (e *PathError) Error() string {
	ids := e.Locator.Identifiers()
	if e.Step >= 0 && e.Step < len(ids) {
		return fmt.Sprintf("locator %s: step %d (%s): %v", e.Locator, e.Step, ids[e.Step], e.Err)
	}
	return fmt.Sprintf("locator %s: %v", e.Locator, e.Err)
}

func (e *PathError) Unwrap() error {
	return e.Err
}
