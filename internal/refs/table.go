package refs

import (
	"errors"
	"fmt"
)

// Sentinel errors callers can match with errors.Is to tell an unknown
// reference apart from a known reference whose field was never captured.
var (
	ErrUnknownReference = errors.New("unknown reference")
	ErrFieldNotCaptured = errors.New("field not captured")
	ErrAlreadyBound     = errors.New("object_id already bound")
)

// Entity is a single issue-tracker item a Table can hold: a stable key plus
// read access to its referenceable fields.
type Entity interface {
	Key() string
	Field(name string) (any, error)
}

type entry struct {
	entity Entity
	fields map[string]any
}

// Table stores the entities and captured field values of one run iteration,
// keyed by the object ids declared in the template. Each object id is bound
// exactly once per iteration.
type Table struct {
	entries map[string]*entry
}

// NewTable returns an empty Table.
func NewTable() *Table {
	return &Table{entries: make(map[string]*entry)}
}

// Bind registers entity under objectID. Binding the same objectID twice is a
// logic error and fails with ErrAlreadyBound.
func (t *Table) Bind(objectID string, entity Entity) error {
	if _, ok := t.entries[objectID]; ok {
		return fmt.Errorf("%q: %w", objectID, ErrAlreadyBound)
	}
	t.entries[objectID] = &entry{entity: entity, fields: make(map[string]any)}
	return nil
}

// Contains reports whether objectID has been bound.
func (t *Table) Contains(objectID string) bool {
	_, ok := t.entries[objectID]
	return ok
}

// Entity returns the entity bound under objectID.
func (t *Table) Entity(objectID string) (Entity, error) {
	e, ok := t.entries[objectID]
	if !ok {
		return nil, fmt.Errorf("%q: %w", objectID, ErrUnknownReference)
	}
	return e.entity, nil
}

// Capture stores value as the captured field of objectID so interpolation
// can resolve ${objectID.field}.
func (t *Table) Capture(objectID, field string, value any) error {
	e, ok := t.entries[objectID]
	if !ok {
		return fmt.Errorf("%q: %w", objectID, ErrUnknownReference)
	}
	e.fields[field] = value
	return nil
}

// Resolve returns the captured value of field under objectID. A missing
// objectID fails with ErrUnknownReference, a bound objectID without the
// requested field with ErrFieldNotCaptured.
func (t *Table) Resolve(objectID, field string) (any, error) {
	e, ok := t.entries[objectID]
	if !ok {
		return nil, fmt.Errorf("%q: %w", objectID, ErrUnknownReference)
	}
	v, ok := e.fields[field]
	if !ok {
		return nil, fmt.Errorf("%q has no captured field %q: %w", objectID, field, ErrFieldNotCaptured)
	}
	return v, nil
}
