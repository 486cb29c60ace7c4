package testutils

import (
	"context"
	"errors"
	"fmt"

	"github.com/gi8lino/jiraflow/internal/engine"
)

// MockEntity is a static entity backed by a plain field map.
type MockEntity struct {
	IssueKey string
	Fields   map[string]any
}

// Key returns the entity's issue key.
func (e MockEntity) Key() string { return e.IssueKey }

// Field looks up a field value in the map.
func (e MockEntity) Field(name string) (any, error) {
	v, ok := e.Fields[name]
	if !ok {
		return nil, fmt.Errorf("no field %q", name)
	}
	return v, nil
}

// MockClient is a scriptable engine.Client for tests. Calls to unset
// functions return an error so unexpected remote calls surface in tests.
type MockClient struct {
	SearchFn     func(ctx context.Context, jql string) ([]engine.Entity, error)
	CreateFn     func(ctx context.Context, fields map[string]any) (engine.Entity, error)
	UpdateFn     func(ctx context.Context, key string, fields map[string]any) error
	LinkFn       func(ctx context.Context, linkType, inwardKey, outwardKey string) error
	TransitionFn func(ctx context.Context, key, target, comment string, fields map[string]any) error
}

func (m *MockClient) Search(ctx context.Context, jql string) ([]engine.Entity, error) {
	if m.SearchFn == nil {
		return nil, errors.New("unexpected Search call")
	}
	return m.SearchFn(ctx, jql)
}

func (m *MockClient) Create(ctx context.Context, fields map[string]any) (engine.Entity, error) {
	if m.CreateFn == nil {
		return nil, errors.New("unexpected Create call")
	}
	return m.CreateFn(ctx, fields)
}

func (m *MockClient) Update(ctx context.Context, key string, fields map[string]any) error {
	if m.UpdateFn == nil {
		return errors.New("unexpected Update call")
	}
	return m.UpdateFn(ctx, key, fields)
}

func (m *MockClient) Link(ctx context.Context, linkType, inwardKey, outwardKey string) error {
	if m.LinkFn == nil {
		return errors.New("unexpected Link call")
	}
	return m.LinkFn(ctx, linkType, inwardKey, outwardKey)
}

func (m *MockClient) Transition(ctx context.Context, key, target, comment string, fields map[string]any) error {
	if m.TransitionFn == nil {
		return errors.New("unexpected Transition call")
	}
	return m.TransitionFn(ctx, key, target, comment, fields)
}
