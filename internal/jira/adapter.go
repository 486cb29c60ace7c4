package jira

import (
	"context"

	"github.com/gi8lino/jiraflow/internal/engine"
)

// issueEntity adapts an Issue to the engine's entity contract.
type issueEntity struct {
	issue *Issue
}

func (e issueEntity) Key() string { return e.issue.Key }

func (e issueEntity) Field(name string) (any, error) { return e.issue.FieldValue(name) }

// Adapter exposes the REST client through the engine's collaborator
// interface.
type Adapter struct {
	client *Client
}

var _ engine.Client = (*Adapter)(nil)

// NewAdapter wraps client for use by the engine.
func NewAdapter(client *Client) *Adapter {
	return &Adapter{client: client}
}

// Search runs a JQL search and returns the matches as engine entities.
func (a *Adapter) Search(ctx context.Context, jql string) ([]engine.Entity, error) {
	issues, err := a.client.SearchIssues(ctx, jql)
	if err != nil {
		return nil, err
	}
	entities := make([]engine.Entity, len(issues))
	for i, issue := range issues {
		entities[i] = issueEntity{issue: issue}
	}
	return entities, nil
}

// Create creates an issue and returns it as an engine entity.
func (a *Adapter) Create(ctx context.Context, fields map[string]any) (engine.Entity, error) {
	issue, err := a.client.CreateIssue(ctx, fields)
	if err != nil {
		return nil, err
	}
	return issueEntity{issue: issue}, nil
}

// Update overwrites fields of the issue identified by key.
func (a *Adapter) Update(ctx context.Context, key string, fields map[string]any) error {
	return a.client.UpdateIssue(ctx, key, fields)
}

// Link creates a link of the named type between two issues.
func (a *Adapter) Link(ctx context.Context, linkType, inwardKey, outwardKey string) error {
	return a.client.LinkIssues(ctx, linkType, inwardKey, outwardKey)
}

// Transition moves the issue identified by key to the target status.
func (a *Adapter) Transition(ctx context.Context, key, target, comment string, fields map[string]any) error {
	return a.client.TransitionIssue(ctx, key, target, comment, fields)
}
