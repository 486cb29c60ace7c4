package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gi8lino/jiraflow/internal/hash"
	"github.com/gi8lino/jiraflow/internal/refs"
	"github.com/gi8lino/jiraflow/internal/template"
)

// Entity is a single issue-tracker item the engine can bind into a reference
// table and read fields from.
type Entity = refs.Entity

// Client is the remote issue-tracker collaborator the engine drives. Calls
// are synchronous; timeout and retry policy belong to the implementation.
type Client interface {
	Search(ctx context.Context, jql string) ([]Entity, error)
	Create(ctx context.Context, fields map[string]any) (Entity, error)
	Update(ctx context.Context, key string, fields map[string]any) error
	Link(ctx context.Context, linkType, inwardKey, outwardKey string) error
	Transition(ctx context.Context, key, target, comment string, fields map[string]any) error
}

// Engine executes validated templates against a Client.
type Engine struct {
	client Client
	logger *slog.Logger
}

// New returns an Engine that issues remote calls through client.
func New(client Client, logger *slog.Logger) *Engine {
	return &Engine{client: client, logger: logger}
}

// Execute runs tmpl. With a trigger, the search is evaluated once and the
// action list runs per matched entity with a fresh reference table each
// time; without one, the list runs once. A failing iteration is recorded and
// the next entity still runs from the start. The returned error is reserved
// for run-level failures such as the trigger search itself.
func (e *Engine) Execute(ctx context.Context, tmpl *template.Template) (*Report, error) {
	report := &Report{
		RunID:        uuid.NewString(),
		TemplateName: tmpl.Metadata.Name,
		StartedAt:    time.Now(),
	}
	if fingerprint, err := hash.Fingerprint(tmpl); err == nil {
		report.Fingerprint = fingerprint
	}
	defer func() { report.Duration = time.Since(report.StartedAt) }()

	logger := e.logger.With("run_id", report.RunID, "template", tmpl.Metadata.Name)

	if tmpl.Trigger == nil {
		logger.Debug("no trigger, running action list once")
		report.Iterations = append(report.Iterations, e.runIteration(ctx, logger, tmpl, nil))
		return report, nil
	}

	report.Triggered = true
	report.JQL = tmpl.Trigger.JQL
	entities, err := e.client.Search(ctx, tmpl.Trigger.JQL)
	if err != nil {
		return report, fmt.Errorf("trigger search failed: %w", err)
	}
	logger.Info("trigger evaluated", "jql", tmpl.Trigger.JQL, "matches", len(entities))

	for _, entity := range entities {
		result := e.runIteration(ctx, logger.With("entity", entity.Key()), tmpl, entity)
		report.Iterations = append(report.Iterations, result)
	}
	return report, nil
}

// runIteration executes the full action list once against a fresh reference
// table. seed is the trigger entity, nil for untriggered runs.
func (e *Engine) runIteration(ctx context.Context, logger *slog.Logger, tmpl *template.Template, seed Entity) IterationResult {
	var result IterationResult
	table := refs.NewTable()

	if seed != nil {
		result.EntityKey = seed.Key()
		if err := table.Bind(tmpl.Trigger.ObjectID, seed); err != nil {
			result.Err = &ActionError{Pos: 0, ObjectID: tmpl.Trigger.ObjectID, Err: err}
			return result
		}
	}

	for i := range tmpl.Actions {
		act := &tmpl.Actions[i]
		if err := e.executeAction(ctx, logger, i+1, act, table); err != nil {
			logger.Error("action failed", "position", i+1, "type", act.Type, "error", err)
			result.Err = err
			return result
		}
		result.ActionsRun++
	}
	return result
}
