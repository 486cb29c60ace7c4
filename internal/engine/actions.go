package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gi8lino/jiraflow/internal/refs"
	"github.com/gi8lino/jiraflow/internal/template"
)

// executeAction pulls the action's reuse data, interpolates its payload,
// issues the remote call and captures the result entity. Reference
// resolution failures surface before any remote call is made.
func (e *Engine) executeAction(ctx context.Context, logger *slog.Logger, pos int, act *template.Action, table *refs.Table) *ActionError {
	fail := func(err error) *ActionError {
		return &ActionError{Pos: pos, ObjectID: act.ObjectID, Kind: act.Type, Err: err}
	}

	if err := pullReuseData(act.ReuseData, table); err != nil {
		return fail(err)
	}
	fields, err := refs.InterpolateFields(act.Fields, table)
	if err != nil {
		return fail(err)
	}

	switch act.Type {
	case template.KindCreateTicket:
		entity, err := e.client.Create(ctx, fields)
		if err != nil {
			return fail(err)
		}
		logger.Info("issue created", "key", entity.Key())
		return captureResult(act, entity, table, fail)

	case template.KindUpdateTicket:
		entity, err := table.Entity(act.ReferenceID)
		if err != nil {
			return fail(err)
		}
		if err := e.client.Update(ctx, entity.Key(), fields); err != nil {
			return fail(err)
		}
		logger.Info("issue updated", "key", entity.Key())
		return captureResult(act, entity, table, fail)

	case template.KindLinkIssues:
		linkType, inward, outward, err := linkArgs(fields)
		if err != nil {
			return fail(err)
		}
		if err := e.client.Link(ctx, linkType, inward, outward); err != nil {
			return fail(err)
		}
		logger.Info("issues linked", "type", linkType, "inward", inward, "outward", outward)
		return nil

	case template.KindTransition:
		entity, err := table.Entity(act.ReferenceID)
		if err != nil {
			return fail(err)
		}
		target, err := interpolateToString(act.Transition, table)
		if err != nil {
			return fail(err)
		}
		comment, err := interpolateToString(act.Comment, table)
		if err != nil {
			return fail(err)
		}
		if err := e.client.Transition(ctx, entity.Key(), target, comment, fields); err != nil {
			return fail(err)
		}
		logger.Info("issue transitioned", "key", entity.Key(), "status", target)
		return captureResult(act, entity, table, fail)

	default:
		return fail(fmt.Errorf("unknown action type %q", act.Type))
	}
}

// pullReuseData copies the requested field values from already bound
// entities into the table so this action's payload can interpolate them.
func pullReuseData(specs []template.ReuseSpec, table *refs.Table) error {
	for _, spec := range specs {
		entity, err := table.Entity(spec.ReferenceID)
		if err != nil {
			return err
		}
		for _, field := range spec.Fields {
			value, err := entity.Field(field)
			if err != nil {
				return fmt.Errorf("pull %q from %q: %w", field, spec.ReferenceID, err)
			}
			if err := table.Capture(spec.ReferenceID, field, value); err != nil {
				return err
			}
		}
	}
	return nil
}

// captureResult binds the entity an action produced or worked on under its
// object_id and captures the reuse field names from it so later actions can
// interpolate ${object_id.field}.
func captureResult(act *template.Action, entity Entity, table *refs.Table, fail func(error) *ActionError) *ActionError {
	if act.ObjectID == "" || !act.Type.BindsEntity() {
		return nil
	}
	if err := table.Bind(act.ObjectID, entity); err != nil {
		return fail(err)
	}
	for _, spec := range act.ReuseData {
		for _, field := range spec.Fields {
			value, err := entity.Field(field)
			if err != nil {
				return fail(fmt.Errorf("capture %q for %q: %w", field, act.ObjectID, err))
			}
			if err := table.Capture(act.ObjectID, field, value); err != nil {
				return fail(err)
			}
		}
	}
	return nil
}

// linkArgs extracts the three link parameters from the interpolated payload.
func linkArgs(fields map[string]any) (linkType, inward, outward string, err error) {
	get := func(key string) (string, error) {
		v, ok := fields[key]
		if !ok {
			return "", fmt.Errorf("link-issues fields are missing %q", key)
		}
		s, ok := v.(string)
		if !ok {
			return "", fmt.Errorf("link-issues field %q must resolve to a string, got %T", key, v)
		}
		return s, nil
	}
	if linkType, err = get(template.FieldLinkType); err != nil {
		return "", "", "", err
	}
	if inward, err = get(template.FieldInwardIssue); err != nil {
		return "", "", "", err
	}
	if outward, err = get(template.FieldOutwardIssue); err != nil {
		return "", "", "", err
	}
	return linkType, inward, outward, nil
}

// interpolateToString resolves tokens inside a plain string option such as
// the transition target or comment.
func interpolateToString(s string, table *refs.Table) (string, error) {
	if s == "" {
		return "", nil
	}
	value, err := refs.InterpolateString(s, table)
	if err != nil {
		return "", err
	}
	if str, ok := value.(string); ok {
		return str, nil
	}
	return fmt.Sprint(value), nil
}
