package template_test

import (
	"testing"

	"github.com/gi8lino/jiraflow/internal/template"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validTemplate returns a template that passes validation: a JQL trigger and
// one action of every kind, with reuse_data covering every token.
func validTemplate() *template.Template {
	return &template.Template{
		APIVersion: 1,
		Kind:       "jira-template",
		Metadata:   template.Metadata{Name: "clone-bugs"},
		Trigger: &template.Trigger{
			Type:     "jira-jql-search",
			ObjectID: "bug",
			JQL:      "project = PROJ AND type = Bug",
		},
		Actions: []template.Action{
			{
				Type:     template.KindCreateTicket,
				ObjectID: "clone",
				ReuseData: []template.ReuseSpec{
					{ReferenceID: "bug", Fields: []string{"key", "description"}},
				},
				Fields: map[string]any{
					"project":     "BACKLOG",
					"issuetype":   "Task",
					"summary":     "Clone of ${bug.key}",
					"description": "${bug.description}",
				},
			},
			{
				Type:        template.KindUpdateTicket,
				ObjectID:    "updated",
				ReferenceID: "clone",
				Fields:      map[string]any{"labels": []any{"auto", "${clone.key}"}},
			},
			{
				Type:     template.KindLinkIssues,
				ObjectID: "link",
				Fields: map[string]any{
					"link_type":     "Cloners",
					"inward_issue":  "${clone.key}",
					"outward_issue": "${bug.key}",
				},
			},
			{
				Type:        template.KindTransition,
				ObjectID:    "moved",
				ReferenceID: "clone",
				Transition:  "In Progress",
				Comment:     "cloned from ${bug.key}",
			},
		},
	}
}

// violationsOf unwraps the ValidationError and returns its violations.
func violationsOf(t *testing.T, err error) []template.Violation {
	t.Helper()

	var verr *template.ValidationError
	require.ErrorAs(t, err, &verr)
	return verr.Violations
}

func TestValidate(t *testing.T) {
	t.Parallel()

	t.Run("accepts a full template", func(t *testing.T) {
		t.Parallel()

		assert.NoError(t, template.Validate(validTemplate()))
	})

	t.Run("accepts a template without trigger", func(t *testing.T) {
		t.Parallel()

		tmpl := &template.Template{
			APIVersion: 1,
			Kind:       "jira-template",
			Metadata:   template.Metadata{Name: "one-shot"},
			Actions: []template.Action{
				{
					Type:     template.KindCreateTicket,
					ObjectID: "ticket",
					Fields: map[string]any{
						"project":     "PROJ",
						"issuetype":   "Task",
						"summary":     "weekly chore",
						"description": "created by jiraflow",
					},
				},
			},
		}
		assert.NoError(t, template.Validate(tmpl))
	})

	t.Run("rejects wrong version kind and name", func(t *testing.T) {
		t.Parallel()

		tmpl := validTemplate()
		tmpl.APIVersion = 2
		tmpl.Kind = "jira-workflow"
		tmpl.Metadata.Name = "  "

		want := []template.Violation{
			{Pos: -1, Msg: `unsupported api_version 2 (supported: 1)`},
			{Pos: -1, Msg: `unsupported kind "jira-workflow" (supported: "jira-template")`},
			{Pos: -1, Msg: `metadata.name must not be empty`},
		}
		assert.Equal(t, want, violationsOf(t, template.Validate(tmpl)))
	})

	t.Run("rejects bad trigger", func(t *testing.T) {
		t.Parallel()

		tmpl := validTemplate()
		tmpl.Trigger.Type = "jira-webhook"
		tmpl.Trigger.JQL = "  "

		want := []template.Violation{
			{Pos: 0, ObjectID: "bug", Msg: `unsupported trigger type "jira-webhook" (supported: "jira-jql-search")`},
			{Pos: 0, ObjectID: "bug", Msg: `trigger jql must not be empty`},
		}
		assert.Equal(t, want, violationsOf(t, template.Validate(tmpl)))
	})

	t.Run("rejects empty trigger object id", func(t *testing.T) {
		t.Parallel()

		tmpl := validTemplate()
		tmpl.Trigger.ObjectID = ""
		tmpl.Actions = nil

		want := []template.Violation{
			{Pos: 0, Msg: `trigger object_id must not be empty`},
		}
		assert.Equal(t, want, violationsOf(t, template.Validate(tmpl)))
	})

	t.Run("reports every duplicate occurrence", func(t *testing.T) {
		t.Parallel()

		ticket := template.Action{
			Type: template.KindCreateTicket,
			Fields: map[string]any{
				"project":     "PROJ",
				"issuetype":   "Task",
				"summary":     "s",
				"description": "d",
			},
		}
		first, second := ticket, ticket
		first.ObjectID = "bug"
		second.ObjectID = "bug"

		tmpl := validTemplate()
		tmpl.Actions = []template.Action{first, second}

		want := []template.Violation{
			{Pos: 1, ObjectID: "bug", Msg: `duplicate object_id "bug", already declared by trigger`},
			{Pos: 2, ObjectID: "bug", Msg: `duplicate object_id "bug", already declared by trigger`},
		}
		assert.Equal(t, want, violationsOf(t, template.Validate(tmpl)))
	})

	t.Run("rejects forward references", func(t *testing.T) {
		t.Parallel()

		tmpl := validTemplate()
		tmpl.Actions = []template.Action{
			{
				Type:        template.KindUpdateTicket,
				ObjectID:    "early",
				ReferenceID: "later",
				Fields:      map[string]any{"summary": "updated"},
			},
			{
				Type:     template.KindCreateTicket,
				ObjectID: "later",
				Fields: map[string]any{
					"project":     "PROJ",
					"issuetype":   "Task",
					"summary":     "s",
					"description": "d",
				},
			},
		}

		want := []template.Violation{
			{Pos: 1, ObjectID: "early", Msg: `reference_id "later" is not declared by an earlier action or the trigger`},
		}
		assert.Equal(t, want, violationsOf(t, template.Validate(tmpl)))
	})

	t.Run("rejects tokens for the action's own object id", func(t *testing.T) {
		t.Parallel()

		tmpl := validTemplate()
		tmpl.Actions = []template.Action{
			{
				Type:     template.KindCreateTicket,
				ObjectID: "self",
				Fields: map[string]any{
					"project":     "PROJ",
					"issuetype":   "Task",
					"summary":     "${self.key}",
					"description": "d",
				},
			},
		}

		want := []template.Violation{
			{Pos: 1, ObjectID: "self", Msg: "interpolation token ${self.key} references undeclared object_id \"self\""},
		}
		assert.Equal(t, want, violationsOf(t, template.Validate(tmpl)))
	})

	t.Run("rejects references to link-issues", func(t *testing.T) {
		t.Parallel()

		tmpl := validTemplate()
		tmpl.Actions = []template.Action{
			{
				Type:     template.KindLinkIssues,
				ObjectID: "link",
				Fields: map[string]any{
					"link_type":     "Blocks",
					"inward_issue":  "PROJ-1",
					"outward_issue": "PROJ-2",
				},
			},
			{
				Type:        template.KindUpdateTicket,
				ObjectID:    "updated",
				ReferenceID: "link",
				Fields:      map[string]any{"summary": "updated"},
			},
			{
				Type:        template.KindTransition,
				ObjectID:    "moved",
				ReferenceID: "bug",
				Transition:  "Done",
				Comment:     "${link.key}",
			},
		}

		want := []template.Violation{
			{Pos: 2, ObjectID: "updated", Msg: `reference_id "link" refers to a link-issues action, which binds no entity`},
			{Pos: 3, ObjectID: "moved", Msg: "interpolation token ${link.key} refers to a link-issues action, which binds no entity"},
		}
		assert.Equal(t, want, violationsOf(t, template.Validate(tmpl)))
	})

	t.Run("rejects uncaptured fields", func(t *testing.T) {
		t.Parallel()

		tmpl := validTemplate()
		tmpl.Actions = []template.Action{
			{
				Type:     template.KindCreateTicket,
				ObjectID: "clone",
				ReuseData: []template.ReuseSpec{
					{ReferenceID: "bug", Fields: []string{"key"}},
				},
				Fields: map[string]any{
					"project":     "PROJ",
					"issuetype":   "Task",
					"summary":     "${bug.summary}",
					"description": "${bug.key}",
				},
			},
		}

		want := []template.Violation{
			{Pos: 1, ObjectID: "clone", Msg: "interpolation token ${bug.summary}: field \"summary\" of \"bug\" is not captured by any reuse_data at or before this action"},
		}
		assert.Equal(t, want, violationsOf(t, template.Validate(tmpl)))
	})

	t.Run("reports malformed tokens", func(t *testing.T) {
		t.Parallel()

		tmpl := validTemplate()
		tmpl.Actions = []template.Action{
			{
				Type:     template.KindCreateTicket,
				ObjectID: "clone",
				Fields: map[string]any{
					"project":     "PROJ",
					"issuetype":   "Task",
					"summary":     "truncated ${bug.key",
					"description": "d",
				},
			},
		}

		want := []template.Violation{
			{Pos: 1, ObjectID: "clone", Msg: "malformed interpolation token \"${bug.key\", want ${object_id.field}"},
		}
		assert.Equal(t, want, violationsOf(t, template.Validate(tmpl)))
	})

	t.Run("rejects missing create fields", func(t *testing.T) {
		t.Parallel()

		tmpl := validTemplate()
		tmpl.Actions = []template.Action{
			{
				Type:     template.KindCreateTicket,
				ObjectID: "clone",
				Fields:   map[string]any{"project": "PROJ"},
			},
		}

		want := []template.Violation{
			{Pos: 1, ObjectID: "clone", Msg: `create-ticket fields must contain "issuetype"`},
			{Pos: 1, ObjectID: "clone", Msg: `create-ticket fields must contain "summary"`},
			{Pos: 1, ObjectID: "clone", Msg: `create-ticket fields must contain "description"`},
		}
		assert.Equal(t, want, violationsOf(t, template.Validate(tmpl)))
	})

	t.Run("rejects empty update", func(t *testing.T) {
		t.Parallel()

		tmpl := validTemplate()
		tmpl.Actions = []template.Action{
			{Type: template.KindUpdateTicket, ObjectID: "updated"},
		}

		want := []template.Violation{
			{Pos: 1, ObjectID: "updated", Msg: `update-ticket requires a reference_id`},
			{Pos: 1, ObjectID: "updated", Msg: `update-ticket fields must not be empty`},
		}
		assert.Equal(t, want, violationsOf(t, template.Validate(tmpl)))
	})

	t.Run("rejects missing link fields", func(t *testing.T) {
		t.Parallel()

		tmpl := validTemplate()
		tmpl.Actions = []template.Action{
			{
				Type:     template.KindLinkIssues,
				ObjectID: "link",
				Fields:   map[string]any{"link_type": "Blocks"},
			},
		}

		want := []template.Violation{
			{Pos: 1, ObjectID: "link", Msg: `link-issues fields must contain "inward_issue"`},
			{Pos: 1, ObjectID: "link", Msg: `link-issues fields must contain "outward_issue"`},
		}
		assert.Equal(t, want, violationsOf(t, template.Validate(tmpl)))
	})

	t.Run("rejects empty transition", func(t *testing.T) {
		t.Parallel()

		tmpl := validTemplate()
		tmpl.Actions = []template.Action{
			{Type: template.KindTransition, ObjectID: "moved", Transition: "  "},
		}

		want := []template.Violation{
			{Pos: 1, ObjectID: "moved", Msg: `transition requires a reference_id`},
			{Pos: 1, ObjectID: "moved", Msg: `transition target must not be empty`},
		}
		assert.Equal(t, want, violationsOf(t, template.Validate(tmpl)))
	})

	t.Run("rejects bad reuse_data", func(t *testing.T) {
		t.Parallel()

		tmpl := validTemplate()
		tmpl.Actions = []template.Action{
			{
				Type:     template.KindCreateTicket,
				ObjectID: "clone",
				ReuseData: []template.ReuseSpec{
					{ReferenceID: "", Fields: []string{"key"}},
					{ReferenceID: "ghost", Fields: []string{"key"}},
					{ReferenceID: "bug"},
					{ReferenceID: "bug", Fields: []string{"", "key"}},
				},
				Fields: map[string]any{
					"project":     "PROJ",
					"issuetype":   "Task",
					"summary":     "s",
					"description": "d",
				},
			},
		}

		want := []template.Violation{
			{Pos: 1, ObjectID: "clone", Msg: `reuse_data entry has no reference_id`},
			{Pos: 1, ObjectID: "clone", Msg: `reuse_data reference_id "ghost" is not declared by an earlier action or the trigger`},
			{Pos: 1, ObjectID: "clone", Msg: `reuse_data for "bug" captures no fields`},
			{Pos: 1, ObjectID: "clone", Msg: `reuse_data for "bug" contains an empty field name`},
		}
		assert.Equal(t, want, violationsOf(t, template.Validate(tmpl)))
	})

	t.Run("rejects unknown action types", func(t *testing.T) {
		t.Parallel()

		tmpl := validTemplate()
		tmpl.Actions = []template.Action{
			{Type: "delete-everything", ObjectID: "boom"},
			{ObjectID: "blank"},
		}

		want := []template.Violation{
			{Pos: 1, ObjectID: "boom", Msg: `unknown action type "delete-everything"`},
			{Pos: 2, ObjectID: "blank", Msg: `action type must not be empty`},
		}
		assert.Equal(t, want, violationsOf(t, template.Validate(tmpl)))
	})
}

func TestViolationString(t *testing.T) {
	t.Parallel()

	t.Run("template level", func(t *testing.T) {
		t.Parallel()

		v := template.Violation{Pos: -1, Msg: "unsupported kind"}
		assert.Equal(t, "template: unsupported kind", v.String())
	})

	t.Run("trigger with object id", func(t *testing.T) {
		t.Parallel()

		v := template.Violation{Pos: 0, ObjectID: "bug", Msg: "jql must not be empty"}
		assert.Equal(t, `trigger (object_id "bug"): jql must not be empty`, v.String())
	})

	t.Run("numbered action", func(t *testing.T) {
		t.Parallel()

		v := template.Violation{Pos: 3, Msg: "fields must not be empty"}
		assert.Equal(t, "action 3: fields must not be empty", v.String())
	})
}

func TestValidationErrorError(t *testing.T) {
	t.Parallel()

	err := &template.ValidationError{Violations: []template.Violation{
		{Pos: -1, Msg: "unsupported api_version 2 (supported: 1)"},
		{Pos: 1, ObjectID: "clone", Msg: "create-ticket fields must contain \"summary\""},
	}}

	want := "template validation failed with 2 violation(s):\n" +
		"  - template: unsupported api_version 2 (supported: 1)\n" +
		"  - action 1 (object_id \"clone\"): create-ticket fields must contain \"summary\""
	assert.Equal(t, want, err.Error())
}

func TestActionKindBindsEntity(t *testing.T) {
	t.Parallel()

	assert.True(t, template.KindCreateTicket.BindsEntity())
	assert.True(t, template.KindUpdateTicket.BindsEntity())
	assert.True(t, template.KindTransition.BindsEntity())
	assert.False(t, template.KindLinkIssues.BindsEntity())
}
