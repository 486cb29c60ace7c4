package jira

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldValue(t *testing.T) {
	t.Parallel()

	issue := &Issue{
		ID:   "10001",
		Key:  "PROJ-1",
		Self: "https://jira.example.com/rest/api/2/issue/10001",
		Fields: map[string]any{
			"summary":  "broken login",
			"priority": map[string]any{"name": "High", "id": "2"},
			"project":  map[string]any{"key": "PROJ", "name": "Project"},
			"components": []any{
				map[string]any{"name": "auth", "id": "100"},
				map[string]any{"name": "web", "id": "101"},
			},
			"labels": []any{"regression"},
		},
	}

	t.Run("returns id and key directly", func(t *testing.T) {
		t.Parallel()

		id, err := issue.FieldValue("id")
		require.NoError(t, err)
		assert.Equal(t, "10001", id)

		key, err := issue.FieldValue("key")
		require.NoError(t, err)
		assert.Equal(t, "PROJ-1", key)
	})

	t.Run("derives the permalink", func(t *testing.T) {
		t.Parallel()

		for _, name := range []string{"link", "url", "permalink"} {
			value, err := issue.FieldValue(name)
			require.NoError(t, err)
			assert.Equal(t, "https://jira.example.com/browse/PROJ-1", value, "field %q", name)
		}
	})

	t.Run("collapses priority to its name", func(t *testing.T) {
		t.Parallel()

		value, err := issue.FieldValue("priority")
		require.NoError(t, err)
		assert.Equal(t, "High", value)
	})

	t.Run("collapses project to its key", func(t *testing.T) {
		t.Parallel()

		value, err := issue.FieldValue("project")
		require.NoError(t, err)
		assert.Equal(t, "PROJ", value)
	})

	t.Run("reduces components to name objects", func(t *testing.T) {
		t.Parallel()

		value, err := issue.FieldValue("components")
		require.NoError(t, err)
		assert.Equal(t, []any{
			map[string]any{"name": "auth"},
			map[string]any{"name": "web"},
		}, value)
	})

	t.Run("returns raw values for other fields", func(t *testing.T) {
		t.Parallel()

		value, err := issue.FieldValue("labels")
		require.NoError(t, err)
		assert.Equal(t, []any{"regression"}, value)
	})

	t.Run("fails for a missing field", func(t *testing.T) {
		t.Parallel()

		_, err := issue.FieldValue("assignee")
		assert.EqualError(t, err, `issue PROJ-1 has no field "assignee"`)
	})

	t.Run("fails when priority has no name", func(t *testing.T) {
		t.Parallel()

		bare := &Issue{Key: "PROJ-2", Fields: map[string]any{"priority": map[string]any{"id": "2"}}}
		_, err := bare.FieldValue("priority")
		assert.EqualError(t, err, "issue PROJ-2: priority has no name")
	})

	t.Run("fails when project is missing", func(t *testing.T) {
		t.Parallel()

		bare := &Issue{Key: "PROJ-2", Fields: map[string]any{}}
		_, err := bare.FieldValue("project")
		assert.EqualError(t, err, "issue PROJ-2 has no project field")
	})

	t.Run("skips malformed component entries", func(t *testing.T) {
		t.Parallel()

		mixed := &Issue{Key: "PROJ-3", Fields: map[string]any{
			"components": []any{"not a map", map[string]any{"name": "core"}},
		}}
		value, err := mixed.FieldValue("components")
		require.NoError(t, err)
		assert.Equal(t, []any{map[string]any{"name": "core"}}, value)
	})
}

func TestPermalink(t *testing.T) {
	t.Parallel()

	t.Run("prefers the client-provided browse URL", func(t *testing.T) {
		t.Parallel()

		issue := &Issue{
			Key:       "PROJ-1",
			Self:      "https://internal.example.com/rest/api/2/issue/1",
			browseURL: "https://jira.example.com/browse/PROJ-1",
		}
		assert.Equal(t, "https://jira.example.com/browse/PROJ-1", issue.Permalink())
	})

	t.Run("derives from the self link", func(t *testing.T) {
		t.Parallel()

		issue := &Issue{Key: "PROJ-1", Self: "https://jira.example.com/rest/api/2/issue/1"}
		assert.Equal(t, "https://jira.example.com/browse/PROJ-1", issue.Permalink())
	})

	t.Run("falls back to the self link as-is", func(t *testing.T) {
		t.Parallel()

		issue := &Issue{Key: "PROJ-1", Self: "https://jira.example.com/unknown/1"}
		assert.Equal(t, "https://jira.example.com/unknown/1", issue.Permalink())
	})
}
