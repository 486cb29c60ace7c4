package refs_test

import (
	"testing"

	"github.com/gi8lino/jiraflow/internal/refs"
	"github.com/gi8lino/jiraflow/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTable binds one entity and captures the given fields under objectID.
func newTable(t *testing.T, objectID string, fields map[string]any) *refs.Table {
	t.Helper()

	table := refs.NewTable()
	require.NoError(t, table.Bind(objectID, testutils.MockEntity{IssueKey: "PROJ-1", Fields: fields}))
	for name, value := range fields {
		require.NoError(t, table.Capture(objectID, name, value))
	}
	return table
}

func TestInterpolateString(t *testing.T) {
	t.Parallel()

	t.Run("whole token keeps string value", func(t *testing.T) {
		t.Parallel()

		table := newTable(t, "issue", map[string]any{"key": "PROJ-123"})
		value, err := refs.InterpolateString("${issue.key}", table)
		require.NoError(t, err)
		assert.Equal(t, "PROJ-123", value)
	})

	t.Run("whole token preserves list type", func(t *testing.T) {
		t.Parallel()

		components := []any{"ui", "backend"}
		table := newTable(t, "issue", map[string]any{"components": components})

		value, err := refs.InterpolateString("${issue.components}", table)
		require.NoError(t, err)
		assert.Equal(t, components, value)
	})

	t.Run("token with surrounding text concatenates", func(t *testing.T) {
		t.Parallel()

		table := newTable(t, "issue", map[string]any{"key": "PROJ-123"})
		value, err := refs.InterpolateString("Clone of ${issue.key}!", table)
		require.NoError(t, err)
		assert.Equal(t, "Clone of PROJ-123!", value)
	})

	t.Run("mixed token stringifies non-string values", func(t *testing.T) {
		t.Parallel()

		table := newTable(t, "issue", map[string]any{"components": []any{"ui", "backend"}, "rank": 7})

		value, err := refs.InterpolateString("parts: ${issue.components}, rank ${issue.rank}", table)
		require.NoError(t, err)
		assert.Equal(t, "parts: [ui backend], rank 7", value)
	})

	t.Run("no tokens returns input unchanged", func(t *testing.T) {
		t.Parallel()

		table := refs.NewTable()
		value, err := refs.InterpolateString("plain text", table)
		require.NoError(t, err)
		assert.Equal(t, "plain text", value)
	})

	t.Run("unknown reference fails", func(t *testing.T) {
		t.Parallel()

		table := refs.NewTable()
		_, err := refs.InterpolateString("${ghost.key}", table)
		require.Error(t, err)
		assert.ErrorIs(t, err, refs.ErrUnknownReference)
		assert.Contains(t, err.Error(), "${ghost.key}")
	})

	t.Run("uncaptured field fails", func(t *testing.T) {
		t.Parallel()

		table := newTable(t, "issue", map[string]any{"key": "PROJ-1"})
		_, err := refs.InterpolateString("${issue.summary}", table)
		require.Error(t, err)
		assert.ErrorIs(t, err, refs.ErrFieldNotCaptured)
	})

	t.Run("malformed token fails", func(t *testing.T) {
		t.Parallel()

		table := refs.NewTable()
		_, err := refs.InterpolateString("${issue.key", table)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "malformed interpolation token")
	})
}

func TestInterpolate(t *testing.T) {
	t.Parallel()

	t.Run("walks nested mappings and sequences", func(t *testing.T) {
		t.Parallel()

		table := newTable(t, "bug", map[string]any{"key": "BUG-1", "priority": "High"})
		payload := map[string]any{
			"summary": "Follow-up for ${bug.key}",
			"labels":  []any{"auto", "${bug.key}"},
			"nested": []any{
				map[string]any{"issue": "${bug.key}", "priority": "${bug.priority}"},
			},
			"count": 3,
			"flag":  true,
		}

		resolved, err := refs.Interpolate(payload, table)
		require.NoError(t, err)

		want := map[string]any{
			"summary": "Follow-up for BUG-1",
			"labels":  []any{"auto", "BUG-1"},
			"nested": []any{
				map[string]any{"issue": "BUG-1", "priority": "High"},
			},
			"count": 3,
			"flag":  true,
		}
		assert.Equal(t, want, resolved)
	})

	t.Run("does not modify the input payload", func(t *testing.T) {
		t.Parallel()

		table := newTable(t, "bug", map[string]any{"key": "BUG-1"})
		payload := map[string]any{
			"summary": "${bug.key}",
			"labels":  []any{"${bug.key}"},
		}

		_, err := refs.Interpolate(payload, table)
		require.NoError(t, err)

		assert.Equal(t, "${bug.key}", payload["summary"])
		assert.Equal(t, []any{"${bug.key}"}, payload["labels"])
	})

	t.Run("names the failing field", func(t *testing.T) {
		t.Parallel()

		table := refs.NewTable()
		payload := map[string]any{"description": "${ghost.key}"}

		_, err := refs.Interpolate(payload, table)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `field "description"`)
	})
}

func TestInterpolateFields(t *testing.T) {
	t.Parallel()

	t.Run("nil fields stay nil", func(t *testing.T) {
		t.Parallel()

		resolved, err := refs.InterpolateFields(nil, refs.NewTable())
		require.NoError(t, err)
		assert.Nil(t, resolved)
	})

	t.Run("returns a new map", func(t *testing.T) {
		t.Parallel()

		table := newTable(t, "bug", map[string]any{"key": "BUG-1"})
		fields := map[string]any{"summary": "${bug.key}"}

		resolved, err := refs.InterpolateFields(fields, table)
		require.NoError(t, err)
		assert.Equal(t, "BUG-1", resolved["summary"])
		assert.Equal(t, "${bug.key}", fields["summary"])
	})
}
