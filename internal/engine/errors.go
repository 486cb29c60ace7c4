package engine

import (
	"fmt"
	"strings"

	"github.com/gi8lino/jiraflow/internal/template"
)

// ActionError wraps a failed action with its template context so reports can
// point at the exact step. Pos is the action's 1-based position; 0 marks the
// trigger binding.
type ActionError struct {
	Pos      int
	ObjectID string
	Kind     template.ActionKind
	Err      error
}

// Error renders the failure with its location, e.g.
// `action 2 (create-ticket, object_id "bug"): ...`.
func (e *ActionError) Error() string {
	label := "trigger"
	if e.Pos > 0 {
		label = fmt.Sprintf("action %d", e.Pos)
	}
	var details []string
	if e.Kind != "" {
		details = append(details, string(e.Kind))
	}
	if e.ObjectID != "" {
		details = append(details, fmt.Sprintf("object_id %q", e.ObjectID))
	}
	if len(details) > 0 {
		label += " (" + strings.Join(details, ", ") + ")"
	}
	return fmt.Sprintf("%s: %v", label, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is and errors.As.
func (e *ActionError) Unwrap() error { return e.Err }
