package template

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gi8lino/jiraflow/internal/refs"
)

// Violation is one validation failure, tagged with the position of the
// offending part. Pos is the action's 1-based position in the file; 0 marks
// the trigger and -1 template-level violations.
type Violation struct {
	Pos      int
	ObjectID string
	Msg      string
}

// String renders the violation with its location.
func (v Violation) String() string {
	if v.ObjectID == "" {
		return fmt.Sprintf("%s: %s", posLabel(v.Pos), v.Msg)
	}
	return fmt.Sprintf("%s (object_id %q): %s", posLabel(v.Pos), v.ObjectID, v.Msg)
}

func posLabel(pos int) string {
	switch {
	case pos < 0:
		return "template"
	case pos == 0:
		return "trigger"
	default:
		return fmt.Sprintf("action %d", pos)
	}
}

// ValidationError carries every violation found in a template.
type ValidationError struct {
	Violations []Violation
}

// Error joins all violations into one readable message.
func (e *ValidationError) Error() string {
	lines := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		lines = append(lines, "  - "+v.String())
	}
	return fmt.Sprintf("template validation failed with %d violation(s):\n%s",
		len(e.Violations), strings.Join(lines, "\n"))
}

// BindsEntity reports whether actions of this kind leave an entity bound
// under their object_id after execution. link-issues has no entity payload.
func (k ActionKind) BindsEntity() bool {
	return k == KindCreateTicket || k == KindUpdateTicket || k == KindTransition
}

// Validate checks tmpl before any remote call: structural keys, kind-specific
// mandatory fields, object_id uniqueness, declaration-before-use of every
// reference and the resolvability of every interpolation token. All
// violations are collected in one pass; the first error never masks the rest.
func Validate(tmpl *Template) error {
	v := &validator{
		seen:     make(map[string]int),
		bindable: make(map[string]bool),
		captured: make(map[string]map[string]bool),
	}

	if tmpl.APIVersion != SupportedAPIVersion {
		v.addf(-1, "", "unsupported api_version %d (supported: %d)", tmpl.APIVersion, SupportedAPIVersion)
	}
	if tmpl.Kind != KindTemplate {
		v.addf(-1, "", "unsupported kind %q (supported: %q)", tmpl.Kind, KindTemplate)
	}
	if strings.TrimSpace(tmpl.Metadata.Name) == "" {
		v.addf(-1, "", "metadata.name must not be empty")
	}

	if tmpl.Trigger != nil {
		v.trigger(tmpl.Trigger)
	}
	for i := range tmpl.Actions {
		v.action(i+1, &tmpl.Actions[i])
	}

	if len(v.violations) == 0 {
		return nil
	}
	return &ValidationError{Violations: v.violations}
}

// validator accumulates violations while scanning the template in file
// order. seen maps each object_id to its declaring position, bindable marks
// the ids that will hold an entity at runtime and captured tracks which
// fields reuse_data makes interpolatable up to the current action.
type validator struct {
	violations []Violation
	seen       map[string]int
	bindable   map[string]bool
	captured   map[string]map[string]bool
}

func (v *validator) addf(pos int, objectID, format string, args ...any) {
	v.violations = append(v.violations, Violation{Pos: pos, ObjectID: objectID, Msg: fmt.Sprintf(format, args...)})
}

func (v *validator) declare(pos int, objectID string) {
	if first, ok := v.seen[objectID]; ok {
		v.addf(pos, objectID, "duplicate object_id %q, already declared by %s", objectID, posLabel(first))
		return
	}
	v.seen[objectID] = pos
}

func (v *validator) capture(objectID, field string) {
	set, ok := v.captured[objectID]
	if !ok {
		set = make(map[string]bool)
		v.captured[objectID] = set
	}
	set[field] = true
}

func (v *validator) trigger(tr *Trigger) {
	if tr.Type != TriggerJQLSearch {
		v.addf(0, tr.ObjectID, "unsupported trigger type %q (supported: %q)", tr.Type, TriggerJQLSearch)
	}
	if strings.TrimSpace(tr.JQL) == "" {
		v.addf(0, tr.ObjectID, "trigger jql must not be empty")
	}
	if tr.ObjectID == "" {
		v.addf(0, "", "trigger object_id must not be empty")
		return
	}
	v.declare(0, tr.ObjectID)
	v.bindable[tr.ObjectID] = true
}

func (v *validator) action(pos int, act *Action) {
	switch act.Type {
	case KindCreateTicket, KindUpdateTicket, KindLinkIssues, KindTransition:
	case "":
		v.addf(pos, act.ObjectID, "action type must not be empty")
	default:
		v.addf(pos, act.ObjectID, "unknown action type %q", act.Type)
	}

	v.reuseData(pos, act)

	switch act.Type {
	case KindCreateTicket:
		for _, key := range createRequiredFields {
			if _, ok := act.Fields[key]; !ok {
				v.addf(pos, act.ObjectID, "create-ticket fields must contain %q", key)
			}
		}
	case KindUpdateTicket:
		v.reference(pos, act)
		if len(act.Fields) == 0 {
			v.addf(pos, act.ObjectID, "update-ticket fields must not be empty")
		}
	case KindLinkIssues:
		for _, key := range linkRequiredFields {
			if _, ok := act.Fields[key]; !ok {
				v.addf(pos, act.ObjectID, "link-issues fields must contain %q", key)
			}
		}
	case KindTransition:
		v.reference(pos, act)
		if strings.TrimSpace(act.Transition) == "" {
			v.addf(pos, act.ObjectID, "transition target must not be empty")
		}
	}

	walkStrings(act.Fields, func(s string) { v.checkTokens(pos, act.ObjectID, s) })
	v.checkTokens(pos, act.ObjectID, act.Transition)
	v.checkTokens(pos, act.ObjectID, act.Comment)

	// The action's own object_id becomes visible only to later actions.
	if act.ObjectID == "" {
		return
	}
	v.declare(pos, act.ObjectID)
	if !act.Type.BindsEntity() {
		return
	}
	v.bindable[act.ObjectID] = true
	for _, spec := range act.ReuseData {
		for _, field := range spec.Fields {
			if field != "" {
				v.capture(act.ObjectID, field)
			}
		}
	}
}

func (v *validator) reuseData(pos int, act *Action) {
	for _, spec := range act.ReuseData {
		if spec.ReferenceID == "" {
			v.addf(pos, act.ObjectID, "reuse_data entry has no reference_id")
			continue
		}
		v.resolvable(pos, act.ObjectID, spec.ReferenceID, "reuse_data reference_id")
		if len(spec.Fields) == 0 {
			v.addf(pos, act.ObjectID, "reuse_data for %q captures no fields", spec.ReferenceID)
		}
		for _, field := range spec.Fields {
			if field == "" {
				v.addf(pos, act.ObjectID, "reuse_data for %q contains an empty field name", spec.ReferenceID)
				continue
			}
			v.capture(spec.ReferenceID, field)
		}
	}
}

func (v *validator) reference(pos int, act *Action) {
	if act.ReferenceID == "" {
		v.addf(pos, act.ObjectID, "%s requires a reference_id", act.Type)
		return
	}
	v.resolvable(pos, act.ObjectID, act.ReferenceID, "reference_id")
}

// resolvable checks that refID was declared strictly earlier and will hold
// an entity at runtime.
func (v *validator) resolvable(pos int, objectID, refID, what string) {
	if _, ok := v.seen[refID]; !ok {
		v.addf(pos, objectID, "%s %q is not declared by an earlier action or the trigger", what, refID)
		return
	}
	if !v.bindable[refID] {
		v.addf(pos, objectID, "%s %q refers to a link-issues action, which binds no entity", what, refID)
	}
}

func (v *validator) checkTokens(pos int, objectID, s string) {
	tokens, malformed := refs.ScanTokens(s)
	for _, raw := range malformed {
		v.addf(pos, objectID, "malformed interpolation token %q, want ${object_id.field}", raw)
	}
	for _, tok := range tokens {
		switch {
		case !v.bindable[tok.ObjectID]:
			if _, ok := v.seen[tok.ObjectID]; ok {
				v.addf(pos, objectID, "interpolation token %s refers to a link-issues action, which binds no entity", tok.Raw)
			} else {
				v.addf(pos, objectID, "interpolation token %s references undeclared object_id %q", tok.Raw, tok.ObjectID)
			}
		case !v.captured[tok.ObjectID][tok.Field]:
			v.addf(pos, objectID, "interpolation token %s: field %q of %q is not captured by any reuse_data at or before this action", tok.Raw, tok.Field, tok.ObjectID)
		}
	}
}

// walkStrings visits every string scalar of a nested payload in a stable
// order.
func walkStrings(value any, fn func(string)) {
	switch v := value.(type) {
	case string:
		fn(v)
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			walkStrings(v[k], fn)
		}
	case []any:
		for _, item := range v {
			walkStrings(item, fn)
		}
	}
}
