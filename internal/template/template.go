package template

// SupportedAPIVersion is the only template schema version this build accepts.
const SupportedAPIVersion = 1

// KindTemplate is the expected value of the top-level "kind" key.
const KindTemplate = "jira-template"

// TriggerJQLSearch selects trigger entities with a JQL search.
const TriggerJQLSearch = "jira-jql-search"

// ActionKind names one of the supported action types.
type ActionKind string

const (
	KindCreateTicket ActionKind = "create-ticket"
	KindUpdateTicket ActionKind = "update-ticket"
	KindLinkIssues   ActionKind = "link-issues"
	KindTransition   ActionKind = "transition"
)

// Field names link-issues payloads must carry.
const (
	FieldLinkType     = "link_type"
	FieldInwardIssue  = "inward_issue"
	FieldOutwardIssue = "outward_issue"
)

// createRequiredFields are the payload keys every create-ticket action needs.
var createRequiredFields = []string{"project", "issuetype", "summary", "description"}

// linkRequiredFields are the payload keys every link-issues action needs.
var linkRequiredFields = []string{FieldLinkType, FieldInwardIssue, FieldOutwardIssue}

// Template is a parsed automation template: an optional trigger that selects
// the issues to iterate over and an ordered list of actions executed once per
// matched issue (or once in total when no trigger is set).
type Template struct {
	APIVersion int      `yaml:"api_version"`
	Kind       string   `yaml:"kind"`
	Metadata   Metadata `yaml:"metadata"`
	Trigger    *Trigger `yaml:"trigger,omitempty"`
	Actions    []Action `yaml:"actions"`
}

// Metadata describes the template itself.
type Metadata struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
}

// Trigger selects the entities a run iterates over.
type Trigger struct {
	Type     string `yaml:"type"`
	ObjectID string `yaml:"object_id"`
	JQL      string `yaml:"jql"`
}

// Action is one step of a template. Which fields apply depends on Type.
type Action struct {
	Type        ActionKind     `yaml:"type"`
	ObjectID    string         `yaml:"object_id,omitempty"`
	ReferenceID string         `yaml:"reference_id,omitempty"`
	ReuseData   []ReuseSpec    `yaml:"reuse_data,omitempty"`
	Fields      map[string]any `yaml:"fields,omitempty"`
	Transition  string         `yaml:"transition,omitempty"`
	Comment     string         `yaml:"comment,omitempty"`
}

// ReuseSpec declares which fields of an already bound entity should be
// captured so later actions can interpolate them.
type ReuseSpec struct {
	ReferenceID string   `yaml:"reference_id"`
	Fields      []string `yaml:"fields"`
}
