package jira

import (
	"fmt"
	"sort"
	"strings"
)

// Issue is a single issue as returned by the JIRA REST API. Fields holds the
// raw field mapping so templates can reference any field the search returned.
type Issue struct {
	ID     string         `json:"id"`
	Key    string         `json:"key"`
	Self   string         `json:"self"`
	Fields map[string]any `json:"fields"`

	browseURL string // user-facing issue URL, set by the client
}

// SearchResponse is the top-level structure of the JIRA search API.
type SearchResponse struct {
	StartAt    int      `json:"startAt"`
	MaxResults int      `json:"maxResults"`
	Total      int      `json:"total"`
	Issues     []*Issue `json:"issues"`
}

// createResponse is the reply to a create-issue call. It carries only the
// identifiers; the full issue is fetched separately.
type createResponse struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Self string `json:"self"`
}

// Transition is one workflow transition available on an issue.
type Transition struct {
	ID   string       `json:"id"`
	Name string       `json:"name"`
	To   TransitionTo `json:"to"`
}

// TransitionTo names the status a transition leads to.
type TransitionTo struct {
	Name string `json:"name"`
}

type transitionsResponse struct {
	Transitions []Transition `json:"transitions"`
}

// errorResponse is the error body the JIRA API returns on 4xx/5xx.
type errorResponse struct {
	ErrorMessages []string          `json:"errorMessages"`
	Errors        map[string]string `json:"errors"`
}

// APIError is a non-2xx reply from the JIRA API, decoded into its message
// list and per-field errors when the body was parseable.
type APIError struct {
	Status      int
	Messages    []string
	FieldErrors map[string]string
}

// Error renders the status plus every message the API reported.
func (e *APIError) Error() string {
	parts := make([]string, 0, len(e.Messages)+len(e.FieldErrors))
	parts = append(parts, e.Messages...)
	fields := make([]string, 0, len(e.FieldErrors))
	for field := range e.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e.FieldErrors[field]))
	}
	if len(parts) == 0 {
		return fmt.Sprintf("jira: request failed with status %d", e.Status)
	}
	return fmt.Sprintf("jira: request failed with status %d: %s", e.Status, strings.Join(parts, "; "))
}
