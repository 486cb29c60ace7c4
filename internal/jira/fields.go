package jira

import (
	"fmt"
	"strings"
)

// FieldValue extracts a referenceable field value from the issue. A few
// names get special treatment so templates can reuse them directly: id, key
// and the permalink come from the issue itself, priority and project
// collapse to their name/key, and components reduce to the {name} list shape
// the create API accepts. Everything else is looked up in the raw field map.
func (i *Issue) FieldValue(name string) (any, error) {
	switch name {
	case "id":
		return i.ID, nil
	case "key":
		return i.Key, nil
	case "link", "url", "permalink":
		return i.Permalink(), nil
	case "priority":
		return i.nestedName("priority")
	case "project":
		project, ok := i.Fields["project"].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("issue %s has no project field", i.Key)
		}
		key, ok := project["key"].(string)
		if !ok {
			return nil, fmt.Errorf("issue %s: project has no key", i.Key)
		}
		return key, nil
	case "components":
		raw, ok := i.Fields["components"].([]any)
		if !ok {
			return nil, fmt.Errorf("issue %s has no components field", i.Key)
		}
		components := make([]any, 0, len(raw))
		for _, item := range raw {
			component, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if componentName, ok := component["name"].(string); ok {
				components = append(components, map[string]any{"name": componentName})
			}
		}
		return components, nil
	default:
		value, ok := i.Fields[name]
		if !ok {
			return nil, fmt.Errorf("issue %s has no field %q", i.Key, name)
		}
		return value, nil
	}
}

// nestedName unwraps fields like priority that the API reports as an object
// with a name.
func (i *Issue) nestedName(field string) (any, error) {
	nested, ok := i.Fields[field].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("issue %s has no %s field", i.Key, field)
	}
	name, ok := nested["name"].(string)
	if !ok {
		return nil, fmt.Errorf("issue %s: %s has no name", i.Key, field)
	}
	return name, nil
}

// Permalink returns the user-facing browse URL of the issue.
func (i *Issue) Permalink() string {
	if i.browseURL != "" {
		return i.browseURL
	}
	// Fall back to deriving it from the API self link.
	if idx := strings.Index(i.Self, "/rest/"); idx >= 0 {
		return i.Self[:idx] + "/browse/" + i.Key
	}
	return i.Self
}
