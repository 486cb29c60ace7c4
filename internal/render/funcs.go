package render

import (
	"strings"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
)

// TemplateFuncMap returns all helper functions for the output templates.
func TemplateFuncMap() template.FuncMap {
	fm := sprig.TxtFuncMap()
	fm["rpad"] = rpad
	fm["formatJiraDate"] = formatJiraDate
	return fm
}

// rpad pads s with spaces to the given width.
func rpad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// formatJiraDate parses a Jira timestamp and returns it formatted using the provided layout.
// If parsing fails, the original string is returned.
func formatJiraDate(input, layout string) string {
	input = strings.Replace(input, "Z", "+0000", 1) // normalize timezone
	parsed, err := time.Parse("2006-01-02T15:04:05.000-0700", input)
	if err != nil {
		return input
	}
	return parsed.Format(layout)
}
