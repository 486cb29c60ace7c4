package render

import (
	"bytes"
	"io/fs"
	"text/template"

	"github.com/gi8lino/jiraflow/internal/engine"
)

// IssueRow is one line of the list command's table.
type IssueRow struct {
	Key     string
	Updated string // raw Jira timestamp, formatted by the template
	Summary string
	URL     string
}

// issueTableView is the data handed to the issue table template.
type issueTableView struct {
	Rows     []IssueRow
	KeyWidth int
}

// Renderer executes the embedded output templates.
type Renderer struct {
	tmpl *template.Template
}

// New parses every output template of outFS.
func New(outFS fs.FS) (*Renderer, error) {
	tmpl, err := template.New("").Funcs(TemplateFuncMap()).ParseFS(outFS, "templates/*.gotmpl")
	if err != nil {
		return nil, err
	}
	return &Renderer{tmpl: tmpl}, nil
}

// IssueTable renders the trigger matches as a plain text table.
func (r *Renderer) IssueTable(rows []IssueRow) (string, error) {
	width := len("KEY")
	for _, row := range rows {
		if len(row.Key) > width {
			width = len(row.Key)
		}
	}

	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, "issue_table.gotmpl", issueTableView{Rows: rows, KeyWidth: width}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RunReport renders the summary of an executed template run.
func (r *Renderer) RunReport(report *engine.Report) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, "run_report.gotmpl", report); err != nil {
		return "", err
	}
	return buf.String(), nil
}
