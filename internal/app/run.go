package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/containeroo/tinyflags"

	"github.com/gi8lino/jiraflow/internal/config"
	"github.com/gi8lino/jiraflow/internal/engine"
	"github.com/gi8lino/jiraflow/internal/flag"
	"github.com/gi8lino/jiraflow/internal/jira"
	"github.com/gi8lino/jiraflow/internal/logging"
	"github.com/gi8lino/jiraflow/internal/render"
	"github.com/gi8lino/jiraflow/internal/template"
)

// Run executes one CLI invocation and writes all output to w.
func Run(ctx context.Context, outFS fs.FS, version, commit string, args []string, w io.Writer, getEnv func(string) string) error {
	// Create a new context that listens for interrupt signals
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if len(args) == 0 {
		fmt.Fprint(w, flag.Usage()) // nolint:errcheck
		return nil
	}

	// Parse command-line flags
	var opts flag.Options
	var err error
	switch args[0] {
	case "help", "-h", "--help":
		fmt.Fprint(w, flag.Usage()) // nolint:errcheck
		return nil
	case "version", "-v", "--version":
		fmt.Fprintf(w, "jiraflow %s (commit %s)\n", version, commit) // nolint:errcheck
		return nil
	case string(flag.CommandRun):
		opts, err = flag.ParseRun(version, args[1:], w, getEnv)
	case string(flag.CommandValidate):
		opts, err = flag.ParseValidate(version, args[1:], w, getEnv)
	case string(flag.CommandList):
		opts, err = flag.ParseList(version, args[1:], w, getEnv)
	default:
		return fmt.Errorf("unknown command %q (see 'jiraflow help')", args[0])
	}
	if err != nil {
		if tinyflags.IsHelpRequested(err) || tinyflags.IsVersionRequested(err) {
			fmt.Fprint(w, err.Error()) // nolint:errcheck
			return nil
		}
		return fmt.Errorf("parsing error: %w", err)
	}

	// Load config
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	// Setup logger
	logFormat := opts.LogFormat
	if logFormat == "" {
		logFormat = logging.LogFormat(cfg.Logging.Format)
	}
	logger := logging.SetupLogger(logFormat, opts.Debug || cfg.Logging.Debug, w)

	logger.Info("Starting jiraflow",
		"version", version,
		"command", string(opts.Command),
	)

	// Load and validate the template
	tmpl, err := template.Load(opts.Template)
	if err != nil {
		return fmt.Errorf("loading template error: %w", err)
	}
	if err := template.Validate(tmpl); err != nil {
		return fmt.Errorf("validating template error: %w", err)
	}
	logger.Debug("template valid", "name", tmpl.Metadata.Name, "actions", len(tmpl.Actions))

	if opts.Command == flag.CommandValidate {
		fmt.Fprintf(w, "Template %q is valid.\n", tmpl.Metadata.Name) // nolint:errcheck
		return nil
	}

	// Setup jira client
	client, err := newJiraClient(opts, cfg, logger)
	if err != nil {
		return err
	}

	// Parse the output templates
	renderer, err := render.New(outFS)
	if err != nil {
		return fmt.Errorf("output template parse error: %w", err)
	}

	if opts.Command == flag.CommandList {
		return runList(ctx, w, tmpl, client, renderer)
	}
	return runTemplate(ctx, w, tmpl, client, renderer, logger)
}

// loadConfig loads the explicit config file or, when none was given, the
// first discovered one. Running without any config file is fine; the
// connection settings must then come from flags.
func loadConfig(opts flag.Options) (config.Config, error) {
	path := opts.Config
	if path == "" {
		discovered, ok := config.Discover()
		if !ok {
			return config.Config{}, nil
		}
		path = discovered
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("config file %q is invalid: %w\n\n%s", path, err, config.Sample)
	}
	return cfg, nil
}

// newJiraClient merges flag and config settings into an authenticated client.
func newJiraClient(opts flag.Options, cfg config.Config, logger *slog.Logger) (*jira.Client, error) {
	rawURL := firstNonEmpty(opts.JiraURL, cfg.Jira.URL)
	if rawURL == "" {
		return nil, errors.New("missing Jira URL: set --jira-url or jira.url in the config file")
	}
	apiURL, err := apiBaseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Jira URL %q: %w", rawURL, err)
	}

	auth, method, err := jira.ResolveAuth(
		firstNonEmpty(opts.JiraBearerToken, cfg.Jira.Auth.Bearer),
		firstNonEmpty(opts.JiraEmail, cfg.Jira.Auth.Email),
		firstNonEmpty(opts.JiraToken, cfg.Jira.Auth.Token),
	)
	if err != nil {
		return nil, err
	}

	logger.Debug("jira auth", "method", method, "header", jira.ObfuscatedHeader(auth))

	return jira.NewClient(apiURL, auth, opts.SkipTLSVerify), nil
}

// apiBaseURL appends the REST API prefix to the server base URL. The
// trailing slash keeps relative references resolving below the prefix.
func apiBaseURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSuffix(rawURL, "/"))
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.New("must be absolute (https://host)")
	}
	if strings.Contains(u.Path, "/rest/api/") {
		return url.Parse(u.String() + "/")
	}
	return url.Parse(u.String() + "/rest/api/2/")
}

// runList prints the issues the template trigger currently matches.
func runList(ctx context.Context, w io.Writer, tmpl *template.Template, client *jira.Client, renderer *render.Renderer) error {
	if tmpl.Trigger == nil {
		return errors.New("template has no trigger to list issues for")
	}
	issues, err := client.SearchIssues(ctx, tmpl.Trigger.JQL)
	if err != nil {
		return fmt.Errorf("trigger search error: %w", err)
	}
	if len(issues) == 0 {
		fmt.Fprintln(w, "No issues found.") // nolint:errcheck
		return nil
	}

	rows := make([]render.IssueRow, 0, len(issues))
	for _, issue := range issues {
		summary, _ := issue.Fields["summary"].(string)
		updated, _ := issue.Fields["updated"].(string)
		rows = append(rows, render.IssueRow{Key: issue.Key, Updated: updated, Summary: summary, URL: issue.Permalink()})
	}
	out, err := renderer.IssueTable(rows)
	if err != nil {
		return fmt.Errorf("render error: %w", err)
	}
	fmt.Fprint(w, out) // nolint:errcheck
	return nil
}

// runTemplate executes the template and prints the run report. A failed
// iteration makes the invocation fail after the report is printed.
func runTemplate(ctx context.Context, w io.Writer, tmpl *template.Template, client *jira.Client, renderer *render.Renderer, logger *slog.Logger) error {
	eng := engine.New(jira.NewAdapter(client), logger)
	report, err := eng.Execute(ctx, tmpl)
	if err != nil {
		return fmt.Errorf("executing template error: %w", err)
	}
	out, err := renderer.RunReport(report)
	if err != nil {
		return fmt.Errorf("render error: %w", err)
	}
	fmt.Fprint(w, out) // nolint:errcheck
	return report.Err()
}

// firstNonEmpty returns the first non-empty string.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
