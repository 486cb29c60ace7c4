package flag

import (
	"fmt"
	"io"
	"strings"

	"github.com/containeroo/tinyflags"
	"github.com/gi8lino/jiraflow/internal/logging"
)

// Command selects one of the CLI subcommands.
type Command string

const (
	CommandRun      Command = "run"
	CommandValidate Command = "validate"
	CommandList     Command = "list"
)

// Options holds all flags of one subcommand invocation after parsing.
type Options struct {
	Command         Command
	Template        string            // Path to the template file
	Config          string            // Path to the config file, empty = discover
	JiraURL         string            // Base URL of the Jira server
	JiraBearerToken string            // Personal access token (Bearer auth)
	JiraEmail       string            // User email (Basic auth)
	JiraToken       string            // API token (Basic auth)
	SkipTLSVerify   bool              // Skip TLS certificate verification
	Debug           bool              // Enables debug logging
	LogFormat       logging.LogFormat // Log output format, empty = config file default
}

// Usage returns the top-level help text.
func Usage() string {
	return `jiraflow automates Jira issue workflows from declarative templates.

Usage:
  jiraflow <command> [flags]

Commands:
  run        Validate a template and execute it against Jira
  validate   Validate a template without talking to Jira
  list       List the issues the template trigger currently matches
  help       Show this help
  version    Print version information

Run 'jiraflow <command> --help' for the flags of a command.
`
}

// ParseRun parses the flags of the run command.
func ParseRun(version string, args []string, out io.Writer, getEnv func(string) string) (Options, error) {
	return parseCommand(CommandRun, version, args, out, getEnv)
}

// ParseValidate parses the flags of the validate command.
func ParseValidate(version string, args []string, out io.Writer, getEnv func(string) string) (Options, error) {
	return parseCommand(CommandValidate, version, args, out, getEnv)
}

// ParseList parses the flags of the list command.
func ParseList(version string, args []string, out io.Writer, getEnv func(string) string) (Options, error) {
	return parseCommand(CommandList, version, args, out, getEnv)
}

// parseCommand parses args into Options. validate never talks to Jira, so
// the connection flags are only registered for run and list.
func parseCommand(cmd Command, version string, args []string, out io.Writer, getEnv func(string) string) (Options, error) {
	opts := Options{Command: cmd}
	tf := tinyflags.NewFlagSet("jiraflow "+string(cmd), tinyflags.ContinueOnError)
	tf.Version(version)
	tf.SetGetEnvFn(getEnv)
	tf.EnvPrefix("JIRAFLOW")
	tf.SetOutput(out)

	tf.StringVar(&opts.Template, "template", "", "Path to the template file").
		Short("t").
		Placeholder("FILE").
		Value()
	tf.StringVar(&opts.Config, "config", "", "Path to the config file (default: discovered)").
		Placeholder("FILE").
		Value()

	if cmd != CommandValidate {
		tf.StringVar(&opts.JiraURL, "jira-url", "", "Base URL of the Jira server (e.g. https://jira.example.com)").
			Placeholder("URL").
			Value()
		tf.StringVar(&opts.JiraBearerToken, "jira-bearer-token", "", "Personal access token for Bearer authentication").Value()
		tf.StringVar(&opts.JiraEmail, "jira-email", "", "Account email for Basic authentication").Value()
		tf.StringVar(&opts.JiraToken, "jira-token", "", "API token for Basic authentication").Value()
		tf.BoolVar(&opts.SkipTLSVerify, "jira-skip-tls-verify", false, "Skip TLS certificate verification").Value()
	}

	// Logging
	tf.BoolVar(&opts.Debug, "debug", false, "Enable debug logging").Value()
	logFormat := tf.String("log-format", "", "Log format (text or json)").Short("l").Value()

	// Parse
	if err := tf.Parse(args); err != nil {
		return Options{}, err
	}

	// Post-parse
	opts.LogFormat = logging.LogFormat(*logFormat)
	if strings.TrimSpace(opts.Template) == "" {
		return Options{}, fmt.Errorf("missing required flag --template")
	}

	return opts, nil
}
