package config

// Config is the optional application configuration file. Values given on the
// command line take precedence over it.
type Config struct {
	Jira    JiraConfig    `yaml:"jira,omitempty"`
	Logging LoggingConfig `yaml:"logging,omitempty"`
}

// JiraConfig holds the server location and credentials.
type JiraConfig struct {
	URL  string     `yaml:"url,omitempty"`
	Auth AuthConfig `yaml:"auth,omitempty"`
}

// AuthConfig carries either a bearer token or an email/token pair. Secret
// values may use resolver prefixes such as env:JIRA_TOKEN or
// file:/run/secrets/jira so the secret is loaded at startup instead of being
// written into the file.
type AuthConfig struct {
	Bearer string `yaml:"bearer,omitempty"`
	Email  string `yaml:"email,omitempty"`
	Token  string `yaml:"token,omitempty"`
}

// LoggingConfig sets defaults for the logging flags.
type LoggingConfig struct {
	Format string `yaml:"format,omitempty"`
	Debug  bool   `yaml:"debug,omitempty"`
}
