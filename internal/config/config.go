package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/containeroo/resolver"
	"gopkg.in/yaml.v3"
)

// FileName is the name of the configuration file Discover looks for.
const FileName = "jiraflow.yaml"

// Sample is printed alongside config errors so users can fix the file
// without reaching for the docs.
const Sample = `A minimal configuration looks like this:

jira:
  url: https://jira.example.com
  auth:
    bearer: env:JIRA_BEARER_TOKEN
logging:
  format: text
  debug: false
`

// Discover returns the path of the first config file found in the usual
// locations: the working directory, the user config directory and /etc.
func Discover() (string, bool) {
	candidates := []string{FileName}
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "jiraflow", FileName))
	}
	candidates = append(candidates, filepath.Join("/etc/jiraflow", FileName))

	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// Load reads, resolves and validates the config file at path. Secret values
// in the auth block may use resolver prefixes (env:, file:, json:) and are
// resolved here, so the rest of the program only ever sees plain values.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := resolveSecrets(&cfg); err != nil {
		return cfg, err
	}
	if err := validate(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// resolveSecrets replaces resolver references in the auth block with their
// resolved values. Plain values pass through unchanged.
func resolveSecrets(cfg *Config) error {
	resolve := func(dst *string, key string) error {
		if *dst == "" {
			return nil
		}
		val, err := resolver.ResolveVariable(*dst)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", key, err)
		}
		*dst = val
		return nil
	}

	if err := resolve(&cfg.Jira.Auth.Bearer, "jira.auth.bearer"); err != nil {
		return err
	}
	if err := resolve(&cfg.Jira.Auth.Email, "jira.auth.email"); err != nil {
		return err
	}
	return resolve(&cfg.Jira.Auth.Token, "jira.auth.token")
}

// validate checks the consistency of the config file. All findings are
// reported at once.
func validate(cfg *Config) error {
	var errs []string

	if cfg.Jira.URL != "" {
		if u, err := url.Parse(cfg.Jira.URL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Sprintf("jira.url %q must be an absolute URL", cfg.Jira.URL))
		}
	}
	if cfg.Jira.Auth.Bearer != "" && (cfg.Jira.Auth.Email != "" || cfg.Jira.Auth.Token != "") {
		errs = append(errs, "jira.auth: bearer and email/token are mutually exclusive")
	}
	if (cfg.Jira.Auth.Email == "") != (cfg.Jira.Auth.Token == "") {
		errs = append(errs, "jira.auth: email and token must be set together")
	}
	switch cfg.Logging.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("logging.format %q must be %q or %q", cfg.Logging.Format, "text", "json"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
