package template

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads and parses the template file at path.
func Load(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template file: %w", err)
	}
	tmpl, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template file %q: %w", path, err)
	}
	return tmpl, nil
}

// Parse decodes YAML data into a Template. Unknown keys are rejected so a
// typo in an action block surfaces as an error instead of a silently dropped
// setting.
func Parse(data []byte) (*Template, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var tmpl Template
	if err := dec.Decode(&tmpl); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("template is empty")
		}
		return nil, err
	}
	return &tmpl, nil
}
