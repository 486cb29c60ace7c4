package refs

import (
	"fmt"
	"sort"
	"strings"
)

// Interpolate walks payload and replaces every ${id.field} token with the
// value captured in table. The input is never modified; nested mappings and
// sequences are rebuilt so callers can reuse the template across iterations.
//
// A string consisting of exactly one token is replaced by the captured value
// with its type preserved, so list or mapping fields survive substitution.
// Tokens embedded in surrounding text are stringified and concatenated.
func Interpolate(payload any, table *Table) (any, error) {
	switch v := payload.(type) {
	case string:
		return InterpolateString(v, table)
	case map[string]any:
		out := make(map[string]any, len(v))
		for _, k := range sortedKeys(v) {
			resolved, err := Interpolate(v[k], table)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", k, err)
			}
			out[k] = resolved
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			resolved, err := Interpolate(item, table)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	default:
		return payload, nil
	}
}

// InterpolateFields resolves every value of a fields mapping.
func InterpolateFields(fields map[string]any, table *Table) (map[string]any, error) {
	if fields == nil {
		return nil, nil
	}
	resolved, err := Interpolate(fields, table)
	if err != nil {
		return nil, err
	}
	return resolved.(map[string]any), nil
}

// InterpolateString resolves the tokens of a single string scalar. The
// result is of type any because a whole-token string takes the type of the
// captured value.
func InterpolateString(s string, table *Table) (any, error) {
	tokens, malformed := ScanTokens(s)
	if len(malformed) > 0 {
		return nil, fmt.Errorf("malformed interpolation token %q", malformed[0])
	}
	if len(tokens) == 0 {
		return s, nil
	}

	if len(tokens) == 1 && tokens[0].Raw == s {
		value, err := table.Resolve(tokens[0].ObjectID, tokens[0].Field)
		if err != nil {
			return nil, fmt.Errorf("cannot resolve %s: %w", tokens[0].Raw, err)
		}
		return value, nil
	}

	var b strings.Builder
	rest := s
	for _, tok := range tokens {
		idx := strings.Index(rest, tok.Raw)
		value, err := table.Resolve(tok.ObjectID, tok.Field)
		if err != nil {
			return nil, fmt.Errorf("cannot resolve %s: %w", tok.Raw, err)
		}
		b.WriteString(rest[:idx])
		b.WriteString(stringify(value))
		rest = rest[idx+len(tok.Raw):]
	}
	b.WriteString(rest)
	return b.String(), nil
}

// stringify renders a captured value for in-string substitution.
func stringify(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprint(value)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
