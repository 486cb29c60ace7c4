package refs

import (
	"regexp"
	"strings"
)

// Token is one ${object_id.field} occurrence inside a string scalar.
type Token struct {
	Raw      string // full token text, including "${" and "}"
	ObjectID string
	Field    string
}

// tokenRe matches the inside of a well-formed token: two identifiers joined
// by a dot. Identifiers start with a letter or underscore and may contain
// letters, digits, underscores and dashes.
var tokenRe = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_-]*)\.([A-Za-z_][A-Za-z0-9_-]*)$`)

// ScanTokens extracts all interpolation tokens from s in left-to-right
// order. Candidates that open with "${" but do not form a valid
// "${identifier.identifier}" token are returned as malformed, including an
// unterminated trailing "${...".
func ScanTokens(s string) (tokens []Token, malformed []string) {
	for {
		start := strings.Index(s, "${")
		if start < 0 {
			return tokens, malformed
		}
		rest := s[start:]
		end := strings.Index(rest, "}")
		if end < 0 {
			malformed = append(malformed, rest)
			return tokens, malformed
		}
		raw := rest[:end+1]
		if m := tokenRe.FindStringSubmatch(raw[2 : len(raw)-1]); m != nil {
			tokens = append(tokens, Token{Raw: raw, ObjectID: m[1], Field: m[2]})
		} else {
			malformed = append(malformed, raw)
		}
		s = rest[end+1:]
	}
}
