package hash

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
)

// Fingerprint returns a short stable identifier for v, derived from its
// JSON form hashed with FNV-1a 64. Two runs of the same parsed template
// produce the same fingerprint.
func Fingerprint(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to serialize: %w", err)
	}

	h := fnv.New64a()
	h.Write(data) // nolint:errcheck

	return fmt.Sprintf("%x", h.Sum64()), nil
}
