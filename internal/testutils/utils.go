package testutils

import (
	"os"
	"path/filepath"
	"testing"
)

// MustWriteFile writes content to path, creating missing parent directories,
// and fails the test on any error.
func MustWriteFile(t *testing.T, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create directory for %q: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write test file %q: %v", path, err)
	}
}
