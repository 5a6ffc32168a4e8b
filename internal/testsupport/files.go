package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteMediaFile creates a placeholder input file for submission tests and
// returns its path. The contents are irrelevant; handlers are faked and only
// existence checks ever read the path.
func WriteMediaFile(t testing.TB, dir, name string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte("media"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
