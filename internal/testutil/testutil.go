// Package testutil holds helpers shared by tests across packages: project
// root discovery and synthetic probability-matrix fixtures.
package testutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// projectMarkers must all exist in the repository root.
var projectMarkers = []string{"go.mod", "cmd", "internal"}

// ProjectRoot walks up from this source file to the first directory holding
// go.mod, and checks that it also holds the cmd and internal trees.
func ProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", errors.New("failed to get caller information")
	}
	for dir := filepath.Dir(filename); ; dir = filepath.Dir(dir) {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			for _, marker := range projectMarkers {
				if _, err := os.Stat(filepath.Join(dir, marker)); err != nil {
					return "", fmt.Errorf("invalid project root %s: %w", dir, err)
				}
			}
			return dir, nil
		}
		if parent := filepath.Dir(dir); parent == dir {
			return "", fmt.Errorf("could not find go.mod above %s", filepath.Dir(filename))
		}
	}
}

// TempFile writes content to name inside a per-test temporary directory and
// returns its path.
func TempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
