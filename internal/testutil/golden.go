// Package testutil holds shared test helpers.
package testutil

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// updateGolden controls whether golden files should be updated.
// Use: go test ./... -update
var updateGolden = flag.Bool("update", false, "update golden files")

// ShouldUpdate returns true if golden files should be updated.
func ShouldUpdate() bool {
	return *updateGolden
}

// CompareGolden compares actual output against testdata/<name>.golden,
// rewriting the golden file when -update is set.
func CompareGolden(t *testing.T, name string, actual []byte) {
	t.Helper()

	path := filepath.Join("testdata", name+".golden")

	if ShouldUpdate() {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("failed to create golden dir: %v", err)
		}
		if err := os.WriteFile(path, actual, 0644); err != nil {
			t.Fatalf("failed to update golden file %s: %v", path, err)
		}
		return
	}

	expected, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read golden file %s (run with -update to create it): %v", path, err)
	}

	if !bytes.Equal(expected, actual) {
		t.Errorf("output does not match %s:\n%s", path, diffSummary(expected, actual))
	}
}

// diffSummary points at the first differing line without pulling in a
// diff dependency.
func diffSummary(expected, actual []byte) string {
	expLines := bytes.Split(expected, []byte("\n"))
	actLines := bytes.Split(actual, []byte("\n"))

	n := len(expLines)
	if len(actLines) < n {
		n = len(actLines)
	}
	for i := 0; i < n; i++ {
		if !bytes.Equal(expLines[i], actLines[i]) {
			return fmt.Sprintf("first difference at line %d:\n  expected: %s\n  actual:   %s",
				i+1, expLines[i], actLines[i])
		}
	}
	return fmt.Sprintf("line counts differ: expected %d, actual %d",
		len(expLines), len(actLines))
}
