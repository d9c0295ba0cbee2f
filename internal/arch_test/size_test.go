package arch_test

import (
	"os"
	"strings"
	"testing"
)

const (
	maxFilesPerPackage = 12
	maxLinesPerFile    = 400
)

// TestPackageSize bounds the number of files per package and the length of
// every file, tests included.
func TestPackageSize(t *testing.T) {
	t.Parallel()

	for _, p := range loadPackages(t) {
		if n := len(p.files); n > maxFilesPerPackage {
			t.Errorf("package %s has %d .go files (limit: %d); consider splitting", p.name, n, maxFilesPerPackage)
		}
		for _, path := range goFiles(t, p.dir, true) {
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("reading %s: %v", path, err)
			}
			if n := strings.Count(string(data), "\n"); n > maxLinesPerFile {
				t.Errorf("%s has %d lines (limit: %d); consider decomposing", path, n, maxLinesPerFile)
			}
		}
	}
}
