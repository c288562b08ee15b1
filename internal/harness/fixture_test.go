package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// projectRoot returns the project root directory.
// Tests run from the package directory, so go up two levels.
func projectRoot() string {
	root, _ := filepath.Abs("../..")
	return root
}

// carCatalogDir is the YAML rendition of the shared car catalog.
func carCatalogDir() string {
	return filepath.Join(projectRoot(), "testdata", "catalogs", "car-yaml")
}

// writeScenario writes content to name inside dir and returns the path.
func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func boolPtr(b bool) *bool { return &b }

func floatPtr(f float64) *float64 { return &f }
