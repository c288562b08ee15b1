package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// catalogDir returns one of the shared car catalog renditions
// (car-yaml, car-cue, car-hcl, mixed).
func catalogDir(name string) string {
	return filepath.Join("..", "..", "testdata", "catalogs", name)
}

// scenariosDir is the shared scenario suite.
func scenariosDir() string {
	return filepath.Join("..", "..", "testdata", "scenarios")
}

// writeCatalog writes a single YAML catalog file into a fresh directory.
func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalog.yaml"), []byte(content), 0644))
	return dir
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

const brokenCatalog = `
categories:
  - name: drivetrain
    choices: [engine, wheels]
choices:
  - name: engine
    options: [petrol]
options:
  - name: petrol
filters:
  - name: weight
    min: 10
    max: 0
    options: [petrol]
`
