package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/moa/internal/ir"
	"github.com/roach88/moa/internal/testutil"
)

func TestCompileValidCatalog(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewCompileCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{catalogDir("car-cue")})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "✓ Compiled 2 categories, 3 choice(s), 6 option(s), 1 filter(s)")
	assert.Contains(t, output, "hash: "+carHash)
}

func TestCompileValidCatalogJSON(t *testing.T) {
	stdout, _, err := execute(t, "--format", "json", "compile", catalogDir("car-hcl"))
	require.NoError(t, err)

	var resp struct {
		Status string            `json:"status"`
		Data   CompilationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, carHash, resp.Data.Hash)
	assert.Equal(t, ir.IRVersion, resp.Data.IRVersion)
	assert.Equal(t, ir.EngineVersion, resp.Data.EngineVersion)
	require.NotNil(t, resp.Data.Catalog)
	assert.Len(t, resp.Data.Catalog.Options, 6)
}

func TestCompileOutputToFile(t *testing.T) {
	outputFile := filepath.Join(t.TempDir(), "compiled.json")

	stdout, _, err := execute(t, "compile", catalogDir("car-yaml"), "--output", outputFile)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Wrote catalog IR to "+outputFile)

	data, err := os.ReadFile(outputFile)
	require.NoError(t, err)

	var result CompilationResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Equal(t, carHash, result.Hash)
	require.NotNil(t, result.Catalog)
	assert.Equal(t, testutil.CarCatalog(), result.Catalog)

	// The written catalog hashes the same as the sources
	hash, err := ir.CatalogHash(result.Catalog)
	require.NoError(t, err)
	assert.Equal(t, carHash, hash)
}

func TestCompileOutputToUnwritablePath(t *testing.T) {
	outputFile := filepath.Join(t.TempDir(), "missing", "dir", "compiled.json")

	stdout, _, err := execute(t, "compile", catalogDir("car-yaml"), "-o", outputFile)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "Error ["+ErrCodeWriteFailed+"]")
}

func TestCompileNonExistentDirectory(t *testing.T) {
	stdout, _, err := execute(t, "compile", "/nonexistent/directory/path")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "Error ["+ErrCodeNotFound+"]")
}

func TestCompileEmptyDirectory(t *testing.T) {
	stdout, _, err := execute(t, "--format", "json", "compile", t.TempDir())
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNoFiles, resp.Error.Code)
}

func TestCompileSourceError(t *testing.T) {
	dir := writeCatalog(t, "categories: {name: drivetrain\n")

	stdout, _, err := execute(t, "compile", dir)
	require.Error(t, err)
	assert.Contains(t, stdout, "Error ["+ErrCodeLoadFailed+"]")
	assert.Contains(t, stdout, "yaml")
}

func TestCompileVerboseOutput(t *testing.T) {
	_, stderr, err := execute(t, "-v", "compile", catalogDir("car-cue"))
	require.NoError(t, err)
	assert.Contains(t, stderr, "Found 2 catalog file(s)")
}

func TestPlural(t *testing.T) {
	assert.Equal(t, "y", plural(1, "y", "ies"))
	assert.Equal(t, "ies", plural(0, "y", "ies"))
	assert.Equal(t, "ies", plural(2, "y", "ies"))
}
