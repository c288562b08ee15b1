package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormatter_JSON(t *testing.T) {
	tests := []struct {
		name  string
		write func(f *OutputFormatter) error
		want  string
	}{
		{
			name:  "success",
			write: func(f *OutputFormatter) error { return f.Success(map[string]int{"options": 5}) },
			want:  `{"status":"ok","data":{"options":5}}`,
		},
		{
			name:  "error",
			write: func(f *OutputFormatter) error { return f.Error(ErrCodeNoFiles, "no catalog files", nil) },
			want:  `{"status":"error","error":{"code":"E003","message":"no catalog files"}}`,
		},
		{
			name: "error_with_details",
			write: func(f *OutputFormatter) error {
				return f.Error(ErrCodeBuildFailed, "catalog invalid", []string{"filters[0].min"})
			},
			want: `{"status":"error","error":{"code":"E006","message":"catalog invalid","details":["filters[0].min"]}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			require.NoError(t, tt.write(&OutputFormatter{Format: "json", Writer: buf}))
			assert.JSONEq(t, tt.want, buf.String())
		})
	}
}

func TestOutputFormatter_Text(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, f.Success("✓ Catalog valid"))
	require.NoError(t, f.Error(ErrCodeNoFiles, "no catalog files", []string{"hidden"}))

	assert.Equal(t, "✓ Catalog valid\nError [E003]: no catalog files\n", buf.String())
}

func TestOutputFormatter_TextErrorVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf, Verbose: true}

	require.NoError(t, f.Error(ErrCodeBuildFailed, "catalog invalid", "filters[0].min"))
	assert.Contains(t, buf.String(), "Error [E006]: catalog invalid")
	assert.Contains(t, buf.String(), "Details: filters[0].min")
}

func TestNewFormatter(t *testing.T) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	f := newFormatter(&RootOptions{Format: "json", Verbose: true}, cmd)
	assert.Equal(t, "json", f.Format)
	assert.True(t, f.Verbose)
	assert.Equal(t, out, f.Writer)
	assert.Equal(t, errOut, f.GetErrWriter())
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:  "text",
				Writer:  buf,
				Verbose: tt.verbose,
			}

			formatter.VerboseLog("Processing %s", "catalog.cue")

			if tt.wantLog {
				assert.Contains(t, buf.String(), "Processing catalog.cue")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestOutputFormatter_VerboseLogUsesErrWriter(t *testing.T) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:    "json",
		Writer:    out,
		ErrWriter: errOut,
		Verbose:   true,
	}

	formatter.VerboseLog("Found %d catalog file(s)", 2)
	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "Found 2 catalog file(s)")
	assert.Equal(t, errOut, formatter.GetErrWriter())
}

func TestCLIResponse_SessionOmittedWhenEmpty(t *testing.T) {
	data, err := json.Marshal(CLIResponse{Status: "ok"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok"}`, string(data))

	data, err = json.Marshal(CLIResponse{Status: "ok", Session: "s-1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok","session":"s-1"}`, string(data))
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"exit_error", NewExitError(ExitCommandError, "boom"), ExitCommandError},
		{"wrapped_exit_error", fmt.Errorf("outer: %w", NewExitError(ExitSuccess, "fine")), ExitSuccess},
		{"plain_error", errors.New("plain"), ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestWrapExitError(t *testing.T) {
	cause := errors.New("disk full")
	err := WrapExitError(ExitCommandError, "writing output", cause)

	assert.Equal(t, "writing output: disk full", err.Error())
	assert.ErrorIs(t, err, cause)
}
