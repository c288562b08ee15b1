package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileYAML(t *testing.T) {
	src := []byte(`
options:
  - name: small
    number: 10
    limits: {size: 1}
  - name: large
    limits: {size: 9.5}
filters:
  - name: size
    min: 0
    max: 10
    options: [small, large]
`)
	cat, err := CompileYAML(src, "sizes.yaml")
	require.NoError(t, err)

	require.Len(t, cat.Options, 2)
	assert.Equal(t, 10, cat.Options[0].Number)
	assert.Equal(t, 2, cat.Options[1].Number)
	assert.Equal(t, 9.5, cat.Options[1].Limits["size"])

	require.Len(t, cat.Filters, 1)
	assert.Equal(t, 1.0, cat.Filters[0].Step)
	assert.Equal(t, []string{"small", "large"}, cat.Filters[0].Options)
}

func TestCompileYAML_Empty(t *testing.T) {
	cat, err := CompileYAML(nil, "empty.yaml")
	require.NoError(t, err)
	assert.Empty(t, cat.Options)
}

func TestCompileYAML_Errors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		message string
	}{
		{"unknown field", "options:\n  - name: a\n    colour: red\n", "colour"},
		{"wrong type", "options: 3\n", "cannot unmarshal"},
		{"filter without bounds", "filters:\n  - name: w\n    options: []\n", "min and max are required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileYAML([]byte(tt.src), "bad.yaml")
			require.Error(t, err)
			var ce *CompileError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, "bad.yaml", ce.File)
			assert.Contains(t, ce.Message, tt.message)
		})
	}
}
