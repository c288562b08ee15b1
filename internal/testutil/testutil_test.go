package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedSessionGenerator(t *testing.T) {
	g := NewFixedSessionGenerator("s-1")
	assert.Equal(t, "s-1", g.Generate())
	assert.Equal(t, "s-1", g.Generate(), "token never changes")

	assert.Equal(t, "test-session-default", NewFixedSessionGenerator("").Generate())
}

func TestCarCatalogBuilds(t *testing.T) {
	m := BuildMatrix(t, CarCatalog())
	assert.Len(t, m.Options(), 6)
	assert.Len(t, m.Filters(), 1)

	// Fresh catalog per call.
	a, b := CarCatalog(), CarCatalog()
	a.Options[0].Limits["weight"] = 1
	assert.Equal(t, 180.0, b.Options[0].Limits["weight"])
}

func TestStartEngine(t *testing.T) {
	e := StartEngine(t, BuildMatrix(t, CarCatalog()), "fixture")

	entry, err := e.Toggle(context.Background(), "leather", true)
	require.NoError(t, err)
	assert.Equal(t, "fixture", entry.Session)
	assert.Equal(t, []string{"leather"}, entry.Changed)
}
