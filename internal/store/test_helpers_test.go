package store

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/roach88/moa/internal/ir"
)

// createTestStore creates a new store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestCatalog creates a small valid catalog with one filter.
func createTestCatalog() *ir.Catalog {
	return &ir.Catalog{
		Categories: []ir.CategorySpec{
			{Number: 1, Name: "body", GUIName: "Body", Choices: []string{"colour", "roof"}},
		},
		Choices: []ir.ChoiceSpec{
			{Number: 1, Name: "colour", Options: []string{"red", "blue"}},
			{Number: 2, Name: "roof", GUIName: "Roof", Options: []string{"hard", "soft"}},
		},
		Options: []ir.OptionSpec{
			{Number: 1, Name: "red", Limits: map[string]float64{"price": 100}},
			{Number: 2, Name: "blue", GUIName: "Deep blue", Limits: map[string]float64{"price": 250.5}},
			{Number: 3, Name: "hard"},
			{Number: 4, Name: "soft"},
		},
		Filters: []ir.FilterSpec{
			{Number: 1, Name: "price", GUIName: "Price", Min: 0, Max: 300, Step: 0.5, Options: []string{"red", "blue"}},
		},
	}
}

// verifyPragma checks that a pragma is set to the expected value.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
