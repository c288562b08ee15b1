// Package testutil holds deterministic helpers and catalog fixtures shared
// by tests across packages.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/moa/internal/engine"
	"github.com/roach88/moa/internal/ir"
)

// CarCatalog returns a fresh two-category catalog:
//
//	drivetrain: engine {petrol 180, diesel 220, electric 320}, gearbox {manual, automatic}
//	interior:   seats {leather}
//	filter weight [0, 400] step 10 over the engine options
//
// It matches testdata/catalogs/car-*.
func CarCatalog() *ir.Catalog {
	return &ir.Catalog{
		Categories: []ir.CategorySpec{
			{Number: 1, Name: "drivetrain", GUIName: "Drivetrain", Choices: []string{"engine", "gearbox"}},
			{Number: 2, Name: "interior", Choices: []string{"seats"}},
		},
		Choices: []ir.ChoiceSpec{
			{Number: 1, Name: "engine", GUIName: "Engine", Options: []string{"petrol", "diesel", "electric"}},
			{Number: 2, Name: "gearbox", GUIName: "Gearbox", Options: []string{"manual", "automatic"}},
			{Number: 3, Name: "seats", Options: []string{"leather"}},
		},
		Options: []ir.OptionSpec{
			{Number: 1, Name: "petrol", GUIName: "Petrol", Limits: map[string]float64{"weight": 180}},
			{Number: 2, Name: "diesel", GUIName: "Diesel", Limits: map[string]float64{"weight": 220}},
			{Number: 3, Name: "electric", GUIName: "Electric", Limits: map[string]float64{"weight": 320}},
			{Number: 4, Name: "manual"},
			{Number: 5, Name: "automatic"},
			{Number: 6, Name: "leather", GUIName: "Leather"},
		},
		Filters: []ir.FilterSpec{
			{Number: 1, Name: "weight", GUIName: "Weight (kg)", Min: 0, Max: 400, Step: 10,
				Options: []string{"petrol", "diesel", "electric"}},
		},
	}
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// BuildMatrix builds a matrix and fails the test on any config error.
func BuildMatrix(t testing.TB, r engine.Reader, opts ...engine.BuildOption) *engine.Matrix {
	t.Helper()
	opts = append([]engine.BuildOption{engine.WithBuildLogger(DiscardLogger())}, opts...)
	m, err := engine.Build(r, opts...)
	require.NoError(t, err)
	return m
}

// StartEngine wraps m in an engine with a fixed session token and runs it
// until the test ends.
func StartEngine(t testing.TB, m *engine.Matrix, session string) *engine.Engine {
	t.Helper()
	e := engine.New(m,
		engine.WithLogger(DiscardLogger()),
		engine.WithSessionGenerator(NewFixedSessionGenerator(session)),
	)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = e.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return e
}
