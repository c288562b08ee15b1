package engine

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/moa/internal/ir"
)

// carCatalog is a small two-category catalog with one weight filter over
// the engine options.
func carCatalog() *ir.Catalog {
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

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func buildCar(t *testing.T, opts ...BuildOption) *Matrix {
	t.Helper()
	opts = append([]BuildOption{WithBuildLogger(quietLogger())}, opts...)
	m, err := Build(carCatalog(), opts...)
	require.NoError(t, err)
	return m
}

func mustOption(t *testing.T, m *Matrix, name string) *Option {
	t.Helper()
	o, ok := m.Option(name)
	require.True(t, ok, "option %q not found", name)
	return o
}

// recorder collects observer notifications.
type recorder struct {
	options []OptionState
	filters []FilterState
}

func (r *recorder) OptionChanged(s OptionState) { r.options = append(r.options, s) }
func (r *recorder) FilterChanged(s FilterState) { r.filters = append(r.filters, s) }

func (r *recorder) names() []string {
	out := make([]string, len(r.options))
	for i, s := range r.options {
		out[i] = s.Name
	}
	return out
}

// choiceOf wires free-standing options into one choice.
func choiceOf(t *testing.T, name string, options ...*Option) *Choice {
	t.Helper()
	ch := NewChoice(1, name, "")
	for _, o := range options {
		require.NoError(t, ch.AddOption(o))
	}
	ch.WireIncompatibilities()
	return ch
}

// recoverViolation runs fn and returns the InvariantViolation it panicked
// with, or nil.
func recoverViolation(fn func()) (iv *InvariantViolation) {
	defer func() {
		if r := recover(); r != nil {
			iv, _ = r.(*InvariantViolation)
		}
	}()
	fn()
	return nil
}
