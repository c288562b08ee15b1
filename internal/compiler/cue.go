package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/moa/internal/ir"
)

// CompileCatalog parses a CUE value into a Catalog.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// Each mapping is a struct keyed by entity name; field order is display
// order:
//
//	category: drivetrain: { gui_name: "Drivetrain", choices: ["engine"] }
//	choice: engine: { options: ["petrol", "diesel"] }
//	option: petrol: { limits: weight: 180 }
//	option: diesel: { limits: weight: 220 }
//	filter: weight: { min: 0, max: 400, step: 10, options: ["petrol", "diesel"] }
//
// A missing number defaults to the 1-based position in its mapping.
func CompileCatalog(v cue.Value) (*ir.Catalog, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	cat := &ir.Catalog{}

	err := eachEntity(v, "category", func(pos int, name string, e cue.Value) error {
		spec := ir.CategorySpec{Name: name}
		var err error
		if spec.Number, spec.GUIName, err = parseIdentity(e, pos); err != nil {
			return err
		}
		if spec.Choices, err = parseNames(e, "choices", false); err != nil {
			return err
		}
		cat.Categories = append(cat.Categories, spec)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = eachEntity(v, "choice", func(pos int, name string, e cue.Value) error {
		spec := ir.ChoiceSpec{Name: name}
		var err error
		if spec.Number, spec.GUIName, err = parseIdentity(e, pos); err != nil {
			return err
		}
		if spec.Options, err = parseNames(e, "options", true); err != nil {
			return err
		}
		cat.Choices = append(cat.Choices, spec)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = eachEntity(v, "option", func(pos int, name string, e cue.Value) error {
		spec := ir.OptionSpec{Name: name}
		var err error
		if spec.Number, spec.GUIName, err = parseIdentity(e, pos); err != nil {
			return err
		}
		if spec.Limits, err = parseLimits(e); err != nil {
			return err
		}
		cat.Options = append(cat.Options, spec)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = eachEntity(v, "filter", func(pos int, name string, e cue.Value) error {
		spec := ir.FilterSpec{Name: name, Step: ir.DefaultStep}
		var err error
		if spec.Number, spec.GUIName, err = parseIdentity(e, pos); err != nil {
			return err
		}
		if spec.Min, err = requiredFloat(e, "min"); err != nil {
			return err
		}
		if spec.Max, err = requiredFloat(e, "max"); err != nil {
			return err
		}
		if stepVal := e.LookupPath(cue.ParsePath("step")); stepVal.Exists() {
			if spec.Step, err = stepVal.Float64(); err != nil {
				return formatCUEError(err)
			}
		}
		if spec.Options, err = parseNames(e, "options", true); err != nil {
			return err
		}
		cat.Filters = append(cat.Filters, spec)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return cat, nil
}

// eachEntity walks the fields of a top-level mapping in declaration order.
// A missing mapping is the same as an empty one.
func eachEntity(v cue.Value, mapping string, fn func(pos int, name string, e cue.Value) error) error {
	mv := v.LookupPath(cue.ParsePath(mapping))
	if !mv.Exists() {
		return nil
	}
	iter, err := mv.Fields()
	if err != nil {
		return &CompileError{
			Field:   mapping,
			Message: fmt.Sprintf("must be a struct keyed by %s name", mapping),
			Pos:     mv.Pos(),
		}
	}
	pos := 0
	for iter.Next() {
		pos++
		if err := fn(pos, iter.Label(), iter.Value()); err != nil {
			return fmt.Errorf("%s %q: %w", mapping, iter.Label(), err)
		}
	}
	return nil
}

// parseIdentity reads the optional number and gui_name fields.
func parseIdentity(e cue.Value, pos int) (int, string, error) {
	number := pos
	if nv := e.LookupPath(cue.ParsePath("number")); nv.Exists() {
		n, err := nv.Int64()
		if err != nil {
			return 0, "", &CompileError{Field: "number", Message: "must be an integer", Pos: nv.Pos()}
		}
		number = int(n)
	}

	var gui string
	if gv := e.LookupPath(cue.ParsePath("gui_name")); gv.Exists() {
		s, err := gv.String()
		if err != nil {
			return 0, "", &CompileError{Field: "gui_name", Message: "must be a string", Pos: gv.Pos()}
		}
		gui = s
	}
	return number, gui, nil
}

// parseNames reads a list of entity names.
func parseNames(e cue.Value, field string, required bool) ([]string, error) {
	lv := e.LookupPath(cue.ParsePath(field))
	if !lv.Exists() {
		if required {
			return nil, &CompileError{Field: field, Message: field + " is required", Pos: e.Pos()}
		}
		return nil, nil
	}
	iter, err := lv.List()
	if err != nil {
		return nil, &CompileError{Field: field, Message: "must be a list of names", Pos: lv.Pos()}
	}
	names := []string{}
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{Field: field, Message: "must be a list of names", Pos: iter.Value().Pos()}
		}
		names = append(names, s)
	}
	return names, nil
}

// parseLimits reads the per-filter attribute values of an option.
func parseLimits(e cue.Value) (map[string]float64, error) {
	lv := e.LookupPath(cue.ParsePath("limits"))
	if !lv.Exists() {
		return nil, nil
	}
	iter, err := lv.Fields()
	if err != nil {
		return nil, &CompileError{Field: "limits", Message: "must be a struct keyed by filter name", Pos: lv.Pos()}
	}
	limits := make(map[string]float64)
	for iter.Next() {
		f, err := iter.Value().Float64()
		if err != nil {
			return nil, &CompileError{
				Field:   "limits." + iter.Label(),
				Message: "must be a number",
				Pos:     iter.Value().Pos(),
			}
		}
		limits[iter.Label()] = f
	}
	return limits, nil
}

func requiredFloat(e cue.Value, field string) (float64, error) {
	fv := e.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return 0, &CompileError{Field: field, Message: field + " is required", Pos: e.Pos()}
	}
	f, err := fv.Float64()
	if err != nil {
		return 0, &CompileError{Field: field, Message: "must be a number", Pos: fv.Pos()}
	}
	return f, nil
}

// CompileError represents a compilation error with source position.
//
// CUE errors carry Pos; YAML and HCL errors carry File and Line.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
	File    string
	Line    int
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	if e.File != "" && e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s: %s", e.File, e.Line, e.Field, e.Message)
	}
	if e.File != "" {
		return fmt.Sprintf("%s: %s: %s", e.File, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
