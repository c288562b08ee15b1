package compiler

import (
	"fmt"
	"math"
	"strings"

	"github.com/roach88/moa/internal/ir"
)

// Validation error codes (E100-E199)
const (
	// General validation errors (E100)
	ErrUnsupportedIRType = "E100" // unsupported IR type for validation

	// Catalog errors (E101-E109)
	ErrEmptyName        = "E101" // entity name is empty
	ErrDuplicateName    = "E102" // name declared twice in one mapping
	ErrUnknownReference = "E103" // reference to an undeclared entity
	ErrEmptyChoice      = "E104" // choice without options
	ErrInvalidRange     = "E105" // min > max or non-finite bound
	ErrInvalidStep      = "E106" // negative or non-finite step
	ErrMissingLimit     = "E107" // filter option has no limit for the filter
	ErrSharedMember     = "E108" // option in two choices, choice in two categories
	ErrUnknownLimit     = "E109" // limit keyed by an undeclared filter
	ErrInvalidLimit     = "E110" // NaN or infinite option limit
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate validates a compiled catalog against schema rules.
// Returns all errors found (does not fail-fast).
func Validate(v any) []ValidationError {
	switch c := v.(type) {
	case *ir.Catalog:
		return validateCatalog(c)
	case ir.Catalog:
		return validateCatalog(&c)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported IR type: %T", v),
			Code:    ErrUnsupportedIRType,
		}}
	}
}

// validateCatalog checks the four mappings and their cross references.
func validateCatalog(c *ir.Catalog) []ValidationError {
	var errs []ValidationError

	options := make(map[string]ir.OptionSpec)
	for i, o := range c.Options {
		field := fmt.Sprintf("options[%d]", i)
		errs = append(errs, checkName(field, "option", o.Name, options)...)
		if o.Name != "" {
			if _, dup := options[o.Name]; !dup {
				options[o.Name] = o
			}
		}
	}

	filters := make(map[string]bool)
	for i, f := range c.Filters {
		field := fmt.Sprintf("filters[%d]", i)
		errs = append(errs, checkName(field, "filter", f.Name, filters)...)
		filters[f.Name] = true

		if math.IsNaN(f.Min) || math.IsNaN(f.Max) || math.IsInf(f.Min, 0) || math.IsInf(f.Max, 0) {
			errs = append(errs, ValidationError{
				Field:   field + ".min",
				Message: fmt.Sprintf("range bounds must be finite, got [%v, %v]", f.Min, f.Max),
				Code:    ErrInvalidRange,
			})
		} else if f.Min > f.Max {
			errs = append(errs, ValidationError{
				Field:   field + ".min",
				Message: fmt.Sprintf("min %v is greater than max %v", f.Min, f.Max),
				Code:    ErrInvalidRange,
			})
		}
		if math.IsNaN(f.Step) || math.IsInf(f.Step, 0) || f.Step < 0 {
			errs = append(errs, ValidationError{
				Field:   field + ".step",
				Message: fmt.Sprintf("step must be positive, got %v", f.Step),
				Code:    ErrInvalidStep,
			})
		}

		for j, name := range f.Options {
			ref := fmt.Sprintf("%s.options[%d]", field, j)
			o, ok := options[name]
			if !ok {
				errs = append(errs, unknownRef(ref, "option", name))
				continue
			}
			if _, ok := o.Limits[f.Name]; !ok {
				errs = append(errs, ValidationError{
					Field:   ref,
					Message: fmt.Sprintf("option %q has no %q limit", name, f.Name),
					Code:    ErrMissingLimit,
				})
			}
		}
	}

	for i, o := range c.Options {
		for _, limit := range o.LimitNames() {
			if v := o.Limits[limit]; math.IsNaN(v) || math.IsInf(v, 0) {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("options[%d].limits.%s", i, limit),
					Message: fmt.Sprintf("limit %v is not a finite number", v),
					Code:    ErrInvalidLimit,
				})
			}
			if !filters[limit] {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("options[%d].limits.%s", i, limit),
					Message: fmt.Sprintf("no filter named %q", limit),
					Code:    ErrUnknownLimit,
				})
			}
		}
	}

	choices := make(map[string]bool)
	optionOwner := make(map[string]string)
	for i, ch := range c.Choices {
		field := fmt.Sprintf("choices[%d]", i)
		errs = append(errs, checkName(field, "choice", ch.Name, choices)...)
		choices[ch.Name] = true

		if len(ch.Options) == 0 {
			errs = append(errs, ValidationError{
				Field:   field + ".options",
				Message: fmt.Sprintf("choice %q has no options", ch.Name),
				Code:    ErrEmptyChoice,
			})
		}
		for j, name := range ch.Options {
			ref := fmt.Sprintf("%s.options[%d]", field, j)
			if _, ok := options[name]; !ok {
				errs = append(errs, unknownRef(ref, "option", name))
				continue
			}
			if prev, taken := optionOwner[name]; taken && prev != ch.Name {
				errs = append(errs, sharedMember(ref, "option", name, prev))
				continue
			}
			optionOwner[name] = ch.Name
		}
	}

	categories := make(map[string]bool)
	choiceOwner := make(map[string]string)
	for i, cat := range c.Categories {
		field := fmt.Sprintf("categories[%d]", i)
		errs = append(errs, checkName(field, "category", cat.Name, categories)...)
		categories[cat.Name] = true

		for j, name := range cat.Choices {
			ref := fmt.Sprintf("%s.choices[%d]", field, j)
			if !choices[name] {
				errs = append(errs, unknownRef(ref, "choice", name))
				continue
			}
			if prev, taken := choiceOwner[name]; taken && prev != cat.Name {
				errs = append(errs, sharedMember(ref, "choice", name, prev))
				continue
			}
			choiceOwner[name] = cat.Name
		}
	}

	return errs
}

// checkName reports empty and duplicate names. seen is any map keyed by
// the names declared so far.
func checkName[V any](field, entity, name string, seen map[string]V) []ValidationError {
	if strings.TrimSpace(name) == "" {
		return []ValidationError{{
			Field:   field + ".name",
			Message: entity + " name is required and must be non-empty",
			Code:    ErrEmptyName,
		}}
	}
	if _, dup := seen[name]; dup {
		return []ValidationError{{
			Field:   field + ".name",
			Message: fmt.Sprintf("duplicate %s name: %q", entity, name),
			Code:    ErrDuplicateName,
		}}
	}
	return nil
}

func unknownRef(field, entity, name string) ValidationError {
	return ValidationError{
		Field:   field,
		Message: fmt.Sprintf("unknown %s %q", entity, name),
		Code:    ErrUnknownReference,
	}
}

func sharedMember(field, entity, name, owner string) ValidationError {
	return ValidationError{
		Field:   field,
		Message: fmt.Sprintf("%s %q already belongs to %q", entity, name, owner),
		Code:    ErrSharedMember,
	}
}
