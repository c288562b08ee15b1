package engine

import (
	"errors"
	"fmt"
)

// Sentinel errors for runtime requests that are rejected without any state
// change.
var (
	// ErrOptionDisabled is returned when selecting an option that has an
	// active incompatibility reason.
	ErrOptionDisabled = errors.New("option is disabled")

	// ErrUnknownOption is returned for a toggle naming no option.
	ErrUnknownOption = errors.New("unknown option")

	// ErrUnknownFilter is returned for a range change naming no filter.
	ErrUnknownFilter = errors.New("unknown filter")

	// ErrEngineStopped is returned when submitting to a stopped engine.
	ErrEngineStopped = errors.New("engine stopped")
)

// ConfigErrorCode categorizes configuration errors.
type ConfigErrorCode string

const (
	// ErrCodeDuplicateName indicates a name declared twice in one mapping.
	ErrCodeDuplicateName ConfigErrorCode = "DUPLICATE_NAME"

	// ErrCodeUnknownReference indicates a reference to an undeclared entity.
	ErrCodeUnknownReference ConfigErrorCode = "UNKNOWN_REFERENCE"

	// ErrCodeEmptyChoice indicates a choice with zero options.
	ErrCodeEmptyChoice ConfigErrorCode = "EMPTY_CHOICE"

	// ErrCodeMissingLimit indicates a filter references an option that has
	// no limit for the filter's attribute.
	ErrCodeMissingLimit ConfigErrorCode = "MISSING_LIMIT"

	// ErrCodeInvalidRange indicates min > max, a non-positive step or a
	// non-finite bound.
	ErrCodeInvalidRange ConfigErrorCode = "INVALID_RANGE"

	// ErrCodeInvalidLimit indicates a NaN or infinite option limit.
	ErrCodeInvalidLimit ConfigErrorCode = "INVALID_LIMIT"

	// ErrCodeSharedMember indicates an option claimed by two choices or a
	// choice claimed by two categories.
	ErrCodeSharedMember ConfigErrorCode = "SHARED_MEMBER"

	// ErrCodeAlreadyWired indicates an option added to a choice after its
	// incompatibilities were wired.
	ErrCodeAlreadyWired ConfigErrorCode = "ALREADY_WIRED"
)

// ConfigError is a fatal, setup-time error in reader input.
//
// Build collects every ConfigError it finds and returns them joined; no
// partial matrix is ever returned.
type ConfigError struct {
	// Code identifies the error category.
	Code ConfigErrorCode

	// Entity is the kind of entity at fault: "category", "choice",
	// "option" or "filter".
	Entity string

	// Name is the entity's name.
	Name string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s %q: %s", e.Code, e.Entity, e.Name, e.Message)
}

func newConfigError(code ConfigErrorCode, entity, name, format string, args ...any) *ConfigError {
	return &ConfigError{
		Code:    code,
		Entity:  entity,
		Name:    name,
		Message: fmt.Sprintf(format, args...),
	}
}

// IsConfigError returns true if err is, wraps or joins a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// ConfigErrors flattens err into the ConfigErrors it carries, in order.
// Works for a single error, a wrapped error and an errors.Join result.
func ConfigErrors(err error) []*ConfigError {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []*ConfigError
		for _, e := range joined.Unwrap() {
			out = append(out, ConfigErrors(e)...)
		}
		return out
	}
	var ce *ConfigError
	if errors.As(err, &ce) {
		return []*ConfigError{ce}
	}
	return nil
}

// InvariantViolation reports a programmer error in the reference-counting
// protocol. It is raised with panic from the reason set and returned as an
// error by Matrix.CheckInvariants.
type InvariantViolation struct {
	// Option is the affected option.
	Option string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violation on option %q: %s", e.Option, e.Message)
}

// IsInvariantViolation returns true if err is or wraps an InvariantViolation.
func IsInvariantViolation(err error) bool {
	var iv *InvariantViolation
	return errors.As(err, &iv)
}
