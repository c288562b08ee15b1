package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/moa/internal/compiler"
	"github.com/roach88/moa/internal/engine"
	"github.com/roach88/moa/internal/ir"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                       `json:"valid"`
	Hash   string                     `json:"hash,omitempty"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <catalog-dir>",
		Short: "Validate a catalog",
		Long: `Validate the catalog sources (.cue, .yaml, .hcl) in a directory.

Compiles the sources, runs the structural checks and builds the matrix,
reporting every problem found with its error code.

Exit codes:
  0 - Catalog valid
  1 - Catalog invalid
  2 - Command error (directory not found, no sources, etc.)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, catalogDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	loaded, err := LoadCatalog(catalogDir)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Code == ErrCodeLoadFailed {
			// Source errors are catalog problems, not command problems
			return outputValidationErrors(formatter, []compiler.ValidationError{{
				Field:   "source",
				Message: loadErr.Message,
				Code:    loadErr.Code,
				Line:    loadErr.Line,
			}})
		}
		if errors.As(err, &loadErr) {
			return outputValidateError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return outputValidateError(formatter, ErrCodeGeneric, err.Error(), nil)
	}

	formatter.VerboseLog("Found %d catalog file(s) in %s", loaded.FileCount, catalogDir)

	validationErrors := validateCatalog(loaded.Catalog, newLogger(opts, formatter.GetErrWriter()))
	if len(validationErrors) > 0 {
		return outputValidationErrors(formatter, validationErrors)
	}

	return outputValidateSuccess(formatter, loaded)
}

// validateCatalog runs the structural checks and, when they pass, builds
// the matrix so that anything only Build detects is reported too.
func validateCatalog(c *ir.Catalog, logger *slog.Logger) []compiler.ValidationError {
	errs := compiler.Validate(c)
	if len(errs) > 0 {
		return errs
	}

	logger.Debug("structural checks passed",
		"categories", len(c.Categories),
		"choices", len(c.Choices),
		"options", len(c.Options),
		"filters", len(c.Filters),
	)

	_, err := engine.Build(c, engine.WithBuildLogger(logger))
	for _, ce := range engine.ConfigErrors(err) {
		errs = append(errs, compiler.ValidationError{
			Field:   ce.Entity + "." + ce.Name,
			Message: ce.Message,
			Code:    MapConfigErrorCode(ce.Code),
		})
	}
	return errs
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, loaded *LoadResult) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Hash: loaded.Hash})
	}

	fmt.Fprintf(formatter.Writer, "✓ Catalog valid (%d categories, %d choices, %d options, %d filters)\n",
		len(loaded.Catalog.Categories), len(loaded.Catalog.Choices),
		len(loaded.Catalog.Options), len(loaded.Catalog.Filters))
	return nil
}

// outputValidateError outputs a single command-level error.
func outputValidateError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	// Command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	if formatter.Format == "json" {
		result := ValidationResult{
			Valid:  false,
			Errors: errs,
		}

		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}

// ValidateCatalogDir validates the catalog in a directory.
// This is a helper function for external callers.
func ValidateCatalogDir(catalogDir string) ([]compiler.ValidationError, error) {
	loaded, err := LoadCatalog(catalogDir)
	if err != nil {
		return nil, err
	}
	silent := newLogger(&RootOptions{Format: "text"}, io.Discard)
	return validateCatalog(loaded.Catalog, silent), nil
}
