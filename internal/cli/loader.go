package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/roach88/moa/internal/compiler"
	"github.com/roach88/moa/internal/engine"
	"github.com/roach88/moa/internal/ir"
	"github.com/roach88/moa/internal/store"
)

// LoadError represents an error that occurred while loading a catalog.
type LoadError struct {
	Code    string
	Message string
	File    string
	Line    int
	Err     error
}

func (e *LoadError) Error() string {
	if e.File != "" && e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s: %s", e.File, e.Line, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// LoadResult contains a loaded catalog and where it came from.
type LoadResult struct {
	Catalog   *ir.Catalog
	Hash      string
	FileCount int // Number of source files, 0 when read from a store
}

// LoadCatalog compiles the catalog sources in dir.
func LoadCatalog(dir string) (*LoadResult, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("catalog directory not found: %s", dir), Err: err}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing catalog directory: %v", err), Err: err}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	files, err := compiler.FindCatalogFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err), Err: err}
	}
	if len(files) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no catalog files (.cue, .yaml, .hcl) found in %s", dir)}
	}

	catalog, err := compiler.LoadDir(dir)
	if err != nil {
		return nil, convertCompileError(err)
	}

	hash, err := ir.CatalogHash(catalog)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeGeneric, Message: err.Error(), Err: err}
	}

	return &LoadResult{Catalog: catalog, Hash: hash, FileCount: len(files)}, nil
}

// LoadStoredCatalog reads a catalog by name or hash from a SQLite store.
func LoadStoredCatalog(ctx context.Context, dbPath, ref string) (*LoadResult, error) {
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("database not found: %s", dbPath), Err: err}
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeStoreFailed, Message: fmt.Sprintf("opening database: %v", err), Err: err}
	}
	defer st.Close()

	hash, err := st.Resolve(ctx, ref)
	if err != nil {
		code := ErrCodeStoreFailed
		if errors.Is(err, store.ErrCatalogNotFound) {
			code = ErrCodeNotFound
		}
		return nil, &LoadError{Code: code, Message: err.Error(), Err: err}
	}

	catalog, err := st.ReadCatalog(ctx, hash)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeStoreFailed, Message: fmt.Sprintf("reading catalog: %v", err), Err: err}
	}
	return &LoadResult{Catalog: catalog, Hash: hash}, nil
}

// BuildMatrix builds a matrix from a loaded catalog. ConfigErrors come back
// as a LoadError carrying the joined messages.
func BuildMatrix(res *LoadResult, opts ...engine.BuildOption) (*engine.Matrix, error) {
	m, err := engine.Build(res.Catalog, opts...)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: err.Error(), Err: err}
	}
	return m, nil
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		le := &LoadError{
			Code:    ErrCodeLoadFailed,
			Message: compileErr.Message,
			File:    compileErr.File,
			Line:    compileErr.Line,
			Err:     err,
		}
		if compileErr.Pos.IsValid() {
			le.File = compileErr.Pos.Filename()
			le.Line = compileErr.Pos.Line()
		}
		if compileErr.Field != "" {
			le.Message = compileErr.Field + ": " + compileErr.Message
		}
		return le
	}
	return &LoadError{Code: ErrCodeLoadFailed, Message: err.Error(), Err: err}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No catalog files found
	ErrCodeLoadFailed  = "E004" // Catalog source failed to compile
	ErrCodeNotFound    = "E005" // Path, database or catalog not found
	ErrCodeBuildFailed = "E006" // Matrix build failed
	ErrCodeWriteFailed = "E007" // File or store write error
	ErrCodeStoreFailed = "E008" // Store open/read error
	ErrCodeBadFlag     = "E009" // Malformed flag value
	ErrCodeTestFailed  = "E010" // One or more scenarios failed
)

// MapConfigErrorCode maps an engine ConfigError code to a validation code.
func MapConfigErrorCode(code engine.ConfigErrorCode) string {
	switch code {
	case engine.ErrCodeDuplicateName:
		return compiler.ErrDuplicateName
	case engine.ErrCodeUnknownReference:
		return compiler.ErrUnknownReference
	case engine.ErrCodeEmptyChoice:
		return compiler.ErrEmptyChoice
	case engine.ErrCodeMissingLimit:
		return compiler.ErrMissingLimit
	case engine.ErrCodeInvalidRange:
		return compiler.ErrInvalidRange
	case engine.ErrCodeSharedMember:
		return compiler.ErrSharedMember
	case engine.ErrCodeInvalidLimit:
		return compiler.ErrInvalidLimit
	default:
		return ErrCodeBuildFailed
	}
}
