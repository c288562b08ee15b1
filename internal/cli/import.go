package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/moa/internal/engine"
	"github.com/roach88/moa/internal/store"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Database string
	Name     string
}

// ImportResult describes a stored catalog.
type ImportResult struct {
	Name  string   `json:"name"`
	Hash  string   `json:"hash"`
	Names []string `json:"names"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <catalog-dir>",
		Short: "Compile a catalog and store it in SQLite",
		Long: `Compile the catalog sources in a directory, check that they build, and
store the catalog in a SQLite database (created if it doesn't exist).

The catalog is stored under its content hash and the given name (default:
the directory name). Importing unchanged sources again only moves the name.

Example:
  moa import --db ./moa.db ./catalogs/car
  moa import --db ./moa.db ./catalogs/car --name car-2024`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Name, "name", "", "catalog name (default: directory name)")

	return cmd
}

func runImport(opts *ImportOptions, catalogDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, formatter.GetErrWriter())

	loaded, err := LoadCatalog(catalogDir)
	if err != nil {
		return commandError(formatter, err)
	}
	if _, err := BuildMatrix(loaded, engine.WithBuildLogger(logger)); err != nil {
		return commandError(formatter, err)
	}

	name := opts.Name
	if name == "" {
		name = filepath.Base(filepath.Clean(catalogDir))
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	logger.Info("opening database", "path", opts.Database)
	st, err := store.Open(opts.Database, store.WithLogger(logger))
	if err != nil {
		return commandError(formatter, &LoadError{Code: ErrCodeStoreFailed, Message: fmt.Sprintf("opening database: %v", err), Err: err})
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	hash, err := st.WriteCatalog(ctx, name, loaded.Catalog)
	if err != nil {
		return commandError(formatter, &LoadError{Code: ErrCodeWriteFailed, Message: err.Error(), Err: err})
	}
	names, err := st.NamesFor(ctx, hash)
	if err != nil {
		return commandError(formatter, &LoadError{Code: ErrCodeStoreFailed, Message: err.Error(), Err: err})
	}
	logger.Info("catalog stored", "name", name, "hash", hash)

	result := ImportResult{Name: name, Hash: hash, Names: names}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Imported %s\n", name)
	fmt.Fprintf(formatter.Writer, "  hash: %s\n", hash)
	if len(names) > 1 {
		fmt.Fprintf(formatter.Writer, "  also known as: %s\n", joinOthers(names, name))
	}
	return nil
}

// joinOthers joins names without skip.
func joinOthers(names []string, skip string) string {
	out := ""
	for _, n := range names {
		if n == skip {
			continue
		}
		if out != "" {
			out += ", "
		}
		out += n
	}
	return out
}
