package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/moa/internal/store"
)

// CatalogsOptions holds flags for the catalogs command.
type CatalogsOptions struct {
	*RootOptions
	Database string
}

// CatalogsResult lists stored catalogs.
type CatalogsResult struct {
	Catalogs []store.CatalogInfo `json:"catalogs"`
}

// NewCatalogsCommand creates the catalogs command.
func NewCatalogsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CatalogsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "catalogs [name | hash]",
		Short: "List catalogs stored in a database",
		Long: `List the named catalogs stored in a SQLite database.

With an argument, only the names that point at the same catalog as the
given name or hash are listed.

Examples:
  moa catalogs --db ./moa.db
  moa catalogs --db ./moa.db car --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := ""
			if len(args) == 1 {
				ref = args[0]
			}
			return runCatalogs(opts, ref, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runCatalogs(opts *CatalogsOptions, ref string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := os.Stat(opts.Database); os.IsNotExist(err) {
		return commandError(formatter, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("database not found: %s", opts.Database), Err: err})
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return commandError(formatter, &LoadError{Code: ErrCodeStoreFailed, Message: fmt.Sprintf("opening database: %v", err), Err: err})
	}
	defer st.Close()

	infos, err := listCatalogs(ctx, st, ref)
	if err != nil {
		return commandError(formatter, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(CatalogsResult{Catalogs: infos})
	}

	w := formatter.Writer
	if len(infos) == 0 {
		fmt.Fprintln(w, "No catalogs stored.")
		return nil
	}
	width := 0
	for _, info := range infos {
		width = max(width, len(info.Name))
	}
	for _, info := range infos {
		fmt.Fprintf(w, "%-*s  %s  (ir %s, engine %s)\n",
			width, info.Name, shortHash(info.Hash), info.IRVersion, info.EngineVersion)
	}
	return nil
}

// listCatalogs returns every named catalog, or only those sharing ref's hash.
func listCatalogs(ctx context.Context, st *store.Store, ref string) ([]store.CatalogInfo, error) {
	infos, err := st.ListCatalogs(ctx)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeStoreFailed, Message: err.Error(), Err: err}
	}
	if ref == "" {
		return infos, nil
	}

	hash, err := st.Resolve(ctx, ref)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: err.Error(), Err: err}
	}
	names, err := st.NamesFor(ctx, hash)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeStoreFailed, Message: err.Error(), Err: err}
	}

	keep := make(map[string]bool, len(names))
	for _, n := range names {
		keep[n] = true
	}
	filtered := []store.CatalogInfo{}
	for _, info := range infos {
		if keep[info.Name] {
			filtered = append(filtered, info)
		}
	}
	return filtered, nil
}

// shortHash truncates a content hash for display.
func shortHash(hash string) string {
	if len(hash) <= 12 {
		return hash
	}
	return strings.ToLower(hash[:12])
}
