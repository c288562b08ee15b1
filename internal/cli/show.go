package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/moa/internal/engine"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Database string
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show <catalog-dir | catalog-ref>",
		Short: "Render a catalog's layout",
		Long: `Build the matrix for a catalog and render its initial layout.

Without --db the argument is a directory of catalog sources. With --db it
is the name or hash of a catalog imported into that database.

Examples:
  moa show ./catalogs/car
  moa show --db ./moa.db car --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "read the catalog from this SQLite database")

	return cmd
}

func runShow(opts *ShowOptions, arg string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, formatter.GetErrWriter())

	loaded, err := loadSource(cmd.Context(), opts.Database, arg)
	if err != nil {
		return commandError(formatter, err)
	}
	logger.Debug("catalog loaded", "hash", loaded.Hash)

	m, err := BuildMatrix(loaded, engine.WithBuildLogger(logger))
	if err != nil {
		return commandError(formatter, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(NewLayoutView(m.Layout()))
	}
	return RenderText(formatter.Writer, m.Layout())
}

// loadSource loads a catalog from a source directory, or from a store when
// dbPath is set.
func loadSource(ctx context.Context, dbPath, arg string) (*LoadResult, error) {
	if dbPath == "" {
		return LoadCatalog(arg)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return LoadStoredCatalog(ctx, dbPath, arg)
}

// commandError reports a load or build failure and maps it to an exit code:
// catalog problems exit 1, everything else exits 2.
func commandError(formatter *OutputFormatter, err error) error {
	code, message := ErrCodeGeneric, err.Error()
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		code, message = loadErr.Code, loadErr.Message
		if loadErr.File != "" && loadErr.Line > 0 {
			message = fmt.Sprintf("%s:%d: %s", loadErr.File, loadErr.Line, message)
		}
	}
	_ = formatter.Error(code, message, nil)

	exit := ExitCommandError
	if code == ErrCodeLoadFailed || code == ErrCodeBuildFailed {
		exit = ExitFailure
	}
	return WrapExitError(exit, code, err)
}
