package cli

import (
	"fmt"
	"slices"

	"github.com/roach88/moa/internal/ir"
	"github.com/spf13/cobra"
)

// RootOptions are the flags shared by every subcommand.
type RootOptions struct {
	Verbose bool
	Format  string // text or json
}

// ValidFormats lists the accepted --format values.
var ValidFormats = []string{"text", "json"}

// NewRootCommand assembles the moa command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "moa",
		Short:   "moa - matrix of alternatives",
		Version: ir.EngineVersion,
		Long: `A configurator engine: mutually exclusive option toggles grouped into
categories and choices, plus range filters that disable options whose
attributes fall outside the selected range.`,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(
		NewValidateCommand(opts),
		NewCompileCommand(opts),
		NewShowCommand(opts),
		NewSimulateCommand(opts),
		NewImportCommand(opts),
		NewCatalogsCommand(opts),
		NewTestCommand(opts),
	)

	return cmd
}
