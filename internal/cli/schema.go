package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/fxdispatch/internal/catalog"
)

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the compiled catalog",
		Long: `Print the JSON Schema describing the catalog JSON written by compile.

Hosts and editors can use it to check hand-written or generated catalogs.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := catalog.SchemaJSON()
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to render schema", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
