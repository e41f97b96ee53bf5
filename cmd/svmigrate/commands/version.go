package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/svco/svmigrate/internal/ui"
	"github.com/svco/svmigrate/internal/version"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// No configuration is needed to print the version.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(ui.Out, version.Get().FullString())
		},
	}
}
