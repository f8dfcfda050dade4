package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newVersionCmd creates the command that prints the version injected by main.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of toolgate",
		Long:  `Print the toolgate version, as set at build time with -ldflags "-X main.version=...".`,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "toolgate version %s\n", GetVersion())
		},
	}
}
