package cmd

import (
	"github.com/mitchellh/colorstring"
	"github.com/spf13/cobra"

	"github.com/ghostkernel/ghostio/stdio"
	"github.com/ghostkernel/ghostio/system"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and exit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := stdio.Printf(colorstring.Color("[blue][bold]ghostio[reset] [bold]v%s[reset]\n"), system.Version)
		return err
	},
}
