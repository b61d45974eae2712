package cmd

import (
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/ghostkernel/ghostio/config"
	"github.com/ghostkernel/ghostio/stdio"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the configuration in effect as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := json.MarshalIndent(config.Get(), "", "  ")
		if err != nil {
			return err
		}
		_, err = stdio.Printf("%s\n", b)
		return err
	},
}
