package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ghostkernel/ghostio/config"
	"github.com/ghostkernel/ghostio/resource"
	"github.com/ghostkernel/ghostio/stdio"
	"github.com/ghostkernel/ghostio/system"
)

var resourcesCmd = &cobra.Command{
	Use:   "resources",
	Short: "Inspect the resources available to the system",
}

var resourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the names of the available resources",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := newLoader().List()
		if err != nil {
			return err
		}
		for _, n := range names {
			if _, err := stdio.Puts(n); err != nil {
				return err
			}
		}
		return nil
	},
}

var resourcesShowCmd = &cobra.Command{
	Use:   "show NAME",
	Short: "Load a resource, or the default one when it is missing, and describe it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newLoader().Get(args[0])
		if err != nil {
			return err
		}
		_, err = stdio.Printf("%-6s %s\n%-6s %s\n%-6s %s\n%-6s %s\n",
			"name:", r.Name,
			"path:", r.Path,
			"type:", r.MIME,
			"size:", system.FormatBytes(r.Size()),
		)
		return err
	},
}

func init() {
	resourcesCmd.AddCommand(resourcesListCmd)
	resourcesCmd.AddCommand(resourcesShowCmd)
}

func newLoader() *resource.Loader {
	return resource.NewLoader(stdio.Default(), config.Get().Resources)
}
