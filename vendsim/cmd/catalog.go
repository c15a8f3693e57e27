package cmd

import (
	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the items a machine sells.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		printCatalog(cmd.OutOrStdout(), current.catalog)
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
}
