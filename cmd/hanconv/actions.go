package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/hanconv/internal/cli"
)

var actionsCmd = &cobra.Command{
	Use:   "actions",
	Short: "List the supported actions",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		return cli.RunActions(os.Stdout, asJSON)
	},
}

func init() {
	rootCmd.AddCommand(actionsCmd)
	actionsCmd.Flags().Bool("json", false, "Print as JSON")
}
