package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/hanconv"
	"github.com/aretw0/hanconv/internal/cli"
	"github.com/aretw0/hanconv/internal/presentation/tui"
)

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Check the Python environment and install missing libraries",
	RunE: func(cmd *cobra.Command, args []string) error {
		quiet, _ := cmd.Flags().GetBool("quiet")
		if !quiet {
			tui.PrintBanner(os.Stderr, hanconv.Version)
		}

		conv, _, err := cli.NewConverter(readOptions(cmd), hanconv.WithNotifier(tui.Notifier(os.Stderr)))
		if err != nil {
			return err
		}
		defer conv.Close()

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		return cli.RunProvision(sigCtx, conv, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(provisionCmd)
	provisionCmd.Flags().BoolP("quiet", "q", false, "Do not print the banner")
}
