package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/hanconv/internal/cli"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Serves conversions, diagnostics and provisioning as a JSON API over HTTP,
with Prometheus metrics at /metrics and an event stream at /v1/events.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		provision, _ := cmd.Flags().GetBool("provision")

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		return cli.RunServe(sigCtx, readOptions(cmd), cli.ServeOptions{
			Addr:      addr,
			Provision: provision,
		}, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "Address to listen on")
	serveCmd.Flags().Bool("provision", true, "Provision dependencies in the background at startup")
}
