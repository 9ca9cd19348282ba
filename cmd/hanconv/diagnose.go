package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/hanconv/internal/cli"
)

var diagnoseCmd = &cobra.Command{
	Use:     "diagnose",
	Aliases: []string{"doctor"},
	Short:   "Report on the interpreter, libraries, worker script and a trial conversion",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")

		conv, _, err := cli.NewConverter(readOptions(cmd))
		if err != nil {
			return err
		}
		defer conv.Close()

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		pretty := format == cli.FormatMarkdown && cli.StdoutIsTerminal()
		return cli.RunDiagnose(sigCtx, conv, format, pretty, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(diagnoseCmd)
	diagnoseCmd.Flags().StringP("format", "f", cli.FormatMarkdown, "Output format: text, markdown or json")
}
