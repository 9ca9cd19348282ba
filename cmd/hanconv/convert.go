package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/hanconv/internal/cli"
)

var convertCmd = &cobra.Command{
	Use:   "convert [text...]",
	Short: "Convert or translate text",
	Long: `Converts the given text with the chosen action and prints the result.
Without arguments the text is read from stdin.

Run 'hanconv actions' for the list of actions.`,
	Example: `  hanconv convert -a simplify 簡體字轉換測試
  cat notes.txt | hanconv convert -a translate_en --lines`,
	RunE: func(cmd *cobra.Command, args []string) error {
		action, _ := cmd.Flags().GetString("action")
		asJSON, _ := cmd.Flags().GetBool("json")
		lines, _ := cmd.Flags().GetBool("lines")

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		text, err := cli.ReadInput(sigCtx, args, os.Stdin, len(args) == 0 && cli.StdinIsTerminal())
		if err != nil {
			return err
		}

		conv, _, err := cli.NewConverter(readOptions(cmd))
		if err != nil {
			return err
		}
		defer conv.Close()

		return cli.RunConvert(sigCtx, conv, text, cli.ConvertOptions{
			Action: action,
			JSON:   asJSON,
			Lines:  lines,
		}, os.Stdout, os.Stderr)
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringP("action", "a", "simplify", "Action to apply")
	convertCmd.Flags().Bool("json", false, "Print results as JSON lines")
	convertCmd.Flags().Bool("lines", false, "Convert each input line separately")
}
