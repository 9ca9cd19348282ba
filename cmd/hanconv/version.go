package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/hanconv"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of hanconv",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("hanconv version %s\n", strings.TrimSpace(hanconv.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
