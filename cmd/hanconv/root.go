package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/hanconv/internal/cli"
)

var rootCmd = &cobra.Command{
	Use:   "hanconv",
	Short: "hanconv converts Chinese text between scripts and translates it",
	Long: `hanconv converts Chinese text between Simplified and Traditional script and
translates it, by delegating each request to a Python worker (converter.py).

It can provision the worker's libraries, diagnose the environment, and serve
conversions over HTTP or as MCP tools.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "Configuration file (default ./hanconv.yaml if present)")
	pf.Bool("debug", false, "Enable debug logging to stderr")
	pf.String("log-level", "", "Log level: debug, info, warn, error (default: silent)")
	pf.Bool("log-json", false, "Emit logs as JSON")
	pf.String("extension-dir", "", "Directory holding the worker script")
	pf.String("python", "", "Python interpreter to run")
	pf.Duration("timeout", 0, "Per-conversion timeout (e.g. 30s)")
	pf.String("cache", "", "Result cache backend: none, memory or redis")
}

// readOptions collects the persistent flags.
func readOptions(cmd *cobra.Command) cli.Options {
	f := cmd.Flags()
	var opts cli.Options
	opts.ConfigPath, _ = f.GetString("config")
	opts.Debug, _ = f.GetBool("debug")
	opts.LogLevel, _ = f.GetString("log-level")
	opts.LogJSON, _ = f.GetBool("log-json")
	opts.ExtensionDir, _ = f.GetString("extension-dir")
	opts.Python, _ = f.GetString("python")
	opts.Timeout, _ = f.GetDuration("timeout")
	opts.CacheBackend, _ = f.GetString("cache")
	return opts
}
