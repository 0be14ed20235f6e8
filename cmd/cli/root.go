// Package cli holds the homeops command line.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the homeops application
var rootCmd = &cobra.Command{
	Use:   "homeops",
	Short: "Scores household email for relevance and mental load",
	Long: `homeops syncs family mailboxes, scores every message for relevance and
mental load, and serves the resulting feed over HTTP.

It can run as:
  - The API server with sync workers (default)
  - An offline scorer for JSON email records`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "homeops version %s\n" .Version}}`)

	// If no subcommand is provided, run the server
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newScoreCmd())
}
