package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the supershare application
var rootCmd = &cobra.Command{
	Use:   "supershare",
	Short: "Serves Google Drive documents as embeddable viewer pages",
	Long: `supershare is a small web gateway that resolves a document name in the
URL path to a file in a Google Drive folder, makes the file viewable by
anyone with the link, and serves an HTML page that embeds the file's
native Google preview in a full-viewport frame.

It authenticates as a service account and impersonates a configured
account for folder visibility.`,
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
	rootCmd.SetVersionTemplate(`{{printf "supershare version %s\n" .Version}}`)

	// If no subcommand is provided, run the serve command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
}
