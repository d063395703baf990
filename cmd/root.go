package cmd

import (
	"fmt"
	"os"

	"dmscreen/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "dmscreen",
	Short: "dmscreen is a local game-master screen server.",
	Long: `dmscreen serves the DM screen on the local machine: reference notes,
a folder-organized image gallery mirrored to a player-facing display,
a multi-track ambient mixer with volume groups and fades, and a combat
tracker. Running dmscreen without a subcommand starts the server.`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
