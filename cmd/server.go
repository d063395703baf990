package cmd

import (
	"dmscreen/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the dmscreen HTTP server",
	Long:  `Start the HTTP server that hosts the DM screen API, the viewer display channel and the player bridge.`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
