package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "relaybot",
	Short: "Telegram channel relay bot",
	Long:  "Relays messages from source channels to configured target channels and topics, with word redaction and per-destination batching.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
