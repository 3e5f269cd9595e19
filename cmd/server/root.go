package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "marketplace",
	Short: "Conecta Bairro neighborhood services marketplace",
	Long: `Runs the marketplace API: service catalog, service requests,
reviews and rating aggregates. Without a subcommand the server is started.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}
