package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "askdata",
	Short: "Answer questions about Côte d'Ivoire statistics",
	Long: `askdata resolves French questions about national statistics to one
indicator series from the local catalogue.

Configuration is read from ASKDATA_* environment variables.

Examples:
  askdata serve                                   # Start the HTTP API
  askdata resolve "population en 2020"            # Answer one question
  askdata indicators --search "recettes fiscales" # Browse the catalogue`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(indicatorsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
