package main

import (
	"fmt"
	"os"

	"github.com/sourcingworks/rfqsmith/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "rfqsmith",
		Short: "rfqsmith CLI - RFQ drafting for automotive sourcing",
		Long: `rfqsmith CLI manages sourcing documents and drafts RFQs against them.

Environment variables:
  RFQSMITH_API_KEY   API key for authentication (required)
  RFQSMITH_API_URL   API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-key", "", "API key for authentication (overrides env and config)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")

	rootCmd.AddCommand(client.AuthCmd())
	rootCmd.AddCommand(client.DocumentCmd())
	rootCmd.AddCommand(client.SearchCmd())
	rootCmd.AddCommand(client.ChatCmd())
	rootCmd.AddCommand(client.DraftCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
