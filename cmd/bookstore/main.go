package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	// Registers the schema migrations.
	_ "github.com/shashiranjanraj/bookstore/database/migrations"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "bookstore",
	Short:         "Bookstore storefront API",
	Long:          "Serves the bookstore catalog, cart and admin API, and manages its database.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(routeListCmd)

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(migrateRollbackCmd)
	rootCmd.AddCommand(migrateStatusCmd)
	rootCmd.AddCommand(seedCmd)

	rootCmd.AddCommand(hashPasswordCmd)
}
