package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for the book catalog service.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "book-catalog-api",
		Short: "Book catalog HTTP API",
		Long: `Book catalog HTTP API serving authors and books with
email-confirmed accounts and cookie sessions.

Configuration is read from the environment and an optional .env file.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}
