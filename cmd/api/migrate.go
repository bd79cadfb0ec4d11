package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/redmonkez12/book-catalog-api/internal/config"
	"github.com/redmonkez12/book-catalog-api/internal/database"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create database tables and indexes",
		Long:  `Create the users, authors and books tables and their indexes. Safe to run repeatedly.`,
		RunE:  runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx := cmd.Context()

	cmd.Println("Connecting to database...")
	db, err := database.OpenPostgres(ctx, cfg.Database.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	cmd.Println("Creating schema...")
	if err := database.CreateSchema(ctx, db); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	cmd.Println("Schema is up to date")
	return nil
}
