package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/verdantlabs/cropsight/internal/database"
	"github.com/verdantlabs/cropsight/internal/models"
	"github.com/verdantlabs/cropsight/pkg/config"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Manage the SQLite schema for the experiment ledger and model registry.

Available subcommands:
  up      - Apply the schema (create or update tables)
  status  - Show which tables exist`,
}

// migrateUpCmd applies the schema
var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply the schema",
	Long: `Create or update all tables to match the current models.

Safe to run repeatedly; existing data is preserved.`,
	RunE: runMigrateUp,
}

// migrateStatusCmd shows migration status
var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show schema status",
	RunE:  runMigrateStatus,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateStatusCmd)
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}

	fmt.Println("Schema is up to date")
	return nil
}

func runMigrateStatus(cmd *cobra.Command, args []string) error {
	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	fmt.Println("Database Schema Status")
	fmt.Println(strings.Repeat("=", 40))

	migrator := db.DB.Migrator()
	for _, model := range models.AllModels() {
		state := "missing"
		if migrator.HasTable(model) {
			state = "present"
		}
		fmt.Printf("  %-25T %s\n", model, state)
	}
	return nil
}

func openDatabase() (*database.DB, error) {
	cfg, err := config.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return database.Initialize(cfg.Database.Path, cfg.Database.Verbose)
}
