package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rentscope/backend/pkg/config"
	"github.com/rentscope/backend/pkg/database"
)

// migrateCmd represents the migrate command group
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back schema migrations",
	Long: `Manages the embedded SQL migrations for the data and scores schemas.

Subcommands:
  up      - apply all pending migrations
  down    - roll back the most recent migration
  version - print the current schema version

Example:
  go run ./cmd/rentscope migrate up
  go run ./cmd/rentscope migrate version`,
}

var (
	migrateUpCmd = &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE:  runMigrateUp,
	}

	migrateDownCmd = &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE:  runMigrateDown,
	}

	migrateVersionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE:  runMigrateVersion,
	}
)

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateVersionCmd)
}

// migrationURL loads just enough config for the migrator; no pool or
// redis connection is made.
func migrationURL() (string, error) {
	cfg, err := config.Load()
	if err != nil {
		return "", fmt.Errorf("load config: %w", err)
	}
	return cfg.Database.URL, nil
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	url, err := migrationURL()
	if err != nil {
		return err
	}

	if err := database.MigrateUp(url); err != nil {
		return err
	}

	fmt.Println("✅ Migrations applied")
	return nil
}

func runMigrateDown(cmd *cobra.Command, args []string) error {
	url, err := migrationURL()
	if err != nil {
		return err
	}

	if err := database.MigrateDown(url); err != nil {
		return err
	}

	fmt.Println("✅ Rolled back one migration")
	return nil
}

func runMigrateVersion(cmd *cobra.Command, args []string) error {
	url, err := migrationURL()
	if err != nil {
		return err
	}

	version, dirty, err := database.MigrateVersion(url)
	if err != nil {
		return err
	}

	if version == 0 {
		fmt.Println("No migrations applied")
		return nil
	}

	fmt.Printf("Schema version: %d", version)
	if dirty {
		fmt.Print(" (dirty)")
	}
	fmt.Println()

	return nil
}
