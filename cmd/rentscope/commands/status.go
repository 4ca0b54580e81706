package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database health, score version and recent batches",
	Long: `Prints a one-shot operational snapshot.

Displayed:
- Database: health check result and pool statistics
- Scores: latest data version for the fiscal year
- Batches: most recent score batch runs

Example:
  go run ./cmd/rentscope status
  go run ./cmd/rentscope status --fiscal-year 2025 --limit 10`,
	RunE: runStatus,
}

var (
	// Status flags
	statusFiscalYear int
	statusLimit      int
)

func init() {
	rootCmd.AddCommand(statusCmd)

	// Flags
	statusCmd.Flags().IntVar(&statusFiscalYear, "fiscal-year", 0, "fiscal year to inspect (default: configured year)")
	statusCmd.Flags().IntVar(&statusLimit, "limit", 5, "number of recent batches to show")
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := initApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()

	fiscalYear := statusFiscalYear
	if fiscalYear == 0 {
		fiscalYear = a.cfg.Engine.FiscalYear
	}

	fmt.Println("=== RentScope Status ===")
	fmt.Println()

	// Database
	fmt.Println("📊 Database")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	health, err := a.db.HealthCheck(ctx)
	if err != nil {
		fmt.Printf("%-18s %s\n", "Healthy:", "no")
		fmt.Printf("%-18s %s\n", "Error:", health.Error)
	} else {
		fmt.Printf("%-18s %s\n", "Healthy:", "yes")
		fmt.Printf("%-18s %v\n", "Response time:", health.ResponseTime)
		fmt.Printf("%-18s %d/%d\n", "Connections:", health.Stats.TotalConns, health.Stats.MaxConns)
		fmt.Printf("%-18s %d\n", "Idle:", health.Stats.IdleConns)
	}
	fmt.Println()

	// Latest score version
	fmt.Printf("📈 Scores (FY %d)\n", fiscalYear)
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	version, err := a.scores.GetLatestVersion(ctx, fiscalYear)
	if err != nil {
		return fmt.Errorf("load latest version: %w", err)
	}
	if version == nil {
		fmt.Println("No scores computed yet")
	} else {
		fmt.Printf("%-18s %s\n", "Version:", version.Key())
		fmt.Printf("%-18s %s\n", "Home values:", version.HomeValueMonth.Format("2006-01"))
		fmt.Printf("%-18s %d\n", "Tax vintage:", version.TaxVintage)
	}
	fmt.Println()

	// Recent batches
	fmt.Println("🗂  Recent Batches")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	batches, err := a.batches.ListRecent(ctx, statusLimit)
	if err != nil {
		return fmt.Errorf("list batches: %w", err)
	}
	if len(batches) == 0 {
		fmt.Println("No batches recorded")
	}
	for _, batch := range batches {
		finished := "running"
		if batch.FinishedAt != nil {
			finished = batch.FinishedAt.Format("2006-01-02 15:04")
		}
		fmt.Printf("%s  %-2s FY%d  %-9s  %d/%d scored  %s\n",
			batch.ID, batch.State, batch.FiscalYear, batch.Status,
			batch.ScoredCount, batch.ZIPCount, finished)
		if batch.Error != "" {
			fmt.Printf("    error: %s\n", batch.Error)
		}
	}
	fmt.Println()

	return nil
}
