package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rentscope/backend/internal/contracts"
)

// aggregateCmd represents the aggregate command
var aggregateCmd = &cobra.Command{
	Use:   "aggregate [city|county|state] [key]",
	Short: "Query a city, county or state rollup",
	Long: `Prints the score rollup for one geography at the newest version,
the same figures the aggregate API endpoint serves.

The key is a city name, a five-digit county FIPS code, or a two-letter
state code. City and county queries need --state.

Example:
  go run ./cmd/rentscope aggregate state TX
  go run ./cmd/rentscope aggregate county 48201 --state TX
  go run ./cmd/rentscope aggregate city Houston --state TX --bedrooms 2`,
	Args: cobra.ExactArgs(2),
	RunE: runAggregate,
}

var (
	aggregateState      string
	aggregateFiscalYear int
	aggregateBedrooms   int
)

func init() {
	rootCmd.AddCommand(aggregateCmd)

	aggregateCmd.Flags().StringVar(&aggregateState, "state", "", "two-letter state code (required for city and county)")
	aggregateCmd.Flags().IntVar(&aggregateFiscalYear, "fiscal-year", 0, "fiscal year (default ENGINE_FISCAL_YEAR)")
	aggregateCmd.Flags().IntVar(&aggregateBedrooms, "bedrooms", 3, "bedroom count")
}

func runAggregate(cmd *cobra.Command, args []string) error {
	var geoType contracts.GeoType
	switch strings.ToLower(args[0]) {
	case "city":
		geoType = contracts.GeoCity
	case "county":
		geoType = contracts.GeoCounty
	case "state":
		geoType = contracts.GeoState
	default:
		return fmt.Errorf("unknown geography type %q (valid: city, county, state)", args[0])
	}

	geoKey := args[1]
	state := strings.ToUpper(strings.TrimSpace(aggregateState))
	if geoType == contracts.GeoState {
		state = strings.ToUpper(geoKey)
		geoKey = state
	}
	if state == "" {
		return fmt.Errorf("--state is required for city and county rollups")
	}

	a, err := initApp()
	if err != nil {
		return err
	}
	defer a.Close()

	fiscalYear := aggregateFiscalYear
	if fiscalYear == 0 {
		fiscalYear = a.cfg.Engine.FiscalYear
	}

	result, err := a.aggregates.GetAggregate(cmd.Context(), geoType, geoKey, state, fiscalYear, aggregateBedrooms)
	if err != nil {
		return fmt.Errorf("get aggregate: %w", err)
	}

	fmt.Printf("\n✅ %s %s (%s), fiscal year %d, %dBR\n", result.GeoType, result.GeoKey, result.State, result.FiscalYear, aggregateBedrooms)
	fmt.Printf("   Version:         %s\n", result.Version.Key())
	fmt.Printf("   ZIPs:            %d\n", result.ZIPCount)
	fmt.Printf("   Median score:    %.1f\n", result.MedianScore)
	fmt.Printf("   Average score:   %.1f\n", result.AverageScore)
	fmt.Printf("   Average yield:   %.2f%%\n", result.AverageYield*100)
	fmt.Printf("   Average value:   $%.0f\n", result.AveragePropertyValue)
	fmt.Printf("   Average tax:     %.2f%%\n", result.AverageTaxRate*100)

	return nil
}
