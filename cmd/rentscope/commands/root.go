package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	scoringConfigFile string
	verbose           bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rentscope",
	Short: "RentScope - ZIP level rental investment scoring",
	Long: `RentScope backend CLI

Scores every ZIP in a state on gross rental yield against the national
median, rolls scores up to city, county and state, and answers the
what-price-should-I-pay solver questions.

Usage:
  go run ./cmd/rentscope [command]

Examples:
  go run ./cmd/rentscope api
  go run ./cmd/rentscope score --state TX
  go run ./cmd/rentscope solve price-from-score --rent 1200 --target 264
  go run ./cmd/rentscope migrate up`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&scoringConfigFile, "scoring-config", "", "scoring parameters YAML (default built-in)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
