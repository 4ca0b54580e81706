package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rentscope/backend/internal/finance"
	"github.com/rentscope/backend/internal/scoreconfig"
)

// solveCmd represents the solve command group
var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Closed-form investment calculators",
	Long: `Runs the investment calculators without a server.

Subcommands:
  cashflow            - Monthly cash flow at a purchase price
  price-from-margin   - Price at which cash flow hits a margin
  price-from-cashflow - Price producing a monthly cash flow
  price-from-score    - Price at which a rental hits a target score

Loan and property inputs default to the scoring config; pass flags to
override. Only price-from-score may need the database (to read the
stored median yield when --median-yield is omitted).

Example:
  go run ./cmd/rentscope solve cashflow --price 200000 --rent 1500
  go run ./cmd/rentscope solve price-from-cashflow --cashflow 300 --rent 1500
  go run ./cmd/rentscope solve price-from-score --rent 1200 --target 264 --median-yield 0.05`,
}

var (
	solvePrice       float64
	solveRent        float64
	solveInsurance   float64
	solveHOA         float64
	solveTaxRate     float64
	solveTerm        int
	solveRate        float64
	solveDownPct     float64
	solveDownAmount  float64
	solveMargin      float64
	solveCashflow    float64
	solveTarget      float64
	solveMedianYield float64
	solveFiscalYear  int
)

var solveCashflowCmd = &cobra.Command{
	Use:   "cashflow",
	Short: "Monthly cash flow at a purchase price",
	RunE:  runSolveCashflow,
}

var solvePriceFromMarginCmd = &cobra.Command{
	Use:   "price-from-margin",
	Short: "Price at which cash flow hits a fraction of net income",
	RunE:  runSolvePriceFromMargin,
}

var solvePriceFromCashflowCmd = &cobra.Command{
	Use:   "price-from-cashflow",
	Short: "Price producing a desired monthly cash flow",
	RunE:  runSolvePriceFromCashflow,
}

var solvePriceFromScoreCmd = &cobra.Command{
	Use:   "price-from-score",
	Short: "Price at which a rental hits a target score",
	RunE:  runSolvePriceFromScore,
}

func init() {
	rootCmd.AddCommand(solveCmd)
	solveCmd.AddCommand(solveCashflowCmd)
	solveCmd.AddCommand(solvePriceFromMarginCmd)
	solveCmd.AddCommand(solvePriceFromCashflowCmd)
	solveCmd.AddCommand(solvePriceFromScoreCmd)

	addLoanFlags(solveCashflowCmd)
	solveCashflowCmd.Flags().Float64Var(&solvePrice, "price", 0, "purchase price (required)")
	solveCashflowCmd.MarkFlagRequired("price")

	addLoanFlags(solvePriceFromMarginCmd)
	solvePriceFromMarginCmd.Flags().Float64Var(&solveMargin, "margin", 0, "cash flow as a fraction of net income, e.g. 0.3 (required)")
	solvePriceFromMarginCmd.MarkFlagRequired("margin")

	addLoanFlags(solvePriceFromCashflowCmd)
	solvePriceFromCashflowCmd.Flags().Float64Var(&solveCashflow, "cashflow", 0, "desired monthly cash flow (required)")
	solvePriceFromCashflowCmd.MarkFlagRequired("cashflow")

	solvePriceFromScoreCmd.Flags().Float64Var(&solveRent, "rent", 0, "monthly rent (required)")
	solvePriceFromScoreCmd.Flags().Float64Var(&solveTarget, "target", 0, "target investment score (required)")
	solvePriceFromScoreCmd.Flags().Float64Var(&solveMedianYield, "median-yield", 0, "population median yield (default stored value)")
	solvePriceFromScoreCmd.Flags().Float64Var(&solveTaxRate, "tax-rate", 0, "annual property tax rate (default from scoring config)")
	solvePriceFromScoreCmd.Flags().IntVar(&solveFiscalYear, "fiscal-year", 0, "fiscal year for the stored yield lookup")
	solvePriceFromScoreCmd.MarkFlagRequired("rent")
	solvePriceFromScoreCmd.MarkFlagRequired("target")
}

// addLoanFlags registers the property and loan inputs shared by the
// price and cash-flow solvers.
func addLoanFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&solveRent, "rent", 0, "monthly rent (required)")
	cmd.Flags().Float64Var(&solveInsurance, "insurance", 0, "monthly insurance (default from scoring config)")
	cmd.Flags().Float64Var(&solveHOA, "hoa", 0, "monthly HOA (default from scoring config)")
	cmd.Flags().Float64Var(&solveTaxRate, "tax-rate", 0, "annual property tax rate, e.g. 0.012 (default from scoring config)")
	cmd.Flags().IntVar(&solveTerm, "term", 0, "loan term in years (default from scoring config)")
	cmd.Flags().Float64Var(&solveRate, "rate", 0, "annual interest rate, e.g. 0.065 (default from scoring config)")
	cmd.Flags().Float64Var(&solveDownPct, "down-pct", 0, "down payment as a fraction of price, e.g. 0.20")
	cmd.Flags().Float64Var(&solveDownAmount, "down-amount", 0, "down payment dollar amount")
	cmd.MarkFlagRequired("rent")
}

// solveScoringConfig loads the scoring parameters without touching the
// database, so the pure solvers work with nothing but flags.
func solveScoringConfig() (*scoreconfig.Config, error) {
	if scoringConfigFile == "" {
		return scoreconfig.Default(), nil
	}

	cfg, _, err := scoreconfig.Load(scoringConfigFile)
	if err != nil {
		return nil, fmt.Errorf("load scoring config %s: %w", scoringConfigFile, err)
	}
	return cfg, nil
}

// solveInputs merges flags over the configured defaults. Changed flags
// win even at zero, so --hoa 0 is honored.
func solveInputs(cmd *cobra.Command, cfg *scoreconfig.Config) (finance.PropertyFinancials, finance.LoanTerms, error) {
	flags := cmd.Flags()

	fin := finance.PropertyFinancials{
		MonthlyRent:      solveRent,
		MonthlyInsurance: cfg.Solver.InsuranceMonthly,
		MonthlyHOA:       cfg.Solver.HOAMonthly,
		AnnualTaxRate:    cfg.Scoring.DefaultTaxRate,
	}
	if flags.Changed("insurance") {
		fin.MonthlyInsurance = solveInsurance
	}
	if flags.Changed("hoa") {
		fin.MonthlyHOA = solveHOA
	}
	if flags.Changed("tax-rate") {
		fin.AnnualTaxRate = solveTaxRate
	}

	terms := finance.LoanTerms{
		TermYears:  cfg.Solver.LoanTermYears,
		AnnualRate: cfg.Solver.AnnualInterestRate,
	}
	if solveTerm > 0 {
		terms.TermYears = solveTerm
	}
	if flags.Changed("rate") {
		terms.AnnualRate = solveRate
	}

	downPctSet := flags.Changed("down-pct")
	downAmountSet := flags.Changed("down-amount")
	switch {
	case downPctSet && downAmountSet:
		return fin, terms, fmt.Errorf("set either --down-pct or --down-amount, not both")
	case downPctSet:
		terms.DownPaymentPct = &solveDownPct
	case downAmountSet:
		terms.DownPaymentAmount = &solveDownAmount
	default:
		pct := cfg.Solver.DownPaymentPct
		terms.DownPaymentPct = &pct
	}

	return fin, terms, nil
}

func runSolveCashflow(cmd *cobra.Command, args []string) error {
	scoringCfg, err := solveScoringConfig()
	if err != nil {
		return err
	}

	fin, terms, err := solveInputs(cmd, scoringCfg)
	if err != nil {
		return err
	}

	result, err := finance.CashFlowFromPrice(solvePrice, fin, terms)
	if err != nil {
		return err
	}

	printBreakdown(result)
	return nil
}

func runSolvePriceFromMargin(cmd *cobra.Command, args []string) error {
	scoringCfg, err := solveScoringConfig()
	if err != nil {
		return err
	}

	fin, terms, err := solveInputs(cmd, scoringCfg)
	if err != nil {
		return err
	}

	result, err := finance.PriceFromMargin(solveMargin, fin, terms)
	if err != nil {
		return err
	}

	printBreakdown(result)
	return nil
}

func runSolvePriceFromCashflow(cmd *cobra.Command, args []string) error {
	scoringCfg, err := solveScoringConfig()
	if err != nil {
		return err
	}

	fin, terms, err := solveInputs(cmd, scoringCfg)
	if err != nil {
		return err
	}

	result, err := finance.PriceFromCashFlow(solveCashflow, fin, terms)
	if err != nil {
		return err
	}

	printBreakdown(result)
	return nil
}

func runSolvePriceFromScore(cmd *cobra.Command, args []string) error {
	scoringCfg, err := solveScoringConfig()
	if err != nil {
		return err
	}

	taxRate := scoringCfg.Scoring.DefaultTaxRate
	if cmd.Flags().Changed("tax-rate") {
		taxRate = solveTaxRate
	}

	medianYield := solveMedianYield
	if !cmd.Flags().Changed("median-yield") {
		a, err := initApp()
		if err != nil {
			return err
		}
		defer a.Close()

		fiscalYear := solveFiscalYear
		if fiscalYear == 0 {
			fiscalYear = a.cfg.Engine.FiscalYear
		}

		stored, err := a.yields.GetMedianYield(cmd.Context(), fiscalYear)
		if err != nil {
			return fmt.Errorf("get median yield: %w", err)
		}
		if stored == nil {
			return fmt.Errorf("no median yield loaded for fiscal year %d (pass --median-yield)", fiscalYear)
		}
		medianYield = *stored
	}

	annualRent := solveRent * 12
	price, err := finance.PriceFromScore(annualRent, solveTarget, medianYield, taxRate)
	if err != nil {
		return err
	}

	fmt.Printf("\n✅ Price for score %.0f: $%.2f\n", solveTarget, finance.RoundCents(price))
	fmt.Printf("   Annual rent:  $%.2f\n", annualRent)
	fmt.Printf("   Median yield: %.4f\n", medianYield)
	fmt.Printf("   Tax rate:     %.4f\n", taxRate)

	return nil
}

func printBreakdown(result *finance.CashFlowResult) {
	r := result.Rounded()

	fmt.Printf("\n✅ Price:             $%.2f\n", r.Price)
	fmt.Printf("   Down payment:      $%.2f\n", r.DownPayment)
	fmt.Printf("   Loan amount:       $%.2f\n", r.LoanAmount)
	fmt.Printf("   Monthly payment:   $%.2f\n", r.MonthlyPayment)
	fmt.Printf("   Monthly taxes:     $%.2f\n", r.MonthlyTaxes)
	fmt.Printf("   Monthly cash flow: $%.2f\n", r.MonthlyCashFlow)
}
