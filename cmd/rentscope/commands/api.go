package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rentscope/backend/internal/api"
	"github.com/rentscope/backend/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the REST API server",
	Long: `Starts the REST API server.

Endpoints:
  GET  /health                            - Health check
  GET  /metrics                           - Prometheus metrics
  GET  /api/scores/{zip}                  - Scores for one ZIP
  POST /api/scores/recompute              - Recompute a state
  GET  /api/aggregates/{geoType}/{geoKey} - City/county/state rollup
  POST /api/solver/cashflow               - Cash flow at a price
  POST /api/solver/price-from-margin      - Price hitting a margin
  POST /api/solver/price-from-cashflow    - Price hitting a cash flow
  POST /api/solver/price-from-score       - Price hitting a score
  GET  /api/batches                       - Recent scoring batches
  GET  /api/batches/{id}                  - One batch
  GET  /api/status                        - Source freshness and health

Example:
  go run ./cmd/rentscope api
  go run ./cmd/rentscope api --port 8090`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (overrides PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	a, err := initApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	a.log.WithFields(map[string]interface{}{
		"port": a.cfg.Port,
		"env":  a.cfg.Env,
	}).Info("Initializing API server")

	fiscalYear := a.cfg.Engine.FiscalYear

	scoreHandler := handlers.NewScoreHandler(a.scores, a.yields, a.engine, a.cache, a.scoring, fiscalYear, a.log)
	aggregateHandler := handlers.NewAggregateHandler(a.aggregates, fiscalYear, a.log)
	solverHandler := handlers.NewSolverHandler(a.yields, a.scoring, fiscalYear, a.log)
	statusHandler := handlers.NewStatusHandler(a.db, a.scores, a.batches, a.cache, fiscalYear, a.log)

	router := api.NewRouter(a.cfg, a.log, scoreHandler, aggregateHandler, solverHandler, statusHandler)
	server := api.New(a.cfg, a.log, router)

	go func() {
		if err := server.Start(); err != nil {
			a.log.WithError(err).Fatal("Failed to start server")
		}
	}()

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	a.log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
