package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rentscope/backend/internal/scheduler"
	"github.com/rentscope/backend/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command group
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run or inspect the job scheduler",
	Long: `Starts the scheduler daemon or manages its jobs.

Registered jobs:
  nightly_recompute - 2:30 AM daily, scores every state in RECOMPUTE_STATES
  aggregate_warmup  - 3:30 AM daily, precomputes state rollups into cache

Subcommands:
  start - run the scheduler until interrupted
  list  - print registered jobs and schedules
  run   - execute one job immediately and wait for it

Example:
  go run ./cmd/rentscope scheduler start
  go run ./cmd/rentscope scheduler run nightly_recompute`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Run the scheduler until interrupted",
		RunE:  runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "Print registered jobs and schedules",
		RunE:  listSchedulerJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "Execute one job immediately and wait for it",
		Args:  cobra.ExactArgs(1),
		RunE:  runSchedulerJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

func initScheduler() (*scheduler.Scheduler, *app, error) {
	a, err := initApp()
	if err != nil {
		return nil, nil, err
	}

	states := a.cfg.Engine.RecomputeStates
	fiscalYear := a.cfg.Engine.FiscalYear

	sched := scheduler.New(a.log)
	if err := sched.AddJob(jobs.NewRecomputeJob(a.engine, a.yields, a.scoring, states, fiscalYear, a.log)); err != nil {
		a.Close()
		return nil, nil, err
	}
	if err := sched.AddJob(jobs.NewWarmupJob(a.aggregates, states, a.scoring.Scoring.Bedrooms, fiscalYear, a.log)); err != nil {
		a.Close()
		return nil, nil, err
	}

	return sched, a, nil
}

func runScheduler(cmd *cobra.Command, args []string) error {
	sched, a, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	if len(a.cfg.Engine.RecomputeStates) == 0 {
		a.log.Warn("RECOMPUTE_STATES is empty; the nightly jobs will be no-ops")
	}

	sched.Start()

	fmt.Println("\n✅ Scheduler started")
	fmt.Println("\nRegistered jobs:")
	for name, stat := range sched.GetJobStats() {
		fmt.Printf("  - %s (%s)\n", name, stat.Schedule)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()

	for name, stat := range sched.GetJobStats() {
		if stat.TotalRuns == 0 {
			continue
		}
		fmt.Printf("  %s: %d runs, %.0f%% success\n", name, stat.TotalRuns, stat.SuccessRate*100)
	}
	fmt.Println("Scheduler stopped")

	return nil
}

func listSchedulerJobs(cmd *cobra.Command, args []string) error {
	sched, a, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	fmt.Println("Registered jobs:")
	for name, stat := range sched.GetJobStats() {
		fmt.Printf("  - %s (%s)\n", name, stat.Schedule)
	}

	return nil
}

func runSchedulerJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	sched, a, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	fmt.Printf("Running job: %s\n", jobName)

	if err := sched.RunJobAndWait(jobName); err != nil {
		return err
	}

	fmt.Println("✅ Job completed")
	return nil
}
