package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/sas/internal/contracts"
	"github.com/wonny/sas/internal/notify"
	"github.com/wonny/sas/internal/scheduler"
	"github.com/wonny/sas/internal/scheduler/jobs"
	"github.com/wonny/sas/pkg/redis"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `스케줄러를 시작하거나 작업을 관리합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행

Example:
  go run ./cmd/sas scheduler start
  go run ./cmd/sas scheduler list
  go run ./cmd/sas scheduler run analysis_run`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- analysis_run: ANALYSIS_SCHEDULE (전체 분석 + 리포트, 캐시 사용/갱신)
- snapshot_cleanup: 매일 03:00 (SAS_SNAPSHOT_RETENTION 보다 오래된 스냅샷 삭제)

실패한 작업은 재시도하지 않고 다음 스케줄에 다시 실행됩니다.
스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

// newScheduler registers the configured jobs. notify receives scheduled run
// completions (webhook, websocket hub).
func newScheduler(a *app, notify contracts.Observer) (*scheduler.Scheduler, error) {
	sched := scheduler.New(a.log)

	if a.cfg.Analysis.Schedule != "" {
		job := jobs.NewAnalysisJob(a.runner, jobs.AnalysisJobConfig{
			Analyzers:     a.defaultAnalyzers(),
			Schedule:      a.cfg.Analysis.Schedule,
			OutputPath:    a.cfg.Analysis.ReportPath,
			LookbackYears: a.cfg.Analysis.LookbackYears,
			Notify:        notify,
		}, a.log.WithComponent("analysis_job"))
		if err := sched.AddJob(job); err != nil {
			return nil, err
		}
	}

	if a.cfg.Analysis.SnapshotRetention > 0 {
		job := jobs.NewSnapshotCleanupJob(a.snapshots, a.cfg.Analysis.SnapshotRetention, a.log.WithComponent("snapshot_job"))
		if err := sched.AddJob(job); err != nil {
			return nil, err
		}
	}

	return sched, nil
}

// webhookObserver builds the completion webhook for scheduler-only processes
func webhookObserver(a *app) contracts.Observer {
	limiter := redis.NewRateLimiter(a.redis, "sas")
	return notify.NewWebhook(a.cfg.Notify.WebhookURL, a.cfg.Notify.Timeout, limiter, a.log)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== SAS Scheduler ===")
	fmt.Println()

	a, err := newApp(context.Background())
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := newScheduler(a, webhookObserver(a))
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	if len(sched.GetAllJobs()) == 0 {
		PrintWarning("No jobs configured (set ANALYSIS_SCHEDULE or SAS_SNAPSHOT_RETENTION)")
		return nil
	}

	// Start scheduler
	sched.Start()

	PrintSuccess("Scheduler started successfully")
	fmt.Println("\nRegistered jobs:")
	printJobs(sched)
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, err := newApp(context.Background())
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := newScheduler(a, nil)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	// next run times are computed once the cron loop starts
	sched.Start()
	defer sched.Stop()

	fmt.Println("Registered jobs:")
	printJobs(sched)

	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	fmt.Printf("Running job: %s\n", jobName)

	a, err := newApp(context.Background())
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := newScheduler(a, webhookObserver(a))
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	result, err := sched.RunJob(jobName)
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	if !result.Success {
		PrintError(fmt.Sprintf("Job %s failed after %s: %s", jobName, result.Duration, result.Error))
		return fmt.Errorf("job %s failed", jobName)
	}

	PrintSuccess(fmt.Sprintf("Job %s completed in %s", jobName, result.Duration))
	return nil
}

func printJobs(sched *scheduler.Scheduler) {
	stats := sched.GetJobStats()
	for _, jobName := range sched.GetAllJobs() {
		next := "-"
		if t, err := sched.NextRun(jobName); err == nil && !t.IsZero() {
			next = t.Format("2006-01-02 15:04:05")
		}
		fmt.Printf("  - %-18s %-20s next: %s\n", jobName, stats[jobName].Schedule, next)
	}
}
