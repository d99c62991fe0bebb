package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/goldcurve/internal/scheduler"
	"github.com/wonny/goldcurve/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `스케줄러를 시작하거나 작업을 관리합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업과 다음 실행 시각
  run     - 특정 작업 즉시 실행

Example:
  go run ./cmd/curve scheduler start
  go run ./cmd/curve scheduler list
  go run ./cmd/curve scheduler run daily_update`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다 (IST 기준).

등록되는 작업:
- daily_update: 평일 18:30 (최근 만기 갱신 + 프리미엄 재계산)
- audit_recover: 토요일 20:00 (누락/불완전 만기 재수집)
- cleanup: 매일 03:00 (작은 파일 삭제)

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

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== goldcurve Scheduler ===")

	sched, cleanup, err := initScheduler(cmd)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer cleanup()

	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	fmt.Println("\nRegistered jobs:")
	for _, name := range sched.GetAllJobs() {
		fmt.Printf("  - %s\n", name)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	<-cmd.Context().Done()

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")
	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	sched, cleanup, err := initScheduler(cmd)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer cleanup()

	fmt.Println()
	widths := []int{14, 18, 20}
	PrintTableHeader([]string{"Job", "Schedule", "Next run (IST)"}, widths)
	now := time.Now()
	for _, st := range sched.GetJobStats() {
		next := "-"
		if runs, err := scheduler.NextRuns(st.Schedule, now, 1, scheduler.IST); err == nil {
			next = runs[0].Format("2006-01-02 15:04")
		}
		PrintTableRow([]string{st.JobName, st.Schedule, next}, widths)
	}
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	name := args[0]

	sched, cleanup, err := initScheduler(cmd)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer cleanup()

	PrintJobHeader(JobMetadata{JobType: "Scheduled Job: " + name, Tag: "Scheduler"})

	res, err := sched.RunJob(cmd.Context(), name)
	if err != nil {
		PrintError(err.Error())
		return err
	}
	PrintJobCompletion(fmt.Sprintf("%s (%d attempts)", name, res.Attempts), res.Duration)
	return nil
}

func initScheduler(cmd *cobra.Command) (*scheduler.Scheduler, func(), error) {
	a, err := loadApp()
	if err != nil {
		return nil, func() {}, err
	}

	col, closeCollector, err := newCollector(a)
	if err != nil {
		return nil, func() {}, err
	}

	runner, closeSinks, err := newRunner(cmd.Context(), a)
	if err != nil {
		closeCollector()
		return nil, func() {}, err
	}

	cleanup := func() {
		closeSinks()
		closeCollector()
	}

	auditor := newAuditor(a)
	colCfg := collectorConfig(a)

	sched := scheduler.New(a.log, scheduler.DefaultOptions())
	for _, job := range []scheduler.Job{
		jobs.NewDailyUpdateJob(col, runner, colCfg, a.log),
		jobs.NewAuditRecoverJob(auditor, col, a.domain, colCfg, a.log),
		jobs.NewCleanupJob(auditor, a.log),
	} {
		if err := sched.AddJob(job); err != nil {
			cleanup()
			return nil, func() {}, err
		}
	}

	return sched, cleanup, nil
}
