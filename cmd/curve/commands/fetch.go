package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/goldcurve/internal/collector"
	"github.com/wonny/goldcurve/internal/contracts"
	"github.com/wonny/goldcurve/internal/curveconfig"
	"github.com/wonny/goldcurve/internal/scheduler/jobs"
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "MCX bhavcopy 수집",
	Long: `MCX India bhavcopy API에서 만기별 일봉을 수집해 DATA_DIR 에 저장합니다.

Subcommands:
  history  - 설정된 모든 만기 수집 (이미 있는 파일은 건너뜀)
  update   - 최근 만기만 오늘까지 갱신 (덮어쓰기)
  recover  - audit 결과 누락/불완전 만기 재수집

Example:
  go run ./cmd/curve fetch history
  go run ./cmd/curve fetch history --expiry 05FEB2024 --expiry 05APR2024
  go run ./cmd/curve fetch update
  go run ./cmd/curve fetch recover`,
}

var (
	fetchHistoryCmd = &cobra.Command{
		Use:   "history",
		Short: "전체 만기 히스토리 수집",
		RunE:  runFetchHistory,
	}

	fetchUpdateCmd = &cobra.Command{
		Use:   "update",
		Short: "최근 만기 갱신",
		RunE:  runFetchUpdate,
	}

	fetchRecoverCmd = &cobra.Command{
		Use:   "recover",
		Short: "누락/불완전 만기 재수집",
		RunE:  runFetchRecover,
	}
)

var (
	fetchExpiries []string
	fetchWorkers  int
)

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.AddCommand(fetchHistoryCmd)
	fetchCmd.AddCommand(fetchUpdateCmd)
	fetchCmd.AddCommand(fetchRecoverCmd)

	fetchCmd.PersistentFlags().IntVar(&fetchWorkers, "workers", 0, "동시 MCX 세션 수 (default: MCX_WORKERS)")
	fetchHistoryCmd.Flags().StringSliceVar(&fetchExpiries, "expiry", nil, "특정 만기만 수집 (DDMMMYYYY)")
}

func fetchConfig(a *app) collector.Config {
	cfg := collectorConfig(a)
	if fetchWorkers > 0 {
		cfg.Workers = fetchWorkers
	}
	return cfg
}

func runFetchHistory(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	expiries := a.domain.ExpiryDates()
	if len(fetchExpiries) > 0 {
		expiries = expiries[:0:0]
		for _, tag := range fetchExpiries {
			e, err := curveconfig.ParseExpiryTag(tag)
			if err != nil {
				return err
			}
			expiries = append(expiries, e)
		}
	}
	if len(expiries) == 0 {
		return fmt.Errorf("no expiries configured")
	}

	col, cleanup, err := newCollector(a)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := a.store.EnsureDir(); err != nil {
		return err
	}

	PrintJobHeader(JobMetadata{
		JobType: "MCX History Fetch",
		Tag:     "Fetch",
		Target:  a.store.Dir(),
		Period: &Period{
			StartDate: contracts.FormatExpiry(expiries[0]),
			EndDate:   contracts.FormatExpiry(expiries[len(expiries)-1]),
		},
	})

	start := time.Now()
	summary, err := col.FetchHistory(cmd.Context(), expiries, fetchConfig(a))
	printFetchSummary(summary)
	if err != nil {
		return err
	}
	PrintJobCompletion("History fetch", time.Since(start))
	return nil
}

func runFetchUpdate(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	col, cleanup, err := newCollector(a)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := a.store.EnsureDir(); err != nil {
		return err
	}

	now := time.Now()
	PrintJobHeader(JobMetadata{
		JobType: "MCX Recent Update",
		Tag:     "Update",
		Target:  a.store.Dir(),
		Period: &Period{
			StartDate: now.AddDate(0, 0, -a.domain.Ingest.RecentWindowDays).Format(contracts.ISODateLayout),
			EndDate:   now.Format(contracts.ISODateLayout),
		},
	})

	summary, err := col.UpdateRecent(cmd.Context(), now, fetchConfig(a))
	printFetchSummary(summary)
	if err != nil {
		return err
	}
	PrintJobCompletion("Recent update", time.Since(now))
	return nil
}

func runFetchRecover(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	report, err := newAuditor(a).Audit(jobs.FetchableExpiries(a.domain, time.Now()))
	if err != nil {
		return err
	}
	printAuditReport(report)

	need := report.NeedsFetch()
	if len(need) == 0 {
		PrintSuccess("Nothing to recover")
		return nil
	}

	col, cleanup, err := newCollector(a)
	if err != nil {
		return err
	}
	defer cleanup()

	start := time.Now()
	PrintJobHeader(JobMetadata{JobType: "MCX Recovery Fetch", Tag: "Recover", Target: a.store.Dir()})
	summary, err := col.Recover(cmd.Context(), need, fetchConfig(a))
	printFetchSummary(summary)
	if err != nil {
		return err
	}
	PrintJobCompletion("Recovery", time.Since(start))
	return nil
}

func printFetchSummary(s collector.Summary) {
	if len(s.Results) == 0 {
		PrintInfo("No expiries to fetch")
		return
	}

	fmt.Println()
	widths := []int{10, 8, 6, 30}
	PrintTableHeader([]string{"Expiry", "Status", "Rows", "Error"}, widths)
	for _, r := range s.Results {
		errMsg := ""
		if r.Error != nil {
			errMsg = r.Error.Error()
		}
		PrintTableRow([]string{
			contracts.FormatExpiry(r.Expiry),
			string(r.Status),
			strconv.Itoa(r.Rows),
			errMsg,
		}, widths)
	}

	fmt.Println()
	PrintKeyValue("Saved", strconv.Itoa(s.Saved), 8)
	PrintKeyValue("Empty", strconv.Itoa(s.Empty), 8)
	PrintKeyValue("Skipped", strconv.Itoa(s.Skipped), 8)
	PrintKeyValue("Failed", strconv.Itoa(s.Failed), 8)
	if s.Failed > 0 {
		PrintWarning(fmt.Sprintf("%d expiries failed; run 'curve fetch recover' later", s.Failed))
	}
}
