package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/goldcurve/internal/audit"
	"github.com/wonny/goldcurve/internal/scheduler/jobs"
)

// auditCmd represents the audit command
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "만기 파일 누락/불완전 검사",
	Long: `설정된 만기 목록과 DATA_DIR 를 비교합니다.

- 파일 없음 → MISSING
- min_file_bytes 미만 → INCOMPLETE (삭제, 다음 수집에서 다시 받음)

재수집은 'curve fetch recover' 를 사용하세요.`,
	RunE: runAudit,
}

var coverageCmd = &cobra.Command{
	Use:   "coverage",
	Short: "연도 x 월 만기 파일 커버리지",
	RunE:  runCoverage,
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "주력 월물 (FEB/APR/JUN/AUG/OCT/DEC) 검증",
	RunE:  runVerify,
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "min_file_bytes 미만 파일 삭제",
	RunE:  runCleanup,
}

var (
	coverageFrom int
	coverageTo   int
	verifyYears  []int
)

func init() {
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(coverageCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(cleanupCmd)

	coverageCmd.Flags().IntVar(&coverageFrom, "from", 0, "시작 연도 (default: audit.coverage_from_year)")
	coverageCmd.Flags().IntVar(&coverageTo, "to", 0, "종료 연도 (default: audit.coverage_to_year)")
	verifyCmd.Flags().IntSliceVar(&verifyYears, "year", nil, "검증할 연도 (default: 작년, 올해)")
}

func runAudit(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	PrintJobHeader(JobMetadata{JobType: "Contract File Audit", Tag: "Audit", Target: a.store.Dir()})

	report, err := newAuditor(a).Audit(jobs.FetchableExpiries(a.domain, time.Now()))
	if err != nil {
		return err
	}
	printAuditReport(report)
	return nil
}

func printAuditReport(r *audit.Report) {
	fmt.Println()
	PrintKeyValue("Checked", strconv.Itoa(r.Checked), 10)
	PrintKeyValue("Missing", strconv.Itoa(len(r.Missing)), 10)
	PrintKeyValue("Incomplete", strconv.Itoa(len(r.Incomplete)), 10)

	if len(r.Missing) > 0 {
		fmt.Println()
		fmt.Println("Missing:")
		PrintList(FormatExpiries(r.Missing, 8))
	}
	if len(r.Incomplete) > 0 {
		fmt.Println()
		fmt.Println("Incomplete (removed):")
		items := make([]string, 0, len(r.Incomplete))
		for _, f := range r.Incomplete {
			items = append(items, fmt.Sprintf("%s (%d bytes)", f.Name, f.Size))
		}
		PrintList(items)
	}

	if len(r.NeedsFetch()) == 0 {
		fmt.Println()
		PrintSuccess("All expected expiries present")
	}
}

func runCoverage(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	from, to := a.domain.Audit.CoverageFromYear, a.domain.Audit.CoverageToYear
	if coverageFrom > 0 {
		from = coverageFrom
	}
	if coverageTo > 0 {
		to = coverageTo
	}

	grid, err := newAuditor(a).Coverage(from, to)
	if err != nil {
		return err
	}

	fmt.Println()
	widths := []int{4, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3}
	header := []string{"Year"}
	for m := time.January; m <= time.December; m++ {
		header = append(header, strings.ToUpper(m.String()[:3]))
	}
	PrintTableHeader(header, widths)

	for _, y := range grid.Years() {
		row := []string{strconv.Itoa(y)}
		for m := time.January; m <= time.December; m++ {
			cell := " . "
			if grid.Has(y, m) {
				cell = " ✓ "
			}
			row = append(row, cell)
		}
		PrintTableRow(row, widths)
	}

	fmt.Println()
	PrintInfo(fmt.Sprintf("%d of %d year-months covered", grid.Count(), len(grid.Years())*12))
	return nil
}

func runVerify(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	years := verifyYears
	if len(years) == 0 {
		now := time.Now()
		years = []int{now.Year() - 1, now.Year()}
	}

	months, err := newAuditor(a).VerifyMain(years)
	if err != nil {
		return err
	}

	fmt.Println()
	bad := 0
	for _, m := range months {
		label := fmt.Sprintf("%d %s", m.Year, m.Month)
		switch {
		case m.OK():
			names := make([]string, 0, len(m.Valid))
			for _, f := range m.Valid {
				names = append(names, fmt.Sprintf("%s (%d)", f.Name, f.Size))
			}
			PrintSuccess(label + ": " + strings.Join(names, ", "))
		case m.Exists:
			bad++
			PrintError(fmt.Sprintf("%s: only small files (<= %d bytes)", label, a.domain.Audit.MainMinBytes))
		default:
			bad++
			PrintError(label + ": missing")
		}
	}

	if bad > 0 {
		return fmt.Errorf("%d main months need attention", bad)
	}
	return nil
}

func runCleanup(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	removed, err := newAuditor(a).Cleanup()
	for _, f := range removed {
		PrintInfo(fmt.Sprintf("Deleted %s (%d bytes)", f.Name, f.Size))
	}
	if err != nil {
		return err
	}

	PrintSuccess(fmt.Sprintf("Cleanup complete: %d files removed (< %d bytes)", len(removed), a.domain.Audit.MinFileBytes))
	return nil
}
