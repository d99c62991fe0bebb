package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wonny/goldcurve/internal/contracts"
	"github.com/wonny/goldcurve/internal/pipeline"
)

// premiumCmd represents the premium command
var premiumCmd = &cobra.Command{
	Use:   "premium",
	Short: "프리미엄 시리즈 계산 및 배포",
	Long: `DATA_DIR 의 만기별 CSV를 읽어 연환산 프리미엄 시리즈를 계산합니다.

파이프라인:
  LOAD → BUILD → SELECT → PUBLISH

출력:
  OUTPUT_FILE (항상), Postgres (DB_ENABLED), S3 (S3_ENABLED)

Example:
  go run ./cmd/curve premium
  go run ./cmd/curve premium --dry-run
  go run ./cmd/curve premium --tail 10`,
	RunE: runPremium,
}

var (
	premiumDryRun bool
	premiumTail   int
)

func init() {
	rootCmd.AddCommand(premiumCmd)

	premiumCmd.Flags().BoolVar(&premiumDryRun, "dry-run", false, "계산만 하고 배포하지 않음")
	premiumCmd.Flags().IntVar(&premiumTail, "tail", 5, "마지막 N개 포인트 출력")
}

func runPremium(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	runner, cleanup, err := newRunner(ctx, a)
	if err != nil {
		return err
	}
	defer cleanup()

	PrintJobHeader(JobMetadata{
		JobType: "Premium Series",
		Tag:     "Premium",
		Target:  a.cfg.Curve.DataDir + " → " + a.cfg.Curve.OutputFile,
	})

	res, err := runner.Run(ctx, pipeline.RunConfig{DryRun: premiumDryRun})
	if err != nil {
		PrintError(err.Error())
		return err
	}

	printRunSummary(res)
	printTail(res.Points, premiumTail)
	PrintJobCompletion("Premium run "+res.RunID, res.Duration)
	return nil
}

func printRunSummary(res *pipeline.RunResult) {
	fmt.Println()
	PrintKeyValue("Config hash", shortHash(res.ConfigHash), 12)
	PrintKeyValue("Files", fmt.Sprintf("%d (skipped %d)", res.Load.Files, res.Load.Skipped), 12)
	PrintKeyValue("Records", fmt.Sprintf("%d (malformed %d)", res.Load.Records, res.Load.Malformed), 12)
	PrintKeyValue("Trade dates", strconv.Itoa(res.TradeDates), 12)
	PrintKeyValue("Points", strconv.Itoa(len(res.Points)), 12)
	PrintKeyValue("Rolled", strconv.Itoa(res.Rolled), 12)
	PrintKeyValue("Skipped", FormatSkips(res.Skips), 12)
	if res.Duplicates > 0 {
		PrintKeyValue("Duplicates", strconv.Itoa(res.Duplicates), 12)
	}
	if len(res.Published) > 0 {
		PrintKeyValue("Published", fmt.Sprintf("%v", res.Published), 12)
	}
	for name, err := range res.SinkErrors {
		PrintWarning(fmt.Sprintf("sink %s failed: %v", name, err))
	}
}

func printTail(points []contracts.PremiumPoint, n int) {
	if n <= 0 || len(points) == 0 {
		return
	}
	if n > len(points) {
		n = len(points)
	}

	fmt.Println()
	widths := []int{10, 9, 10, 10, 9, 9}
	PrintTableHeader([]string{"Date", "Premium%", "Near", "Far", "NearExp", "FarExp"}, widths)
	for _, p := range points[len(points)-n:] {
		PrintTableRow([]string{
			p.Date.Format(contracts.ISODateLayout),
			fmt.Sprintf("%.2f", p.Premium),
			fmt.Sprintf("%.2f", p.PriceNear),
			fmt.Sprintf("%.2f", p.PriceFar),
			contracts.FormatExpiry(p.ExpiryNear),
			contracts.FormatExpiry(p.ExpiryFar),
		}, widths)
	}
}

// shortHash trims a config hash for display
func shortHash(h string) string {
	const n = 12
	if h == "" {
		return "-"
	}
	if len(h) > n {
		return h[:n]
	}
	return h
}
