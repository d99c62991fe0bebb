package commands

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/goldcurve/internal/output"
	"github.com/wonny/goldcurve/pkg/database"
)

// dbCmd represents the db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "PostgreSQL 연결 및 스키마 점검",
	Long: `DATABASE_URL 로 연결해 ping, 풀 상태, analysis 스키마를 확인합니다.
premium_points 테이블에 미러링된 포인트 수도 출력합니다.

DB_ENABLED=false 이어도 DATABASE_URL 이 있으면 점검합니다.`,
	RunE: runDBCheck,
}

func init() {
	rootCmd.AddCommand(dbCmd)
}

func runDBCheck(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	PrintJobHeader(JobMetadata{JobType: "Database Check", Tag: "DB", Target: maskPassword(a.cfg.Database.URL)})

	db, err := database.New(a.cfg)
	if err != nil {
		PrintError(err.Error())
		return err
	}
	defer db.Close()
	PrintSuccess("Connection established")

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	status, err := db.HealthCheck(ctx)
	if err != nil {
		PrintError("Health check failed: " + err.Error())
		return err
	}

	fmt.Println()
	PrintKeyValue("Response", status.ResponseTime.String(), 10)
	PrintKeyValue("MaxConns", strconv.Itoa(int(status.Stats.MaxConns)), 10)
	PrintKeyValue("Total", strconv.Itoa(int(status.Stats.TotalConns)), 10)
	PrintKeyValue("Idle", strconv.Itoa(int(status.Stats.IdleConns)), 10)

	sink, err := output.NewPostgresSink(ctx, db, a.log)
	if err != nil {
		PrintError(err.Error())
		return err
	}
	PrintSuccess("analysis schema ready")

	n, err := sink.Count(ctx)
	if err != nil {
		return err
	}
	PrintKeyValue("Points", strconv.Itoa(n), 10)
	return nil
}

// maskPassword hides the password component of a database URL
func maskPassword(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Redacted()
}
