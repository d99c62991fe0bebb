package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/goldcurve/internal/api"
	"github.com/wonny/goldcurve/internal/api/handlers"
	"github.com/wonny/goldcurve/internal/output"
	"github.com/wonny/goldcurve/pkg/redis"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "API 서버 시작",
	Long: `대시보드용 REST API 서버를 시작합니다.
OUTPUT_FILE 에 배포된 시리즈를 읽어 제공합니다.

Endpoints:
  GET /health                         - Health check
  GET /api/premium?from=&to=          - 프리미엄 시리즈 (YYYY-MM-DD, 양끝 포함)
  GET /api/premium/latest             - 최신 포인트

Example:
  go run ./cmd/curve serve
  go run ./cmd/curve serve --port 8080`,
	RunE: runServe,
}

var servePort string

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&servePort, "port", "", "API 서버 포트 (default: PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	if servePort != "" {
		a.cfg.Port = servePort
	}

	rc, err := newRedis(a)
	if err != nil {
		return err
	}
	defer rc.Close()

	var cache *redis.Cache
	if rc.Enabled() {
		cache = redis.NewCache(rc, "goldcurve").WithLogger(a.log)
	}

	reader := output.NewJSONFile(a.cfg.Curve.OutputFile, a.log)
	router := api.NewRouter(handlers.NewPremiumHandler(reader, cache, a.log), a.log)
	server := api.New(a.cfg, a.log, router)

	fmt.Printf("=== goldcurve API Server (%s) ===\n", server.Addr())
	fmt.Println("Press Ctrl+C to stop")

	return server.Run(cmd.Context())
}
