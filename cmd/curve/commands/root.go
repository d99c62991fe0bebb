package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/goldcurve/internal/curveconfig"
	"github.com/wonny/goldcurve/internal/store"
	"github.com/wonny/goldcurve/pkg/config"
	"github.com/wonny/goldcurve/pkg/logger"
)

var (
	// Global flags
	domainConfigFile string
	dataDir          string
	verbose          bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "curve",
	Short: "MCX gold calendar-spread premium pipeline",
	Long: `goldcurve Unified CLI

MCX 금 선물 만기별 일봉으로 거래일별 커브를 만들고
near/far 스프레드의 연환산 프리미엄 시리즈를 계산합니다.

Usage:
  go run ./cmd/curve [command]

Examples:
  go run ./cmd/curve premium
  go run ./cmd/curve fetch update
  go run ./cmd/curve audit
  go run ./cmd/curve serve`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
// Ctrl+C / SIGTERM cancel the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&domainConfigFile, "config", "", "domain YAML config (default: CURVE_CONFIG or embedded)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "per-contract CSV directory (default: DATA_DIR)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// app bundles what every command needs
type app struct {
	cfg        *config.Config
	log        *logger.Logger
	domain     *curveconfig.Config
	configHash string
	store      *store.Store
}

// loadApp loads env config, the domain YAML and flag overrides
func loadApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if dataDir != "" {
		cfg.Curve.DataDir = dataDir
	}
	if domainConfigFile != "" {
		cfg.Curve.ConfigFile = domainConfigFile
	}

	log := logger.New(cfg)

	domain, _, err := curveconfig.LoadOrDefault(cfg.Curve.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("load domain config: %w", err)
	}
	domain.ApplyOverrides(cfg.Curve.RollThresholdDays, cfg.Curve.LookbackDays)
	if err := curveconfig.Validate(domain); err != nil {
		return nil, fmt.Errorf("domain config: %w", err)
	}

	hash, err := curveconfig.Hash(domain)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:        cfg,
		log:        log,
		domain:     domain,
		configHash: hash,
		store:      store.New(cfg.Curve.DataDir),
	}, nil
}
