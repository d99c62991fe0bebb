package collector

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/wonny/goldcurve/internal/curveconfig"
	"github.com/wonny/goldcurve/internal/external/mcx"
	"github.com/wonny/goldcurve/pkg/config"
	"github.com/wonny/goldcurve/pkg/httputil"
	"github.com/wonny/goldcurve/pkg/logger"
	"github.com/wonny/goldcurve/pkg/redis"
)

// PacingInterval is the larger of the config spacing and 1/MCX_RPS
func PacingInterval(cfg *config.Config, domain *curveconfig.Config) time.Duration {
	interval := domain.RequestSpacing()
	if cfg.MCX.RequestsPerSec > 0 {
		if rps := time.Duration(float64(time.Second) / cfg.MCX.RequestsPerSec); rps > interval {
			interval = rps
		}
	}
	return interval
}

// NewPacer returns the in-process limiter shared by all workers
func NewPacer(cfg *config.Config, domain *curveconfig.Config) *rate.Limiter {
	interval := PacingInterval(cfg, domain)
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// MCXClientFactory builds one MCX session per call. Pacing goes through the
// shared Redis schedule when Redis is enabled, otherwise through pacer.
func MCXClientFactory(cfg *config.Config, domain *curveconfig.Config, pacer *rate.Limiter, shared *redis.SharedPacer, log *logger.Logger) ClientFactory {
	retry := httputil.RetryFromConfig(cfg.MCX)

	pacing := redis.PacingConfig{Key: "mcx", Spacing: PacingInterval(cfg, domain)}

	return func() Fetcher {
		hc := httputil.NewWithPolicy(log, cfg.MCX.Timeout, retry).WithLocalLimiter(pacer)
		if shared != nil {
			hc = hc.WithSharedPacer(shared, pacing)
		}
		return mcx.NewClient(hc, cfg.MCX.BaseURL, domain.Instrument.InstrumentName, log)
	}
}
