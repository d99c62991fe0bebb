package commands

import (
	"context"
	"fmt"

	"github.com/wonny/goldcurve/internal/audit"
	"github.com/wonny/goldcurve/internal/collector"
	"github.com/wonny/goldcurve/internal/pipeline"
	"github.com/wonny/goldcurve/pkg/redis"
)

// newRunner builds the pipeline with every enabled sink
func newRunner(ctx context.Context, a *app) (*pipeline.Runner, func(), error) {
	extra, cleanup, err := pipeline.OptionalSinks(ctx, a.cfg, a.log)
	if err != nil {
		return nil, cleanup, fmt.Errorf("open sinks: %w", err)
	}

	runner, err := pipeline.New(a.cfg, a.domain, a.log, extra...)
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}
	return runner, cleanup, nil
}

// newRedis connects when REDIS_ENABLED; a disabled client is a no-op
func newRedis(a *app) (*redis.Client, error) {
	client, err := redis.New(a.cfg)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return client, nil
}

// newCollector wires the MCX client factory with local or Redis pacing
func newCollector(a *app) (*collector.Collector, func(), error) {
	rc, err := newRedis(a)
	if err != nil {
		return nil, func() {}, err
	}

	var shared *redis.SharedPacer
	if rc.Enabled() {
		shared = redis.NewSharedPacer(rc, "goldcurve")
	}

	factory := collector.MCXClientFactory(a.cfg, a.domain, collector.NewPacer(a.cfg, a.domain), shared, a.log)
	col := collector.NewCollector(factory, a.store, a.domain, a.log)
	return col, func() { rc.Close() }, nil
}

// collectorConfig returns worker settings from env
func collectorConfig(a *app) collector.Config {
	return collector.Config{Workers: a.cfg.MCX.Workers}
}

func newAuditor(a *app) *audit.Auditor {
	return audit.NewAuditor(a.store, a.domain, a.log)
}
