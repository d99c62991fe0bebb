package pipeline

import (
	"context"
	"fmt"

	"github.com/wonny/goldcurve/internal/contracts"
	"github.com/wonny/goldcurve/internal/curve"
	"github.com/wonny/goldcurve/internal/curveconfig"
	"github.com/wonny/goldcurve/internal/output"
	"github.com/wonny/goldcurve/internal/roll"
	"github.com/wonny/goldcurve/internal/store"
	"github.com/wonny/goldcurve/pkg/config"
	"github.com/wonny/goldcurve/pkg/database"
	"github.com/wonny/goldcurve/pkg/logger"
)

// New wires a Runner from the app and domain config.
// The JSON file sink is always first; extra sinks follow in order.
func New(cfg *config.Config, domain *curveconfig.Config, log *logger.Logger, extra ...contracts.SeriesSink) (*Runner, error) {
	hash, err := curveconfig.Hash(domain)
	if err != nil {
		return nil, err
	}

	builder, err := curve.NewBuilder(domain.Roll.DuplicateExpiry, log)
	if err != nil {
		return nil, err
	}

	selector, err := roll.NewSelector(roll.PolicyFromConfig(domain), log)
	if err != nil {
		return nil, err
	}

	loader := curve.NewLoader(store.New(cfg.Curve.DataDir), cfg.Curve.Workers, log)

	sinks := append([]contracts.SeriesSink{output.NewJSONFile(cfg.Curve.OutputFile, log)}, extra...)
	return NewRunner(loader, builder, selector, hash, log, sinks...), nil
}

// OptionalSinks opens the Postgres and S3 sinks enabled in cfg.
// The returned cleanup func must be called once the sinks are no longer used.
func OptionalSinks(ctx context.Context, cfg *config.Config, log *logger.Logger) ([]contracts.SeriesSink, func(), error) {
	var sinks []contracts.SeriesSink
	var closers []func()

	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.Database.Enabled {
		db, err := database.New(cfg)
		if err != nil {
			return nil, cleanup, fmt.Errorf("open database: %w", err)
		}
		closers = append(closers, db.Close)

		pg, err := output.NewPostgresSink(ctx, db, log)
		if err != nil {
			cleanup()
			return nil, func() {}, err
		}
		sinks = append(sinks, pg)
	}

	if cfg.S3.Enabled {
		client, err := output.NewS3Client(ctx, cfg.S3)
		if err != nil {
			cleanup()
			return nil, func() {}, err
		}
		sinks = append(sinks, output.NewS3Sink(client, cfg.S3.Bucket, cfg.S3.Prefix, log))
	}

	return sinks, cleanup, nil
}
