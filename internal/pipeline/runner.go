package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/goldcurve/internal/contracts"
	"github.com/wonny/goldcurve/internal/curve"
	"github.com/wonny/goldcurve/internal/output"
	"github.com/wonny/goldcurve/internal/roll"
	"github.com/wonny/goldcurve/pkg/logger"
)

// Runner coordinates the LOAD → BUILD → SELECT → PUBLISH pipeline
// ⭐ SSOT: 파이프라인 조율은 여기서만
type Runner struct {
	loader   *curve.Loader
	builder  *curve.Builder
	selector *roll.Selector

	// sinks[0] is the primary sink; its failure fails the run
	sinks []contracts.SeriesSink

	configHash string
	logger     *logger.Logger
}

// RunConfig holds options for a single run
type RunConfig struct {
	RunID  string // empty = new uuid
	DryRun bool   // compute only, skip PUBLISH
}

// RunResult holds the outcome of a complete pipeline run
type RunResult struct {
	RunID           string
	ConfigHash      string
	Status          contracts.RunStatus
	Error           error
	CompletedStages []contracts.Stage

	Load       curve.LoadStats
	TradeDates int
	Duplicates int

	Points []contracts.PremiumPoint
	Skips  contracts.SkipCounts
	Rolled int

	Published  []string
	SinkErrors map[string]error // optional sinks only

	Duration time.Duration
}

// NewRunner creates a runner. The first sink is primary.
func NewRunner(
	loader *curve.Loader,
	builder *curve.Builder,
	selector *roll.Selector,
	configHash string,
	log *logger.Logger,
	sinks ...contracts.SeriesSink,
) *Runner {
	return &Runner{
		loader:     loader,
		builder:    builder,
		selector:   selector,
		sinks:      sinks,
		configHash: configHash,
		logger:     log,
	}
}

// Run executes the full pipeline
func (r *Runner) Run(ctx context.Context, cfg RunConfig) (*RunResult, error) {
	start := time.Now()

	runID := cfg.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	result := &RunResult{
		RunID:           runID,
		ConfigHash:      r.configHash,
		Status:          contracts.RunStatusFailed,
		CompletedStages: make([]contracts.Stage, 0, len(contracts.AllStages())),
		SinkErrors:      make(map[string]error),
	}

	log := r.logger.WithRun(runID)
	log.WithFields(map[string]interface{}{
		"config_hash": r.configHash,
		"sinks":       len(r.sinks),
		"dry_run":     cfg.DryRun,
	}).Info("Starting pipeline run")

	fail := func(stage contracts.Stage, err error) (*RunResult, error) {
		result.Error = fmt.Errorf("%s failed: %w", stage, err)
		result.Duration = time.Since(start)
		log.WithError(err).WithField("stage", stage.String()).Error("Pipeline run failed")
		return result, result.Error
	}

	// LOAD
	sets, stats, err := r.loader.Load(ctx)
	if err != nil {
		return fail(contracts.StageLoad, err)
	}
	result.Load = stats
	result.CompletedStages = append(result.CompletedStages, contracts.StageLoad)

	// BUILD
	curves, err := r.builder.Build(sets)
	if err != nil {
		return fail(contracts.StageBuild, err)
	}
	result.TradeDates = curves.Len()
	result.Duplicates = curves.Duplicates
	result.CompletedStages = append(result.CompletedStages, contracts.StageBuild)

	// SELECT
	sel := r.selector.Run(curves)
	result.Points = sel.Points
	result.Skips = sel.Skips
	result.Rolled = sel.Rolled
	result.CompletedStages = append(result.CompletedStages, contracts.StageSelect)

	// PUBLISH
	if cfg.DryRun {
		log.Info("Skipping PUBLISH (dry run mode)")
	} else {
		if err := r.publish(ctx, log, result); err != nil {
			return fail(contracts.StagePublish, err)
		}
		result.CompletedStages = append(result.CompletedStages, contracts.StagePublish)
	}

	result.Status = contracts.RunStatusSuccess
	result.Duration = time.Since(start)

	log.WithFields(map[string]interface{}{
		"files":       stats.Files,
		"malformed":   stats.Malformed,
		"trade_dates": result.TradeDates,
		"points":      len(result.Points),
		"skipped":     result.Skips.Total(),
		"rolled":      result.Rolled,
		"duration":    result.Duration.Seconds(),
	}).Info("Pipeline run completed successfully")

	return result, nil
}

func (r *Runner) publish(ctx context.Context, log *logger.Logger, result *RunResult) error {
	if len(r.sinks) == 0 {
		return fmt.Errorf("no sink configured")
	}

	rec := output.RunRecord{
		RunID:      result.RunID,
		ConfigHash: r.configHash,
		Points:     len(result.Points),
		Skipped:    result.Skips.Total(),
		Malformed:  result.Load.Malformed,
	}

	for i, sink := range r.sinks {
		err := sink.Publish(ctx, result.RunID, result.Points)
		if err == nil {
			if rr, ok := sink.(output.RunRecorder); ok {
				err = rr.RecordRun(ctx, rec)
			}
		}
		if err != nil {
			if i == 0 {
				return fmt.Errorf("sink %s: %w", sink.Name(), err)
			}
			// 보조 sink 실패는 run을 실패시키지 않음
			result.SinkErrors[sink.Name()] = err
			log.WithError(err).WithField("sink", sink.Name()).Warn("Optional sink failed")
			continue
		}
		result.Published = append(result.Published, sink.Name())
	}
	return nil
}
