package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/goldcurve/internal/collector"
	"github.com/wonny/goldcurve/internal/pipeline"
	"github.com/wonny/goldcurve/pkg/logger"
)

// Updater refreshes recently traded contracts
type Updater interface {
	UpdateRecent(ctx context.Context, now time.Time, cfg collector.Config) (collector.Summary, error)
}

// PipelineRunner recomputes and publishes the premium series
type PipelineRunner interface {
	Run(ctx context.Context, cfg pipeline.RunConfig) (*pipeline.RunResult, error)
}

// DailyUpdateJob pulls the latest bhavcopy rows and republishes the series
// ⭐ SSOT: 일일 갱신 스케줄은 이 Job에서만
type DailyUpdateJob struct {
	updater Updater
	runner  PipelineRunner
	cfg     collector.Config
	now     func() time.Time
	logger  *logger.Logger
}

// NewDailyUpdateJob creates a new daily update job
func NewDailyUpdateJob(updater Updater, runner PipelineRunner, cfg collector.Config, log *logger.Logger) *DailyUpdateJob {
	return &DailyUpdateJob{
		updater: updater,
		runner:  runner,
		cfg:     cfg,
		now:     time.Now,
		logger:  log,
	}
}

// Name returns the job name
func (j *DailyUpdateJob) Name() string {
	return "daily_update"
}

// Schedule returns the cron schedule (weekdays 18:30 IST, after MCX bhavcopy publication)
func (j *DailyUpdateJob) Schedule() string {
	return "0 30 18 * * 1-5"
}

// Run executes the update followed by a pipeline run
func (j *DailyUpdateJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled daily update")

	summary, err := j.updater.UpdateRecent(ctx, j.now(), j.cfg)
	if err != nil {
		return fmt.Errorf("update recent: %w", err)
	}
	// 전부 실패한 경우에만 중단
	if summary.Failed > 0 && summary.Saved == 0 && summary.Empty == 0 {
		return fmt.Errorf("update recent: all %d expiries failed", summary.Failed)
	}

	res, err := j.runner.Run(ctx, pipeline.RunConfig{})
	if err != nil {
		return fmt.Errorf("pipeline run: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"saved":  summary.Saved,
		"failed": summary.Failed,
		"run_id": res.RunID,
		"points": len(res.Points),
	}).Info("Scheduled daily update completed")
	return nil
}
