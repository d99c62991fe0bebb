package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/goldcurve/internal/audit"
	"github.com/wonny/goldcurve/internal/collector"
	"github.com/wonny/goldcurve/internal/curveconfig"
	"github.com/wonny/goldcurve/pkg/logger"
)

// Inspector checks the contract store
type Inspector interface {
	Audit(expected []time.Time) (*audit.Report, error)
	Cleanup() ([]audit.SmallFile, error)
}

// Recoverer refetches expiries flagged by an audit
type Recoverer interface {
	Recover(ctx context.Context, missing []time.Time, cfg collector.Config) (collector.Summary, error)
}

// AuditRecoverJob audits the configured expiries and refetches the gaps
type AuditRecoverJob struct {
	inspector Inspector
	recoverer Recoverer
	domain    *curveconfig.Config
	cfg       collector.Config
	now       func() time.Time
	logger    *logger.Logger
}

// NewAuditRecoverJob creates a new audit and recovery job
func NewAuditRecoverJob(inspector Inspector, recoverer Recoverer, domain *curveconfig.Config, cfg collector.Config, log *logger.Logger) *AuditRecoverJob {
	return &AuditRecoverJob{
		inspector: inspector,
		recoverer: recoverer,
		domain:    domain,
		cfg:       cfg,
		now:       time.Now,
		logger:    log,
	}
}

// Name returns the job name
func (j *AuditRecoverJob) Name() string {
	return "audit_recover"
}

// Schedule returns the cron schedule (Saturdays 20:00 IST)
func (j *AuditRecoverJob) Schedule() string {
	return "0 0 20 * * 6"
}

// Run executes the audit and recovery
func (j *AuditRecoverJob) Run(ctx context.Context) error {
	expected := FetchableExpiries(j.domain, j.now())

	report, err := j.inspector.Audit(expected)
	if err != nil {
		return fmt.Errorf("audit: %w", err)
	}

	need := report.NeedsFetch()
	if len(need) == 0 {
		j.logger.WithField("checked", report.Checked).Info("Audit clean, nothing to recover")
		return nil
	}

	summary, err := j.recoverer.Recover(ctx, need, j.cfg)
	if err != nil {
		return fmt.Errorf("recover: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"checked":    report.Checked,
		"missing":    len(report.Missing),
		"incomplete": len(report.Incomplete),
		"saved":      summary.Saved,
		"empty":      summary.Empty,
		"failed":     summary.Failed,
	}).Info("Audit recovery completed")
	return nil
}

// FetchableExpiries keeps configured expiries whose fetch window has opened by now
func FetchableExpiries(domain *curveconfig.Config, now time.Time) []time.Time {
	all := domain.ExpiryDates()
	out := make([]time.Time, 0, len(all))
	for _, e := range all {
		if from, _ := domain.DateRange(e); !from.After(now) {
			out = append(out, e)
		}
	}
	return out
}

// CleanupJob removes undersized contract files
type CleanupJob struct {
	inspector Inspector
	logger    *logger.Logger
}

// NewCleanupJob creates a new cleanup job
func NewCleanupJob(inspector Inspector, log *logger.Logger) *CleanupJob {
	return &CleanupJob{
		inspector: inspector,
		logger:    log,
	}
}

// Name returns the job name
func (j *CleanupJob) Name() string {
	return "cleanup"
}

// Schedule returns the cron schedule (daily 03:00 IST)
func (j *CleanupJob) Schedule() string {
	return "0 0 3 * * *"
}

// Run executes the cleanup
func (j *CleanupJob) Run(ctx context.Context) error {
	removed, err := j.inspector.Cleanup()
	if err != nil {
		return fmt.Errorf("cleanup: %w", err)
	}

	if len(removed) > 0 {
		j.logger.WithField("removed", len(removed)).Info("Cleanup completed")
	}
	return nil
}
