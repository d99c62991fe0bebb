package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wonny/goldcurve/internal/contracts"
	"github.com/wonny/goldcurve/internal/curveconfig"
	"github.com/wonny/goldcurve/internal/external/mcx"
	"github.com/wonny/goldcurve/internal/store"
	"github.com/wonny/goldcurve/pkg/logger"
)

// Fetcher is one MCX session; *mcx.Client satisfies it
type Fetcher interface {
	InitSession(ctx context.Context) error
	FetchDateRange(ctx context.Context, symbol string, expiry, from, to time.Time) ([]mcx.Bar, error)
	Requests() int
}

// ClientFactory creates a fresh session per worker
type ClientFactory func() Fetcher

// Collector orchestrates bhavcopy retrieval into the contract store
// ⭐ SSOT: 데이터 수집 오케스트레이션은 이 패키지에서만
type Collector struct {
	newClient ClientFactory
	store     *store.Store
	domain    *curveconfig.Config
	logger    *logger.Logger
}

// Config holds collector configuration
type Config struct {
	Workers int // Number of concurrent workers (각자 MCX 세션 보유)
}

// Status is the outcome of one expiry
type Status string

const (
	StatusSaved   Status = "saved"
	StatusEmpty   Status = "empty"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped" // 이미 파일 존재 (resume)
)

// FetchResult represents the result of a fetch operation
type FetchResult struct {
	Expiry time.Time
	Status Status
	Rows   int
	Error  error
}

// Summary aggregates results in job order
type Summary struct {
	Results []FetchResult
	Saved   int
	Empty   int
	Failed  int
	Skipped int
}

// job is one expiry to fetch
type job struct {
	idx       int
	expiry    time.Time
	from, to  time.Time
	overwrite bool
}

// NewCollector creates a new Collector instance
func NewCollector(newClient ClientFactory, st *store.Store, domain *curveconfig.Config, log *logger.Logger) *Collector {
	return &Collector{
		newClient: newClient,
		store:     st,
		domain:    domain,
		logger:    log.WithField("module", "collector"),
	}
}

// FetchHistory fetches [expiry - lookback, expiry] for expiries without a file
func (c *Collector) FetchHistory(ctx context.Context, expiries []time.Time, cfg Config) (Summary, error) {
	jobs := make([]job, 0, len(expiries))
	for i, e := range expiries {
		from, to := c.domain.DateRange(e)
		jobs = append(jobs, job{idx: i, expiry: e, from: from, to: to})
	}

	c.logger.WithFields(map[string]interface{}{
		"expiries": len(jobs),
		"lookback": c.domain.Ingest.LookbackDays,
		"workers":  cfg.Workers,
	}).Info("Starting history collection")

	return c.run(ctx, jobs, cfg)
}

// UpdateRecent refreshes expiries inside the recent window up to today, overwriting files
func (c *Collector) UpdateRecent(ctx context.Context, now time.Time, cfg Config) (Summary, error) {
	recent := c.domain.RecentExpiries(now)

	jobs := make([]job, 0, len(recent))
	for i, e := range recent {
		from, to := c.domain.UpdateRange(e, now)
		if to.Before(from) {
			continue
		}
		jobs = append(jobs, job{idx: i, expiry: e, from: from, to: to, overwrite: true})
	}
	for i := range jobs {
		jobs[i].idx = i
	}

	c.logger.WithFields(map[string]interface{}{
		"expiries": len(jobs),
		"window":   c.domain.Ingest.RecentWindowDays,
		"workers":  cfg.Workers,
	}).Info("Starting recent update")

	return c.run(ctx, jobs, cfg)
}

// Recover refetches missing or incomplete expiries, overwriting whatever is there
func (c *Collector) Recover(ctx context.Context, missing []time.Time, cfg Config) (Summary, error) {
	jobs := make([]job, 0, len(missing))
	for i, e := range missing {
		from, to := c.domain.DateRange(e)
		jobs = append(jobs, job{idx: i, expiry: e, from: from, to: to, overwrite: true})
	}

	c.logger.WithField("expiries", len(jobs)).Info("Starting recovery fetch")

	return c.run(ctx, jobs, cfg)
}

// run fans jobs out over workers; results keep job order
func (c *Collector) run(ctx context.Context, jobs []job, cfg Config) (Summary, error) {
	if err := c.store.EnsureDir(); err != nil {
		return Summary{}, err
	}

	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}

	results := make([]FetchResult, len(jobs))
	jobCh := make(chan job, len(jobs))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			c.worker(ctx, workerID, jobCh, results)
		}(i)
	}

	for _, j := range jobs {
		jobCh <- j
	}
	close(jobCh)
	wg.Wait()

	sum := Summary{Results: results}
	for _, r := range results {
		switch r.Status {
		case StatusSaved:
			sum.Saved++
		case StatusEmpty:
			sum.Empty++
		case StatusSkipped:
			sum.Skipped++
		default:
			sum.Failed++
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"saved":   sum.Saved,
		"empty":   sum.Empty,
		"failed":  sum.Failed,
		"skipped": sum.Skipped,
		"total":   len(results),
	}).Info("Collection completed")

	if err := ctx.Err(); err != nil {
		return sum, err
	}
	return sum, nil
}

// worker owns one MCX session and refreshes it every SessionRefreshEvery requests
func (c *Collector) worker(ctx context.Context, workerID int, jobCh <-chan job, results []FetchResult) {
	log := c.logger.WithField("worker", workerID)

	var client Fetcher
	for j := range jobCh {
		if err := ctx.Err(); err != nil {
			results[j.idx] = FetchResult{Expiry: j.expiry, Status: StatusFailed, Error: err}
			continue
		}

		if !j.overwrite && c.store.Exists(j.expiry) {
			log.WithExpiry(contracts.FormatExpiry(j.expiry)).Debug("File exists, skipping")
			results[j.idx] = FetchResult{Expiry: j.expiry, Status: StatusSkipped}
			continue
		}

		if client == nil || client.Requests() >= c.domain.Ingest.SessionRefreshEvery {
			if client == nil {
				client = c.newClient()
			} else {
				log.Info("Refreshing MCX session")
			}
			if err := client.InitSession(ctx); err != nil {
				// 쿠키 없이도 API가 응답하는 경우가 있음
				log.WithError(err).Warn("Could not initialize session")
			}
		}

		results[j.idx] = c.fetchOne(ctx, log, client, j)
	}
}

func (c *Collector) fetchOne(ctx context.Context, log *logger.Logger, client Fetcher, j job) FetchResult {
	tag := contracts.FormatExpiry(j.expiry)
	res := FetchResult{Expiry: j.expiry}
	elog := log.WithExpiry(tag)

	bars, err := client.FetchDateRange(ctx, c.domain.Instrument.Symbol, j.expiry, j.from, j.to)
	if err != nil {
		elog.WithError(err).Error("Failed to fetch bhavcopy")
		res.Status = StatusFailed
		res.Error = err
		c.pause(ctx, c.domain.ErrorBackoff())
		return res
	}

	if len(bars) == 0 {
		elog.Warn("No data found")
		res.Status = StatusEmpty
		return res
	}

	if err := c.store.WriteCSV(j.expiry, mcx.CSVHeader, mcx.CSVRows(bars, j.expiry)); err != nil {
		elog.WithError(err).Error("Failed to save contract file")
		res.Status = StatusFailed
		res.Error = fmt.Errorf("save %s: %w", tag, err)
		return res
	}

	elog.WithFields(map[string]interface{}{
		"rows": len(bars),
		"from": j.from.Format(contracts.ISODateLayout),
		"to":   j.to.Format(contracts.ISODateLayout),
	}).Info("Saved contract file")

	res.Status = StatusSaved
	res.Rows = len(bars)
	return res
}

// pause sleeps unless ctx is cancelled first
func (c *Collector) pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
