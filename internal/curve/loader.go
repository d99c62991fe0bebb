package curve

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/goldcurve/internal/contracts"
	"github.com/wonny/goldcurve/internal/store"
	"github.com/wonny/goldcurve/pkg/logger"
)

// LoadStats summarizes one ingestion pass
type LoadStats struct {
	Files     int `json:"files"`
	Skipped   int `json:"skipped"`   // 파일 단위 제외
	Records   int `json:"records"`   // 유효 행
	Malformed int `json:"malformed"` // 버려진 행
}

// Loader reads every per-contract file from the store
// ⭐ SSOT: CSV 로딩은 여기서만 (파일 간 fan-out, 결과는 파일명 순서)
type Loader struct {
	store   *store.Store
	workers int
	logger  *logger.Logger
}

// NewLoader creates a loader with bounded file concurrency
func NewLoader(st *store.Store, workers int, log *logger.Logger) *Loader {
	if workers < 1 {
		workers = 1
	}
	return &Loader{
		store:   st,
		workers: workers,
		logger:  log,
	}
}

// Load parses all files. Results keep ascending file-name order.
func (l *Loader) Load(ctx context.Context) ([]contracts.RecordSet, LoadStats, error) {
	entries, err := l.store.List()
	if err != nil {
		return nil, LoadStats{}, fmt.Errorf("list contract files: %w", err)
	}

	l.logger.WithFields(map[string]interface{}{
		"dir":   l.store.Dir(),
		"files": len(entries),
	}).Info("Loading contract files")

	sets := make([]contracts.RecordSet, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)

	for i, entry := range entries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			set, err := l.loadFile(entry)
			if err != nil {
				return err
			}
			sets[i] = set
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, LoadStats{}, err
	}

	stats := LoadStats{Files: len(sets)}
	for _, s := range sets {
		if s.Skipped {
			stats.Skipped++
		}
		stats.Records += len(s.Records)
		stats.Malformed += s.Malformed
	}

	l.logger.WithFields(map[string]interface{}{
		"files":     stats.Files,
		"skipped":   stats.Skipped,
		"records":   stats.Records,
		"malformed": stats.Malformed,
	}).Info("Contract files loaded")

	return sets, stats, nil
}

// loadFile only fails on I/O errors; content problems are recorded on the set
func (l *Loader) loadFile(entry store.Entry) (contracts.RecordSet, error) {
	f, err := l.store.Open(entry.Path)
	if err != nil {
		return contracts.RecordSet{}, fmt.Errorf("open %s: %w", entry.Name, err)
	}
	defer f.Close()

	set, problems := ParseCSV(entry.Name, f, entry.Expiry)

	for _, p := range problems {
		if p.IsFileLevel() {
			l.logger.WithFields(map[string]interface{}{
				"file":   entry.Name,
				"reason": p.Error(),
			}).Warn("Skipping contract file")
			continue
		}
		l.logger.WithFields(map[string]interface{}{
			"file":  entry.Name,
			"line":  p.Line,
			"field": p.Field,
			"value": p.Value,
		}).Debug("Dropped malformed row")
	}

	return set, nil
}
