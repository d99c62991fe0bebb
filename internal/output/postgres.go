package output

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/wonny/goldcurve/internal/contracts"
	"github.com/wonny/goldcurve/pkg/database"
	"github.com/wonny/goldcurve/pkg/logger"
)

// RunRecord summarizes one pipeline run for sinks that keep run history
type RunRecord struct {
	RunID      string
	ConfigHash string
	Points     int
	Skipped    int
	Malformed  int
}

// RunRecorder is implemented by sinks that persist run metadata
type RunRecorder interface {
	RecordRun(ctx context.Context, rec RunRecord) error
}

// PostgresSink mirrors the series into analysis.premium_points
type PostgresSink struct {
	db     *database.DB
	logger *logger.Logger
}

// NewPostgresSink creates the sink and makes sure the analysis schema exists
func NewPostgresSink(ctx context.Context, db *database.DB, log *logger.Logger) (*PostgresSink, error) {
	if err := db.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return &PostgresSink{
		db:     db,
		logger: log.WithField("sink", "postgres"),
	}, nil
}

// Name implements contracts.SeriesSink
func (s *PostgresSink) Name() string {
	return "postgres"
}

const insertPointSQL = `
	INSERT INTO analysis.premium_points
		(trade_date, premium, price_near, price_far, expiry_near, expiry_far, run_id, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())`

// Publish replaces every row in one transaction.
// ⭐ 전체 교체: 이전 run의 날짜가 남지 않음
func (s *PostgresSink) Publish(ctx context.Context, runID string, points []contracts.PremiumPoint) error {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres sink: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `DELETE FROM analysis.premium_points`)
	if err != nil {
		return fmt.Errorf("postgres sink: clear points: %w", err)
	}

	if len(points) > 0 {
		batch := &pgx.Batch{}
		for _, p := range points {
			batch.Queue(insertPointSQL,
				p.Date, p.Premium, p.PriceNear, p.PriceFar,
				p.ExpiryNear, p.ExpiryFar, runID,
			)
		}

		br := tx.SendBatch(ctx, batch)
		for i := range points {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("postgres sink: insert %s: %w",
					points[i].Date.Format(contracts.ISODateLayout), err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("postgres sink: close batch: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres sink: commit: %w", err)
	}

	s.logger.WithRun(runID).WithFields(map[string]interface{}{
		"replaced": tag.RowsAffected(),
		"points":   len(points),
	}).Info("Series stored")
	return nil
}

// RecordRun implements RunRecorder
func (s *PostgresSink) RecordRun(ctx context.Context, rec RunRecord) error {
	_, err := s.db.Pool.Exec(ctx, `
		INSERT INTO analysis.premium_runs (run_id, config_hash, points, skipped, malformed, finished_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (run_id) DO UPDATE SET
			config_hash = EXCLUDED.config_hash,
			points      = EXCLUDED.points,
			skipped     = EXCLUDED.skipped,
			malformed   = EXCLUDED.malformed,
			finished_at = EXCLUDED.finished_at`,
		rec.RunID, rec.ConfigHash, rec.Points, rec.Skipped, rec.Malformed,
	)
	if err != nil {
		return fmt.Errorf("postgres sink: record run: %w", err)
	}
	return nil
}

// Count returns the number of stored points
func (s *PostgresSink) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM analysis.premium_points`).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres sink: count: %w", err)
	}
	return n, nil
}
