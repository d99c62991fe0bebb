package contracts

import (
	"context"
)

// SeriesSink publishes the full premium series produced by one run
// ⭐ SSOT: 출력 시리즈는 항상 전체 교체 (incremental 없음)
type SeriesSink interface {
	Name() string
	Publish(ctx context.Context, runID string, points []PremiumPoint) error
}

// SeriesReader reads back the last published series
type SeriesReader interface {
	Read(ctx context.Context) ([]PremiumPoint, error)
}
