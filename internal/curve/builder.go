package curve

import (
	"fmt"
	"sort"
	"time"

	"github.com/wonny/goldcurve/internal/contracts"
	"github.com/wonny/goldcurve/internal/curveconfig"
	"github.com/wonny/goldcurve/pkg/logger"
)

// Curves is the per-trade-date curve set produced by one build
type Curves struct {
	byDate     map[time.Time]contracts.DayCurve
	dates      []time.Time
	Duplicates int // 같은 날 같은 만기가 두 번 이상 나온 횟수
}

// Dates returns trade dates ascending
func (c *Curves) Dates() []time.Time {
	out := make([]time.Time, len(c.dates))
	copy(out, c.dates)
	return out
}

// Get returns the curve for a trade date
func (c *Curves) Get(date time.Time) (contracts.DayCurve, bool) {
	dc, ok := c.byDate[date]
	return dc, ok
}

// Len returns the number of trade dates
func (c *Curves) Len() int {
	return len(c.dates)
}

// Builder groups contract records into DayCurves
// ⭐ SSOT: 거래일별 커브 구성은 여기서만
type Builder struct {
	duplicatePolicy string
	logger          *logger.Logger
}

// NewBuilder creates a builder with the given duplicate-expiry policy
// (curveconfig.DuplicateKeep, DuplicateFirst or DuplicateLast)
func NewBuilder(duplicatePolicy string, log *logger.Logger) (*Builder, error) {
	switch duplicatePolicy {
	case "":
		duplicatePolicy = curveconfig.DuplicateKeep
	case curveconfig.DuplicateKeep, curveconfig.DuplicateFirst, curveconfig.DuplicateLast:
	default:
		return nil, fmt.Errorf("unknown duplicate expiry policy %q", duplicatePolicy)
	}
	return &Builder{duplicatePolicy: duplicatePolicy, logger: log}, nil
}

// Build groups records by trade date. Sets are consumed in slice order,
// which is the encounter order used for stable ties and duplicate policies.
func (b *Builder) Build(sets []contracts.RecordSet) (*Curves, error) {
	byDate := make(map[time.Time][]contracts.CurvePoint)
	// date -> expiry -> index into byDate[date]
	seen := make(map[time.Time]map[time.Time]int)

	total := 0
	duplicates := 0
	for _, set := range sets {
		if set.Skipped {
			continue
		}
		for _, rec := range set.Records {
			total++
			pt := contracts.CurvePoint{Expiry: rec.ExpiryDate, Close: rec.Close}

			idx, ok := seen[rec.TradeDate][rec.ExpiryDate]
			if ok {
				duplicates++
				switch b.duplicatePolicy {
				case curveconfig.DuplicateFirst:
					continue
				case curveconfig.DuplicateLast:
					byDate[rec.TradeDate][idx] = pt
					continue
				}
			}

			if seen[rec.TradeDate] == nil {
				seen[rec.TradeDate] = make(map[time.Time]int)
			}
			if !ok {
				seen[rec.TradeDate][rec.ExpiryDate] = len(byDate[rec.TradeDate])
			}
			byDate[rec.TradeDate] = append(byDate[rec.TradeDate], pt)
		}
	}

	if total == 0 {
		return nil, &contracts.EmptyInputError{Sources: len(sets)}
	}

	curves := &Curves{
		byDate:     make(map[time.Time]contracts.DayCurve, len(byDate)),
		dates:      make([]time.Time, 0, len(byDate)),
		Duplicates: duplicates,
	}
	for date, points := range byDate {
		sort.SliceStable(points, func(i, j int) bool {
			return points[i].Expiry.Before(points[j].Expiry)
		})
		curves.byDate[date] = contracts.DayCurve{Date: date, Points: points}
		curves.dates = append(curves.dates, date)
	}
	sort.Slice(curves.dates, func(i, j int) bool { return curves.dates[i].Before(curves.dates[j]) })

	if duplicates > 0 {
		b.logger.WithFields(map[string]interface{}{
			"duplicates": duplicates,
			"policy":     b.duplicatePolicy,
		}).Warn("Duplicate expiries on the same trade date")
	}
	b.logger.WithFields(map[string]interface{}{
		"records": total,
		"dates":   len(curves.dates),
	}).Info("Day curves built")

	return curves, nil
}
