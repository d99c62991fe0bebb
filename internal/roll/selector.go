package roll

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/goldcurve/internal/contracts"
	"github.com/wonny/goldcurve/pkg/logger"
)

var hundred = decimal.NewFromInt(100)

// CurveSet is the read-only view of built day curves
type CurveSet interface {
	Dates() []time.Time
	Get(date time.Time) (contracts.DayCurve, bool)
}

// Result is the output of one selection pass
type Result struct {
	Points []contracts.PremiumPoint
	Skips  contracts.SkipCounts
	Rolled int // 롤 규칙이 적용된 날짜 수
}

// Selector applies the roll rule and computes the annualized premium
// ⭐ SSOT: near/far 선택과 프리미엄 계산은 여기서만
type Selector struct {
	policy Policy
	logger *logger.Logger
}

// NewSelector creates a selector. Zero DaysPerYear or empty Rounding take their defaults.
func NewSelector(policy Policy, log *logger.Logger) (*Selector, error) {
	if policy.DaysPerYear == 0 {
		policy.DaysPerYear = DefaultDaysPerYear
	}
	if policy.Rounding == "" {
		policy.Rounding = DefaultPolicy().Rounding
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Selector{policy: policy, logger: log}, nil
}

// Policy returns the effective policy
func (s *Selector) Policy() Policy {
	return s.policy
}

// Select picks the (near, far) pair for one day. The curve is not modified.
func (s *Selector) Select(curve contracts.DayCurve) (contracts.SelectedPair, contracts.SkipReason) {
	live := curve.Unexpired()
	if len(live) < 2 {
		return contracts.SelectedPair{}, contracts.SkipInsufficientContracts
	}

	pair := contracts.SelectedPair{Near: live[0], Far: live[1]}

	if contracts.DaysBetween(curve.Date, pair.Near.Expiry) < s.policy.ThresholdDays {
		if len(live) < 3 {
			return contracts.SelectedPair{}, contracts.SkipRollStarved
		}
		pair = contracts.SelectedPair{Near: live[1], Far: live[2], Rolled: true}
	}

	if pair.Near.Close == 0 {
		return contracts.SelectedPair{}, contracts.SkipZeroNearPrice
	}
	if pair.Near.Expiry.Equal(pair.Far.Expiry) {
		return contracts.SelectedPair{}, contracts.SkipZeroExpiryGap
	}

	return pair, contracts.SkipNone
}

// Premium returns the annualized premium in percent, rounded to 2 places.
// The pair must have a non-zero near price and a positive expiry gap.
func (s *Selector) Premium(pair contracts.SelectedPair) float64 {
	p1 := decimal.NewFromFloat(pair.Near.Close)
	p2 := decimal.NewFromFloat(pair.Far.Close)
	diffDays := decimal.NewFromInt(int64(contracts.DaysBetween(pair.Near.Expiry, pair.Far.Expiry)))

	// (DaysPerYear / diff) * ((p2 - p1) / p1) * 100, 나눗셈은 한 번만
	num := p2.Sub(p1).Mul(decimal.NewFromInt(int64(s.policy.DaysPerYear))).Mul(hundred)
	den := p1.Mul(diffDays)

	return s.policy.round(num.Div(den)).InexactFloat64()
}

// Evaluate runs selection and premium for one day
func (s *Selector) Evaluate(curve contracts.DayCurve) (contracts.PremiumPoint, bool, contracts.SkipReason) {
	pair, reason := s.Select(curve)
	if reason != contracts.SkipNone {
		return contracts.PremiumPoint{}, false, reason
	}

	return contracts.PremiumPoint{
		Date:       curve.Date,
		Premium:    s.Premium(pair),
		PriceNear:  pair.Near.Close,
		PriceFar:   pair.Far.Close,
		ExpiryNear: pair.Near.Expiry,
		ExpiryFar:  pair.Far.Expiry,
	}, pair.Rolled, contracts.SkipNone
}

// Run evaluates every day in ascending date order
func (s *Selector) Run(curves CurveSet) Result {
	dates := curves.Dates()
	res := Result{
		Points: make([]contracts.PremiumPoint, 0, len(dates)),
		Skips:  make(contracts.SkipCounts),
	}

	for _, date := range dates {
		curve, ok := curves.Get(date)
		if !ok {
			continue
		}

		point, rolled, reason := s.Evaluate(curve)
		if reason != contracts.SkipNone {
			res.Skips[reason]++
			s.logger.WithFields(map[string]interface{}{
				"date":      date.Format(contracts.ISODateLayout),
				"reason":    reason.String(),
				"contracts": curve.Len(),
			}).Debug("Date skipped")
			continue
		}
		if rolled {
			res.Rolled++
		}
		res.Points = append(res.Points, point)
	}

	s.logger.WithFields(map[string]interface{}{
		"dates":   len(dates),
		"points":  len(res.Points),
		"skipped": res.Skips.Total(),
		"rolled":  res.Rolled,
	}).Info("Premium series computed")

	return res
}
