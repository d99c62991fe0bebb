package roll

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/wonny/goldcurve/internal/curveconfig"
)

// Defaults used when a Policy field is left zero
const (
	DefaultThresholdDays = 7
	DefaultDaysPerYear   = 365
)

// Policy holds the roll rule and premium rounding parameters
// ⭐ SSOT: 롤 임계값/연환산 기준일/반올림 모드
type Policy struct {
	ThresholdDays int    // near 만기까지 남은 일수가 이보다 작으면 롤
	DaysPerYear   int    // 연환산 기준 (365)
	Rounding      string // curveconfig.RoundingHalfEven | RoundingHalfAwayFromZero
}

// DefaultPolicy returns the 7-day / 365 / half-even policy
func DefaultPolicy() Policy {
	return Policy{
		ThresholdDays: DefaultThresholdDays,
		DaysPerYear:   DefaultDaysPerYear,
		Rounding:      curveconfig.RoundingHalfEven,
	}
}

// PolicyFromConfig builds a Policy from the domain config
func PolicyFromConfig(cfg *curveconfig.Config) Policy {
	return Policy{
		ThresholdDays: cfg.Roll.ThresholdDays,
		DaysPerYear:   cfg.Roll.DaysPerYear,
		Rounding:      cfg.Roll.Rounding,
	}
}

// Validate checks the policy values
func (p Policy) Validate() error {
	if p.ThresholdDays < 0 {
		return fmt.Errorf("threshold days must be >= 0, got %d", p.ThresholdDays)
	}
	if p.DaysPerYear <= 0 {
		return fmt.Errorf("days per year must be > 0, got %d", p.DaysPerYear)
	}
	switch p.Rounding {
	case curveconfig.RoundingHalfEven, curveconfig.RoundingHalfAwayFromZero:
		return nil
	default:
		return fmt.Errorf("unknown rounding mode %q", p.Rounding)
	}
}

// round applies the configured mode at 2 decimal places
func (p Policy) round(v decimal.Decimal) decimal.Decimal {
	if p.Rounding == curveconfig.RoundingHalfAwayFromZero {
		return v.Round(2)
	}
	return v.RoundBank(2)
}
