package contracts

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// PremiumPoint is one emitted observation of the annualized calendar-spread premium
// ⭐ SSOT: 출력 시리즈의 단일 레코드
type PremiumPoint struct {
	Date       time.Time
	Premium    float64 // 연환산 %, 소수 2자리
	PriceNear  float64
	PriceFar   float64
	ExpiryNear time.Time
	ExpiryFar  time.Time
}

// premiumPointJSON is the wire form consumed by the dashboard
type premiumPointJSON struct {
	Date           string  `json:"date"`
	Premium        float64 `json:"premium"`
	PriceNear      float64 `json:"price_near"`
	PriceFar       float64 `json:"price_far"`
	ExpiryNear     string  `json:"expiry_near"`
	ExpiryFar      string  `json:"expiry_far"`
	ExpiryNearDate string  `json:"expiry_near_date"`
	ExpiryFarDate  string  `json:"expiry_far_date"`
}

// FormatExpiry renders an expiry as the uppercase tag used in file names (05FEB2024)
func FormatExpiry(t time.Time) string {
	return strings.ToUpper(t.Format(ExpiryLayout))
}

// MarshalJSON implements json.Marshaler
func (p PremiumPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(premiumPointJSON{
		Date:           p.Date.Format(ISODateLayout),
		Premium:        p.Premium,
		PriceNear:      p.PriceNear,
		PriceFar:       p.PriceFar,
		ExpiryNear:     FormatExpiry(p.ExpiryNear),
		ExpiryFar:      FormatExpiry(p.ExpiryFar),
		ExpiryNearDate: p.ExpiryNear.Format(ISODateLayout),
		ExpiryFarDate:  p.ExpiryFar.Format(ISODateLayout),
	})
}

// UnmarshalJSON implements json.Unmarshaler
func (p *PremiumPoint) UnmarshalJSON(data []byte) error {
	var raw premiumPointJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	date, err := time.Parse(ISODateLayout, raw.Date)
	if err != nil {
		return fmt.Errorf("parse date %q: %w", raw.Date, err)
	}
	near, err := time.Parse(ISODateLayout, raw.ExpiryNearDate)
	if err != nil {
		return fmt.Errorf("parse expiry_near_date %q: %w", raw.ExpiryNearDate, err)
	}
	far, err := time.Parse(ISODateLayout, raw.ExpiryFarDate)
	if err != nil {
		return fmt.Errorf("parse expiry_far_date %q: %w", raw.ExpiryFarDate, err)
	}

	*p = PremiumPoint{
		Date:       date,
		Premium:    raw.Premium,
		PriceNear:  raw.PriceNear,
		PriceFar:   raw.PriceFar,
		ExpiryNear: near,
		ExpiryFar:  far,
	}
	return nil
}

// SelectedPair is the (near, far) contract pair chosen for one trade date
type SelectedPair struct {
	Near CurvePoint
	Far  CurvePoint
	// Rolled is true when the nearest contract was skipped by the roll rule
	Rolled bool
}

// SkipReason explains why a trade date produced no PremiumPoint.
// It is an outcome, not an error.
type SkipReason string

const (
	SkipNone                  SkipReason = ""
	SkipInsufficientContracts SkipReason = "insufficient_contracts"
	SkipRollStarved           SkipReason = "roll_starved"
	SkipZeroNearPrice         SkipReason = "zero_near_price"
	SkipZeroExpiryGap         SkipReason = "zero_expiry_gap"
)

// String returns the reason name
func (r SkipReason) String() string {
	return string(r)
}

// SkipCounts tallies skipped trade dates per reason
type SkipCounts map[SkipReason]int

// Total returns the number of skipped dates across all reasons
func (s SkipCounts) Total() int {
	total := 0
	for _, n := range s {
		total += n
	}
	return total
}
