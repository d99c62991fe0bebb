package contracts

import "time"

// Date layouts shared by ingestion and output
const (
	// ISODateLayout is the calendar date format used for trade dates
	ISODateLayout = "2006-01-02"
	// ExpiryLayout is the MCX expiry tag format (e.g. 05FEB2024)
	ExpiryLayout = "02Jan2006"
	// ExpiryParseLayout also accepts a one-digit day (5FEB2024)
	ExpiryParseLayout = "2Jan2006"
)

// ContractRecord is one settlement observation of one contract on one trade date
// ⭐ SSOT: 모든 날짜는 UTC 자정으로 정규화됨
type ContractRecord struct {
	TradeDate  time.Time `json:"trade_date"`
	ExpiryDate time.Time `json:"expiry_date"`
	Close      float64   `json:"close"`
}

// RecordSet is the parsed content of one per-contract source
type RecordSet struct {
	Source    string           `json:"source"`
	Records   []ContractRecord `json:"records"`
	Malformed int              `json:"malformed"` // 버려진 행 수
	Skipped   bool             `json:"skipped"`   // 파일 단위로 제외됨
}

// CurvePoint is one contract on a DayCurve
type CurvePoint struct {
	Expiry time.Time `json:"expiry"`
	Close  float64   `json:"close"`
}

// DayCurve is the set of contracts observed on one trade date, ascending by expiry
type DayCurve struct {
	Date   time.Time    `json:"date"`
	Points []CurvePoint `json:"points"`
}

// Len returns the number of contracts on the curve
func (c DayCurve) Len() int {
	return len(c.Points)
}

// Unexpired returns the points with expiry on or after the trade date.
// The returned slice is a copy; the curve is not modified.
func (c DayCurve) Unexpired() []CurvePoint {
	out := make([]CurvePoint, 0, len(c.Points))
	for _, p := range c.Points {
		if !p.Expiry.Before(c.Date) {
			out = append(out, p)
		}
	}
	return out
}

// DaysBetween returns the whole calendar days from a to b
func DaysBetween(a, b time.Time) int {
	return int(b.Sub(a) / (24 * time.Hour))
}

// CalendarDate truncates t to UTC midnight of its own calendar day
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
