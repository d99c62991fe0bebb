package mcx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/goldcurve/internal/contracts"
)

// apiDateLayout is the MM/DD/YYYY format the endpoint expects
const apiDateLayout = "01/02/2006"

// ist is the exchange timezone; /Date(ms)/ values are IST midnights
var ist = time.FixedZone("IST", 5*3600+30*60)

// Bar is one daily bhavcopy row for a contract
type Bar struct {
	Date          time.Time
	Symbol        string
	ExpiryDate    string // DDMMMYYYY
	Open          float64
	High          float64
	Low           float64
	Close         float64
	PreviousClose float64
	Volume        float64
	Value         float64
	OpenInterest  float64
}

// bhavcopyRequest is the POST payload
type bhavcopyRequest struct {
	Symbol         string `json:"Symbol"`
	Expiry         string `json:"Expiry"`
	FromDate       string `json:"FromDate"`
	ToDate         string `json:"ToDate"`
	InstrumentName string `json:"InstrumentName"`
}

// bhavcopyResponse wraps the ASP.NET "d" envelope
type bhavcopyResponse struct {
	D struct {
		Data []rawBar `json:"Data"`
	} `json:"d"`
}

type rawBar struct {
	Date          flexDate  `json:"Date"`
	Symbol        string    `json:"Symbol"`
	ExpiryDate    string    `json:"ExpiryDate"`
	Open          flexFloat `json:"Open"`
	High          flexFloat `json:"High"`
	Low           flexFloat `json:"Low"`
	Close         flexFloat `json:"Close"`
	PreviousClose flexFloat `json:"PreviousClose"`
	Volume        flexFloat `json:"Volume"`
	Value         flexFloat `json:"Value"`
	OpenInterest  flexFloat `json:"OpenInterest"`
}

// FetchDateRange fetches daily bars for one contract over [from, to]
// ⭐ SSOT: MCX bhavcopy API 호출은 이 함수에서만
func (c *Client) FetchDateRange(ctx context.Context, symbol string, expiry, from, to time.Time) ([]Bar, error) {
	payload := bhavcopyRequest{
		Symbol:         symbol,
		Expiry:         contracts.FormatExpiry(expiry),
		FromDate:       from.Format(apiDateLayout),
		ToDate:         to.Format(apiDateLayout),
		InstrumentName: c.instrumentName,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+bhavcopyAPIPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	c.setAPIHeaders(req)

	c.requests++
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body failed: %w", err)
	}

	bars, err := ParseBhavcopy(raw)
	if err != nil {
		return nil, fmt.Errorf("parse response failed: %w", err)
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"expiry": payload.Expiry,
		"from":   payload.FromDate,
		"to":     payload.ToDate,
		"count":  len(bars),
	}).Debug("Fetched bhavcopy")

	return bars, nil
}

// ParseBhavcopy decodes the {"d":{"Data":[...]}} envelope. Rows without a date are dropped.
func ParseBhavcopy(body []byte) ([]Bar, error) {
	var resp bhavcopyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	bars := make([]Bar, 0, len(resp.D.Data))
	for _, r := range resp.D.Data {
		if r.Date.IsZero() {
			continue
		}
		bars = append(bars, Bar{
			Date:          r.Date.Time,
			Symbol:        strings.TrimSpace(r.Symbol),
			ExpiryDate:    strings.ToUpper(strings.TrimSpace(r.ExpiryDate)),
			Open:          float64(r.Open),
			High:          float64(r.High),
			Low:           float64(r.Low),
			Close:         float64(r.Close),
			PreviousClose: float64(r.PreviousClose),
			Volume:        float64(r.Volume),
			Value:         float64(r.Value),
			OpenInterest:  float64(r.OpenInterest),
		})
	}
	return bars, nil
}

// CSVHeader is the column order written to the contract store
var CSVHeader = []string{
	"Date", "Symbol", "ExpiryDate", "Open", "High", "Low", "Close",
	"PreviousClose", "Volume", "Value", "OpenInterest",
}

// CSVRows renders bars in CSVHeader order. expiry fills rows that lack ExpiryDate.
func CSVRows(bars []Bar, expiry time.Time) [][]string {
	tag := contracts.FormatExpiry(expiry)
	rows := make([][]string, 0, len(bars))
	for _, b := range bars {
		exp := b.ExpiryDate
		if exp == "" {
			exp = tag
		}
		rows = append(rows, []string{
			b.Date.Format(contracts.ISODateLayout),
			b.Symbol,
			exp,
			formatFloat(b.Open),
			formatFloat(b.High),
			formatFloat(b.Low),
			formatFloat(b.Close),
			formatFloat(b.PreviousClose),
			formatFloat(b.Volume),
			formatFloat(b.Value),
			formatFloat(b.OpenInterest),
		})
	}
	return rows
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// flexFloat accepts a JSON number, a numeric string, or null/"" (0)
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*f = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	s = strings.ReplaceAll(s, ",", "")
	if s == "" || s == "-" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// 숫자가 아닌 값은 0 처리 (to_numeric errors=coerce)
		*f = 0
		return nil
	}
	*f = flexFloat(v)
	return nil
}

var msDatePattern = regexp.MustCompile(`^/Date\((-?\d+)([+-]\d{4})?\)/$`)

var isoLayouts = []string{
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02",
	"02/01/2006",
}

// flexDate accepts /Date(ms)/, ISO timestamps, or DD/MM/YYYY
type flexDate struct {
	time.Time
}

func (d *flexDate) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// null 또는 비문자열
		d.Time = time.Time{}
		return nil
	}
	t, err := parseAPIDate(s)
	if err != nil {
		d.Time = time.Time{}
		return nil
	}
	d.Time = t
	return nil
}

func parseAPIDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if m := msDatePattern.FindStringSubmatch(s); m != nil {
		ms, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return time.Time{}, err
		}
		return contracts.CalendarDate(time.UnixMilli(ms).In(ist)), nil
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return contracts.CalendarDate(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
