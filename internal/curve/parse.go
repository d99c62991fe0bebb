package curve

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/goldcurve/internal/contracts"
)

// Column names required in every per-contract file
const (
	ColDate       = "Date"
	ColExpiryDate = "ExpiryDate"
	ColClose      = "Close"
)

// tradeDateLayouts are tried in order
var tradeDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05-07:00",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

var (
	errMissingColumn = errors.New("missing required column")
	errNegative      = errors.New("negative value")
	errEmpty         = errors.New("empty value")
)

// ParseTradeDate parses a trade date into its UTC calendar date
func ParseTradeDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errEmpty
	}
	for _, layout := range tradeDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return contracts.CalendarDate(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// ParseExpiryDate parses 05FEB2024 or 5FEB2024 (any case) or an ISO date
func ParseExpiryDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errEmpty
	}
	if t, err := time.Parse(contracts.ExpiryParseLayout, s); err == nil {
		return t, nil
	}
	return ParseTradeDate(s)
}

// ParseClose parses a non-negative settlement price
func ParseClose(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errEmpty
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", s)
	}
	if v < 0 {
		return 0, errNegative
	}
	return v, nil
}

// ParseCSV parses one per-contract record set.
// fallbackExpiry is used when the file has no ExpiryDate column (zero = none).
// Bad rows are dropped and reported; a bad header marks the whole set Skipped.
func ParseCSV(source string, r io.Reader, fallbackExpiry time.Time) (contracts.RecordSet, []*contracts.MalformedRecordError) {
	set := contracts.RecordSet{Source: source}
	var problems []*contracts.MalformedRecordError

	reject := func(field string, err error) (contracts.RecordSet, []*contracts.MalformedRecordError) {
		set.Skipped = true
		set.Records = nil
		return set, append(problems, &contracts.MalformedRecordError{Source: source, Field: field, Err: err})
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return reject("header", errEmpty)
		}
		return reject("header", err)
	}

	cols := indexColumns(header)
	dateIdx, okDate := cols[strings.ToLower(ColDate)]
	closeIdx, okClose := cols[strings.ToLower(ColClose)]
	expiryIdx, okExpiry := cols[strings.ToLower(ColExpiryDate)]

	switch {
	case !okDate:
		return reject(ColDate, errMissingColumn)
	case !okClose:
		return reject(ColClose, errMissingColumn)
	case !okExpiry && fallbackExpiry.IsZero():
		return reject(ColExpiryDate, errMissingColumn)
	}

	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			// csv 구문 오류: 해당 행만 버림
			problems = append(problems, &contracts.MalformedRecordError{Source: source, Line: line, Field: "row", Err: err})
			set.Malformed++
			continue
		}

		rec, perr := parseRow(row, dateIdx, closeIdx, expiryIdx, okExpiry, fallbackExpiry)
		if perr != nil {
			perr.Source = source
			perr.Line = line
			problems = append(problems, perr)
			set.Malformed++
			continue
		}
		set.Records = append(set.Records, rec)
	}

	return set, problems
}

func parseRow(row []string, dateIdx, closeIdx, expiryIdx int, hasExpiry bool, fallback time.Time) (contracts.ContractRecord, *contracts.MalformedRecordError) {
	field := func(i int) string {
		if i < len(row) {
			return row[i]
		}
		return ""
	}

	trade, err := ParseTradeDate(field(dateIdx))
	if err != nil {
		return contracts.ContractRecord{}, &contracts.MalformedRecordError{Field: ColDate, Value: field(dateIdx), Err: err}
	}

	expiry := fallback
	if hasExpiry {
		expiry, err = ParseExpiryDate(field(expiryIdx))
		if err != nil {
			return contracts.ContractRecord{}, &contracts.MalformedRecordError{Field: ColExpiryDate, Value: field(expiryIdx), Err: err}
		}
	}

	closePrice, err := ParseClose(field(closeIdx))
	if err != nil {
		return contracts.ContractRecord{}, &contracts.MalformedRecordError{Field: ColClose, Value: field(closeIdx), Err: err}
	}

	return contracts.ContractRecord{TradeDate: trade, ExpiryDate: expiry, Close: closePrice}, nil
}

func indexColumns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff") // Excel BOM
		key := strings.ToLower(strings.TrimSpace(h))
		if _, dup := cols[key]; !dup {
			cols[key] = i
		}
	}
	return cols
}
