package curveconfig

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var monthAbbrev = map[string]bool{
	"JAN": true, "FEB": true, "MAR": true, "APR": true, "MAY": true, "JUN": true,
	"JUL": true, "AUG": true, "SEP": true, "OCT": true, "NOV": true, "DEC": true,
}

// Validate checks all required constraints
// 실패 시 error 반환 (프로그램 중단)
func Validate(cfg *Config) error {
	// === Instrument ===
	if cfg.Instrument.Symbol == "" {
		return ValidationError{"instrument.symbol", "required"}
	}
	if cfg.Instrument.InstrumentName == "" {
		return ValidationError{"instrument.instrument_name", "required"}
	}

	// === Roll ===
	if cfg.Roll.ThresholdDays < 0 {
		return ValidationError{"roll.threshold_days", "must be >= 0"}
	}
	if cfg.Roll.DaysPerYear <= 0 {
		return ValidationError{"roll.days_per_year", "must be > 0"}
	}
	switch cfg.Roll.Rounding {
	case RoundingHalfEven, RoundingHalfAwayFromZero:
	default:
		return ValidationError{"roll.rounding", fmt.Sprintf("must be %s or %s", RoundingHalfEven, RoundingHalfAwayFromZero)}
	}
	switch cfg.Roll.DuplicateExpiry {
	case DuplicateKeep, DuplicateFirst, DuplicateLast:
	default:
		return ValidationError{"roll.duplicate_expiry", "must be keep, first or last"}
	}

	// === Ingest ===
	if cfg.Ingest.LookbackDays <= 0 {
		return ValidationError{"ingest.lookback_days", "must be > 0"}
	}
	if cfg.Ingest.RecentWindowDays <= 0 {
		return ValidationError{"ingest.recent_window_days", "must be > 0"}
	}
	if cfg.Ingest.SessionRefreshEvery < 1 {
		return ValidationError{"ingest.session_refresh_every", "must be >= 1"}
	}
	if cfg.Ingest.RequestSpacingMS < 0 || cfg.Ingest.ErrorBackoffMS < 0 {
		return ValidationError{"ingest", "request_spacing_ms and error_backoff_ms must be >= 0"}
	}

	// === Audit ===
	if cfg.Audit.MinFileBytes <= 0 {
		return ValidationError{"audit.min_file_bytes", "must be > 0"}
	}
	if cfg.Audit.MainMinBytes <= 0 {
		return ValidationError{"audit.main_min_bytes", "must be > 0"}
	}
	for _, m := range cfg.Audit.MainMonths {
		if !monthAbbrev[strings.ToUpper(m)] {
			return ValidationError{"audit.main_months", fmt.Sprintf("unknown month %q", m)}
		}
	}
	if cfg.Audit.CoverageFromYear > cfg.Audit.CoverageToYear {
		return ValidationError{"audit.coverage_from_year", "must be <= coverage_to_year"}
	}

	// === Expiries ===
	if len(cfg.Expiries) == 0 {
		return ValidationError{"expiries", "at least one expiry required"}
	}
	seen := make(map[time.Time]string, len(cfg.Expiries))
	for _, tag := range cfg.Expiries {
		t, err := ParseExpiryTag(tag)
		if err != nil {
			return ValidationError{"expiries", err.Error()}
		}
		if prev, ok := seen[t]; ok {
			return ValidationError{"expiries", fmt.Sprintf("duplicate expiry %s (also %s)", tag, prev)}
		}
		seen[t] = tag
	}

	return nil
}
