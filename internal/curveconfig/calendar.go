package curveconfig

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/wonny/goldcurve/internal/contracts"
)

// ParseExpiryTag parses a DDMMMYYYY tag (case-insensitive) to UTC midnight
func ParseExpiryTag(tag string) (time.Time, error) {
	t, err := time.Parse(contracts.ExpiryParseLayout, strings.TrimSpace(tag))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid expiry tag %q: %w", tag, err)
	}
	return t, nil
}

// ExpiryDates returns the configured expiries ascending
func (c *Config) ExpiryDates() []time.Time {
	out := make([]time.Time, 0, len(c.Expiries))
	for _, tag := range c.Expiries {
		// Validate already rejected bad tags
		if t, err := ParseExpiryTag(tag); err == nil {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// DateRange returns the fetch window [expiry - lookback, expiry]
func (c *Config) DateRange(expiry time.Time) (from, to time.Time) {
	return expiry.AddDate(0, 0, -c.Ingest.LookbackDays), expiry
}

// UpdateRange returns the refresh window [expiry - lookback, min(expiry, today)]
func (c *Config) UpdateRange(expiry, now time.Time) (from, to time.Time) {
	from, to = c.DateRange(expiry)
	today := contracts.CalendarDate(now)
	if today.Before(to) {
		to = today
	}
	return from, to
}

// RecentExpiries returns expiries on or after now - recent window, most recent first
func (c *Config) RecentExpiries(now time.Time) []time.Time {
	cutoff := contracts.CalendarDate(now).AddDate(0, 0, -c.Ingest.RecentWindowDays)

	all := c.ExpiryDates()
	out := make([]time.Time, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		if !all[i].Before(cutoff) {
			out = append(out, all[i])
		}
	}
	return out
}

// RequestSpacing returns the minimum gap between MCX requests
func (c *Config) RequestSpacing() time.Duration {
	return time.Duration(c.Ingest.RequestSpacingMS) * time.Millisecond
}

// ErrorBackoff returns the pause after a failed request
func (c *Config) ErrorBackoff() time.Duration {
	return time.Duration(c.Ingest.ErrorBackoffMS) * time.Millisecond
}
