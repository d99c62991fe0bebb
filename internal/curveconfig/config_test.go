package curveconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDefault(t *testing.T) {
	cfg, data, err := Default()
	require.NoError(t, err)
	require.NotEmpty(t, data)

	assert.Equal(t, "GOLD", cfg.Instrument.Symbol)
	assert.Equal(t, "FUTCOM", cfg.Instrument.InstrumentName)
	assert.Equal(t, 7, cfg.Roll.ThresholdDays)
	assert.Equal(t, 365, cfg.Roll.DaysPerYear)
	assert.Equal(t, RoundingHalfEven, cfg.Roll.Rounding)
	assert.Equal(t, DuplicateKeep, cfg.Roll.DuplicateExpiry)
	assert.Equal(t, 200, cfg.Ingest.LookbackDays)
	assert.Equal(t, 180, cfg.Ingest.RecentWindowDays)
	assert.Equal(t, 10, cfg.Ingest.SessionRefreshEvery)
	assert.Equal(t, int64(2048), cfg.Audit.MinFileBytes)
	assert.Equal(t, int64(2000), cfg.Audit.MainMinBytes)
	assert.Equal(t, []string{"FEB", "APR", "JUN", "AUG", "OCT", "DEC"}, cfg.Audit.MainMonths)
	assert.Len(t, cfg.Expiries, 145)
}

func TestHash_Deterministic(t *testing.T) {
	cfg, _, err := Default()
	require.NoError(t, err)

	h1, err := Hash(cfg)
	require.NoError(t, err)
	assert.Len(t, h1, 64)

	h2, _ := Hash(cfg)
	assert.Equal(t, h1, h2, "same config must hash identically")

	cfg.Roll.ThresholdDays = 5
	h3, _ := Hash(cfg)
	assert.NotEqual(t, h1, h3)
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "curve.yaml")
	require.NoError(t, os.WriteFile(path, defaultYAML, 0o644))

	cfg, data, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, defaultYAML, data)
	assert.Equal(t, "mcx_gold_calendar_spread", cfg.Meta.ConfigID)

	_, _, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadOrDefault_EmptyPath(t *testing.T) {
	cfg, _, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, "GOLD", cfg.Instrument.Symbol)
}

func TestParse_UnknownFieldRejected(t *testing.T) {
	data := strings.Replace(string(defaultYAML), "threshold_days: 7", "treshold_days: 7", 1)

	_, err := Parse([]byte(data))
	assert.Error(t, err, "typo in field name must fail")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"empty symbol", func(c *Config) { c.Instrument.Symbol = "" }, "instrument.symbol"},
		{"negative threshold", func(c *Config) { c.Roll.ThresholdDays = -1 }, "roll.threshold_days"},
		{"zero days per year", func(c *Config) { c.Roll.DaysPerYear = 0 }, "roll.days_per_year"},
		{"bad rounding", func(c *Config) { c.Roll.Rounding = "ceil" }, "roll.rounding"},
		{"bad duplicate policy", func(c *Config) { c.Roll.DuplicateExpiry = "merge" }, "roll.duplicate_expiry"},
		{"zero lookback", func(c *Config) { c.Ingest.LookbackDays = 0 }, "ingest.lookback_days"},
		{"zero session refresh", func(c *Config) { c.Ingest.SessionRefreshEvery = 0 }, "ingest.session_refresh_every"},
		{"bad main month", func(c *Config) { c.Audit.MainMonths = []string{"FEB", "SMR"} }, "audit.main_months"},
		{"inverted coverage", func(c *Config) { c.Audit.CoverageFromYear = 2030 }, "audit.coverage_from_year"},
		{"no expiries", func(c *Config) { c.Expiries = nil }, "expiries"},
		{"bad expiry tag", func(c *Config) { c.Expiries = []string{"2024-02-05"} }, "expiries"},
		{"duplicate expiry", func(c *Config) { c.Expiries = []string{"05FEB2024", "05feb2024"} }, "expiries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, _, err := Default()
			require.NoError(t, err)

			tt.mutate(cfg)
			err = Validate(cfg)
			require.Error(t, err)

			var vErr ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg, _, err := Default()
	require.NoError(t, err)

	cfg.ApplyOverrides(0, 0)
	assert.Equal(t, 7, cfg.Roll.ThresholdDays)
	assert.Equal(t, 200, cfg.Ingest.LookbackDays)

	cfg.ApplyOverrides(5, 120)
	assert.Equal(t, 5, cfg.Roll.ThresholdDays)
	assert.Equal(t, 120, cfg.Ingest.LookbackDays)
}

func TestParseExpiryTag(t *testing.T) {
	got, err := ParseExpiryTag("05FEB2024")
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.February, 5), got)

	got, err = ParseExpiryTag("05feb2024")
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.February, 5), got)

	got, err = ParseExpiryTag("5FEB2024")
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.February, 5), got)

	_, err = ParseExpiryTag("31FEB2024")
	assert.Error(t, err)
}

func TestExpiryDates_Ascending(t *testing.T) {
	cfg := &Config{Expiries: []string{"05APR2024", "05FEB2024", "05JUN2024"}}

	got := cfg.ExpiryDates()
	require.Len(t, got, 3)
	assert.Equal(t, date(2024, time.February, 5), got[0])
	assert.Equal(t, date(2024, time.June, 5), got[2])
}

func TestDateRange(t *testing.T) {
	cfg := &Config{Ingest: Ingest{LookbackDays: 200}}

	from, to := cfg.DateRange(date(2025, time.April, 4))
	assert.Equal(t, date(2024, time.September, 16), from)
	assert.Equal(t, date(2025, time.April, 4), to)
}

func TestUpdateRange_ClampsToToday(t *testing.T) {
	cfg := &Config{Ingest: Ingest{LookbackDays: 200}}
	now := time.Date(2025, time.March, 10, 15, 45, 0, 0, time.UTC)

	_, to := cfg.UpdateRange(date(2025, time.April, 4), now)
	assert.Equal(t, date(2025, time.March, 10), to)

	_, to = cfg.UpdateRange(date(2025, time.February, 5), now)
	assert.Equal(t, date(2025, time.February, 5), to, "expired contract keeps its expiry as end")
}

func TestRecentExpiries(t *testing.T) {
	cfg := &Config{
		Ingest:   Ingest{RecentWindowDays: 180},
		Expiries: []string{"05FEB2024", "05AUG2024", "05DEC2024", "05FEB2025"},
	}
	now := date(2024, time.October, 1)

	got := cfg.RecentExpiries(now)
	require.Len(t, got, 3)
	assert.Equal(t, date(2025, time.February, 5), got[0], "most recent first")
	assert.Equal(t, date(2024, time.August, 5), got[2])
}

func TestSpacingDurations(t *testing.T) {
	cfg := &Config{Ingest: Ingest{RequestSpacingMS: 1500, ErrorBackoffMS: 5000}}
	assert.Equal(t, 1500*time.Millisecond, cfg.RequestSpacing())
	assert.Equal(t, 5*time.Second, cfg.ErrorBackoff())
}
