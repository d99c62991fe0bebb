package collector

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/goldcurve/internal/curveconfig"
	"github.com/wonny/goldcurve/internal/external/mcx"
	"github.com/wonny/goldcurve/internal/store"
	"github.com/wonny/goldcurve/pkg/config"
	"github.com/wonny/goldcurve/pkg/logger"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type call struct {
	expiry, from, to time.Time
}

// fakeMCX records calls and serves canned bars
type fakeMCX struct {
	mu       *sync.Mutex
	calls    *[]call
	inits    *int
	requests int
	empty    map[time.Time]bool
	fail     map[time.Time]bool
}

func (f *fakeMCX) InitSession(ctx context.Context) error {
	f.mu.Lock()
	*f.inits++
	f.mu.Unlock()
	f.requests = 0
	return nil
}

func (f *fakeMCX) Requests() int { return f.requests }

func (f *fakeMCX) FetchDateRange(ctx context.Context, symbol string, expiry, from, to time.Time) ([]mcx.Bar, error) {
	f.requests++
	f.mu.Lock()
	*f.calls = append(*f.calls, call{expiry, from, to})
	f.mu.Unlock()

	if f.fail[expiry] {
		return nil, errors.New("503 from upstream")
	}
	if f.empty[expiry] {
		return nil, nil
	}
	return []mcx.Bar{
		{Date: from, Symbol: symbol, Close: 63000},
		{Date: to, Symbol: symbol, Close: 63100},
	}, nil
}

type harness struct {
	collector *Collector
	store     *store.Store
	calls     []call
	inits     int
	empty     map[time.Time]bool
	fail      map[time.Time]bool
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	domain, _, err := curveconfig.Default()
	require.NoError(t, err)
	domain.Ingest.ErrorBackoffMS = 0
	domain.Ingest.SessionRefreshEvery = 2

	h := &harness{
		store: store.New(t.TempDir()),
		empty: map[time.Time]bool{},
		fail:  map[time.Time]bool{},
	}
	mu := &sync.Mutex{}
	factory := func() Fetcher {
		return &fakeMCX{mu: mu, calls: &h.calls, inits: &h.inits, empty: h.empty, fail: h.fail}
	}
	h.collector = NewCollector(factory, h.store, domain, logger.Nop())
	return h
}

func TestFetchHistory(t *testing.T) {
	h := newHarness(t)

	feb, apr, jun, aug := date(2024, time.February, 5), date(2024, time.April, 5), date(2024, time.June, 5), date(2024, time.August, 5)
	require.NoError(t, h.store.WriteCSV(apr, []string{"Date"}, nil))
	h.empty[jun] = true
	h.fail[aug] = true

	sum, err := h.collector.FetchHistory(context.Background(), []time.Time{feb, apr, jun, aug}, Config{Workers: 1})
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Saved)
	assert.Equal(t, 1, sum.Skipped)
	assert.Equal(t, 1, sum.Empty)
	assert.Equal(t, 1, sum.Failed)

	require.Len(t, sum.Results, 4)
	assert.Equal(t, StatusSaved, sum.Results[0].Status)
	assert.Equal(t, 2, sum.Results[0].Rows)
	assert.Equal(t, StatusSkipped, sum.Results[1].Status)
	assert.Equal(t, StatusEmpty, sum.Results[2].Status)
	assert.Equal(t, StatusFailed, sum.Results[3].Status)
	assert.Error(t, sum.Results[3].Error)

	assert.True(t, h.store.Exists(feb))
	assert.False(t, h.store.Exists(jun), "empty result writes nothing")

	require.Len(t, h.calls, 3, "existing file is not refetched")
	assert.Equal(t, date(2023, time.July, 20), h.calls[0].from, "200-day lookback")
	assert.Equal(t, feb, h.calls[0].to)

	// 3 requests with refresh every 2: initial session + one refresh
	assert.Equal(t, 2, h.inits)
}

func TestFetchHistory_WritesCSV(t *testing.T) {
	h := newHarness(t)
	feb := date(2024, time.February, 5)

	_, err := h.collector.FetchHistory(context.Background(), []time.Time{feb}, Config{Workers: 2})
	require.NoError(t, err)

	data, err := os.ReadFile(h.store.Path(feb))
	require.NoError(t, err)
	assert.Equal(t,
		"Date,Symbol,ExpiryDate,Open,High,Low,Close,PreviousClose,Volume,Value,OpenInterest\n"+
			"2023-07-20,GOLD,05FEB2024,0,0,0,63000,0,0,0,0\n"+
			"2024-02-05,GOLD,05FEB2024,0,0,0,63100,0,0,0,0\n",
		string(data))
}

func TestUpdateRecent(t *testing.T) {
	h := newHarness(t)
	now := time.Date(2026, time.March, 10, 14, 0, 0, 0, time.UTC)

	// existing files are overwritten
	require.NoError(t, h.store.WriteCSV(date(2026, time.March, 24), []string{"Date"}, nil))

	sum, err := h.collector.UpdateRecent(context.Background(), now, Config{Workers: 1})
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Skipped)
	require.NotEmpty(t, sum.Results)

	// most recent first; expiries whose window starts after today are not requested
	assert.Equal(t, date(2026, time.September, 25), sum.Results[0].Expiry)

	cutoff := date(2025, time.September, 11)
	for _, r := range sum.Results {
		assert.False(t, r.Expiry.Before(cutoff), "expiry %s outside recent window", r.Expiry)
	}
	for _, c := range h.calls {
		assert.False(t, c.to.After(date(2026, time.March, 10)), "range end clamps to today")
	}

	size, err := h.store.Size(date(2026, time.March, 24))
	require.NoError(t, err)
	assert.Greater(t, size, int64(len("Date\n")))
}

func TestRecover(t *testing.T) {
	h := newHarness(t)
	apr := date(2024, time.April, 5)
	require.NoError(t, h.store.WriteCSV(apr, []string{"Date"}, nil))

	sum, err := h.collector.Recover(context.Background(), []time.Time{apr}, Config{Workers: 3})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Saved)
	assert.Len(t, h.calls, 1)
}

func TestRun_ParallelKeepsOrder(t *testing.T) {
	h := newHarness(t)

	var expiries []time.Time
	for m := time.January; m <= time.December; m++ {
		expiries = append(expiries, date(2023, m, 5))
	}

	sum, err := h.collector.FetchHistory(context.Background(), expiries, Config{Workers: 4})
	require.NoError(t, err)
	assert.Equal(t, 12, sum.Saved)
	for i, r := range sum.Results {
		assert.Equal(t, expiries[i], r.Expiry)
	}
}

func TestRun_Cancelled(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := h.collector.FetchHistory(ctx, []time.Time{date(2024, time.February, 5)}, Config{Workers: 1})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, sum.Failed)
	assert.Empty(t, h.calls)
}

func TestNewPacer(t *testing.T) {
	domain := &curveconfig.Config{Ingest: curveconfig.Ingest{RequestSpacingMS: 1500}}

	slow := NewPacer(&config.Config{MCX: config.MCXConfig{RequestsPerSec: 0.5}}, domain)
	assert.InDelta(t, 0.5, float64(slow.Limit()), 1e-9, "2s from MCX_RPS beats 1.5s spacing")

	fast := NewPacer(&config.Config{MCX: config.MCXConfig{RequestsPerSec: 10}}, domain)
	assert.InDelta(t, 1/1.5, float64(fast.Limit()), 1e-9)
}

func TestPacingInterval(t *testing.T) {
	domain := &curveconfig.Config{Ingest: curveconfig.Ingest{RequestSpacingMS: 1500}}

	assert.Equal(t, 2*time.Second, PacingInterval(&config.Config{MCX: config.MCXConfig{RequestsPerSec: 0.5}}, domain))
	assert.Equal(t, 1500*time.Millisecond, PacingInterval(&config.Config{MCX: config.MCXConfig{RequestsPerSec: 10}}, domain))
	assert.Equal(t, 1500*time.Millisecond, PacingInterval(&config.Config{}, domain))
}

func TestMCXClientFactory(t *testing.T) {
	cfg := &config.Config{MCX: config.MCXConfig{BaseURL: "http://127.0.0.1:1", Timeout: time.Second, MaxRetries: 0, RequestsPerSec: 1}}
	domain, _, err := curveconfig.Default()
	require.NoError(t, err)

	factory := MCXClientFactory(cfg, domain, NewPacer(cfg, domain), nil, logger.Nop())
	a, b := factory(), factory()

	require.NotNil(t, a)
	assert.NotSame(t, a, b, "each worker gets its own session")
	assert.Equal(t, 0, a.Requests())
}
