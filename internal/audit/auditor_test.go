package audit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/goldcurve/internal/curveconfig"
	"github.com/wonny/goldcurve/internal/store"
	"github.com/wonny/goldcurve/pkg/logger"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newAuditor(t *testing.T) (*Auditor, *store.Store) {
	t.Helper()
	domain, _, err := curveconfig.Default()
	require.NoError(t, err)

	st := store.New(t.TempDir())
	require.NoError(t, st.EnsureDir())
	return NewAuditor(st, domain, logger.Nop()), st
}

// put writes a file of exactly size bytes for expiry
func put(t *testing.T, st *store.Store, expiry time.Time, size int) {
	t.Helper()
	require.NoError(t, os.WriteFile(st.Path(expiry), []byte(strings.Repeat("x", size)), 0o644))
}

func TestAudit(t *testing.T) {
	a, st := newAuditor(t)

	feb, apr, jun := date(2024, time.February, 5), date(2024, time.April, 5), date(2024, time.June, 5)
	put(t, st, feb, 9000)
	put(t, st, apr, 700)

	report, err := a.Audit([]time.Time{feb, apr, jun})
	require.NoError(t, err)

	assert.Equal(t, 3, report.Checked)
	assert.Equal(t, []time.Time{jun}, report.Missing)
	require.Len(t, report.Incomplete, 1)
	assert.Equal(t, apr, report.Incomplete[0].Expiry)
	assert.Equal(t, int64(700), report.Incomplete[0].Size)

	assert.True(t, st.Exists(feb))
	assert.False(t, st.Exists(apr), "incomplete file is removed")

	assert.Equal(t, []time.Time{jun, apr}, report.NeedsFetch(), "most recent first")
}

func TestAudit_BoundarySize(t *testing.T) {
	a, st := newAuditor(t)
	feb := date(2024, time.February, 5)
	put(t, st, feb, 2048)

	report, err := a.Audit([]time.Time{feb})
	require.NoError(t, err)
	assert.Empty(t, report.Incomplete, "exactly min_file_bytes is complete")
}

func TestCoverage(t *testing.T) {
	a, st := newAuditor(t)
	put(t, st, date(2014, time.February, 5), 10)
	put(t, st, date(2024, time.April, 5), 10)
	put(t, st, date(2030, time.June, 5), 10)
	require.NoError(t, os.WriteFile(filepath.Join(st.Dir(), "gold_bhavcopy.csv"), []byte("x"), 0o644))

	grid, err := a.Coverage(2014, 2026)
	require.NoError(t, err)

	assert.True(t, grid.Has(2014, time.February))
	assert.True(t, grid.Has(2024, time.April))
	assert.False(t, grid.Has(2024, time.May))
	assert.False(t, grid.Has(2030, time.June), "outside range")
	assert.Equal(t, 2, grid.Count())
	assert.Len(t, grid.Years(), 13)

	_, err = a.Coverage(2026, 2014)
	assert.Error(t, err)
}

func TestVerifyMain(t *testing.T) {
	a, st := newAuditor(t)
	put(t, st, date(2024, time.February, 5), 5000)
	put(t, st, date(2024, time.April, 5), 2000) // not > 2000
	put(t, st, date(2024, time.March, 26), 5000)

	got, err := a.VerifyMain([]int{2024})
	require.NoError(t, err)
	require.Len(t, got, 6)

	assert.Equal(t, "FEB", got[0].Month)
	assert.True(t, got[0].OK())

	assert.Equal(t, "APR", got[1].Month)
	assert.True(t, got[1].Exists)
	assert.False(t, got[1].OK())
	require.Len(t, got[1].Small, 1)

	assert.Equal(t, "JUN", got[2].Month)
	assert.False(t, got[2].Exists)
}

func TestCleanup(t *testing.T) {
	a, st := newAuditor(t)
	put(t, st, date(2024, time.February, 5), 5000)
	put(t, st, date(2024, time.April, 5), 300)
	put(t, st, date(2024, time.June, 5), 2047)

	deleted, err := a.Cleanup()
	require.NoError(t, err)
	assert.Len(t, deleted, 2)

	entries, err := st.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "05FEB2024.csv", entries[0].Name)
}
